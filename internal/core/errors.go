package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every service. Handlers map these to HTTP statuses.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrAccessDenied       = errors.New("access denied")
	ErrNotFound           = errors.New("not found")

	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrOUNotFound         = fmt.Errorf("OU %w", ErrNotFound)
	ErrDivisionNotFound   = fmt.Errorf("division %w", ErrNotFound)
	ErrCredentialNotFound = fmt.Errorf("credential %w", ErrNotFound)
)

// validationError wraps ErrValidation with a human readable reason.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// deniedError wraps ErrAccessDenied with the policy's reason.
func deniedError(r Result) error {
	return fmt.Errorf("%w: %s", ErrAccessDenied, r.Reason)
}
