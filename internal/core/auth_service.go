package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/cooltech/internal/crypto"
	"github.com/example/cooltech/internal/db"
	"github.com/example/cooltech/internal/models"
)

// authService implements the AuthService interface.
type authService struct {
	users  db.UserRepository
	hasher *crypto.PasswordHasher
	tokens *crypto.TokenIssuer
	logger *zap.Logger
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(users db.UserRepository, hasher *crypto.PasswordHasher, tokens *crypto.TokenIssuer, logger *zap.Logger) AuthService {
	return &authService{users: users, hasher: hasher, tokens: tokens, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with the normal role.
func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	user := &models.User{
		Email:     normalizeEmail(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      models.RoleNormal,
	}
	switch {
	case user.Email == "":
		return nil, validationError("email is required")
	case user.FirstName == "":
		return nil, validationError("firstname is required")
	case user.LastName == "":
		return nil, validationError("lastname is required")
	case req.Password == "":
		return nil, validationError("password is required")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooLong) {
			return nil, validationError("password is too long")
		}
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, validationError("email already registered")
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("User registered", zap.String("userID", user.ID))
	return user, nil
}

// Login verifies the password and issues a token. Unknown email and wrong
// password fail identically.
func (s *authService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if !s.hasher.Match(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate verifies token and resolves the user it names. The role comes
// from the stored user, so role changes apply without a new login.
func (s *authService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: no token provided", ErrUnauthenticated)
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("failed to resolve token subject: %w", err)
	}
	return &Principal{UserID: user.ID, Role: user.Role}, nil
}
