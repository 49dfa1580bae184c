package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/cooltech/internal/core"
	"github.com/example/cooltech/internal/middleware"
)

// notFoundMessage names the entity behind a core not-found error.
func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, core.ErrOUNotFound):
		return "OU not found"
	case errors.Is(err, core.ErrDivisionNotFound):
		return "Division not found"
	case errors.Is(err, core.ErrCredentialNotFound):
		return "Credential not found"
	}
	return "Not found"
}

// mapErrorToStatus maps the core error taxonomy to HTTP statuses. deniedStatus
// is the status for ErrAccessDenied. Internal errors are logged and their
// details withheld.
func mapErrorToStatus(c *gin.Context, logger *zap.Logger, err error, deniedStatus int) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrValidation):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Message: "Invalid request", Details: err.Error()}
	case errors.Is(err, core.ErrInvalidCredentials):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Message: "Invalid credentials"}
	case errors.Is(err, core.ErrUnauthenticated):
		statusCode = http.StatusUnauthorized
		errResponse = ErrorResponse{Message: "Invalid token"}
	case errors.Is(err, core.ErrAccessDenied):
		statusCode = deniedStatus
		errResponse = ErrorResponse{Message: "Access denied"}
	case errors.Is(err, core.ErrNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Message: notFoundMessage(err)}
	default:
		logger.Error("Internal Server Error", zap.Error(err), zap.String("path", c.Request.URL.Path))
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Message: "An unexpected internal server error occurred."}
	}
	_ = c.Error(err)
	c.JSON(statusCode, errResponse)
}

// principal returns the authenticated caller, answering 401 when the auth
// middleware did not run.
func principal(c *gin.Context) (core.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User ID not found in context"})
	}
	return p, ok
}
