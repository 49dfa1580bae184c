package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/cooltech/internal/core"
)

// Context keys set by AuthMiddleware.
const (
	ContextPrincipal = "principal"
	ContextUserID    = "userID"
	ContextRole      = "role"
)

// ErrorResponse mirrors api.ErrorResponse; it is duplicated here to avoid an import cycle.
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// AuthMiddleware authenticates bearer tokens issued by the AuthService.
type AuthMiddleware struct {
	auth   core.AuthService
	logger *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(auth core.AuthService, logger *zap.Logger) *AuthMiddleware {
	if auth == nil {
		panic("AuthMiddleware requires a non-nil AuthService")
	}
	return &AuthMiddleware{auth: auth, logger: logger}
}

// VerifyToken resolves the Authorization header to a principal and stores it
// in the gin context. Requests without a valid token are aborted with 401.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "No token provided"})
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid token"})
			return
		}

		principal, err := m.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			// Details stay server-side.
			m.logger.Debug("Token rejected", zap.Error(err), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid token"})
			return
		}

		c.Set(ContextPrincipal, *principal)
		c.Set(ContextUserID, principal.UserID)
		c.Set(ContextRole, string(principal.Role))
		c.Next()
	}
}

// bearerToken accepts "Bearer <token>" or a bare token.
func bearerToken(header string) (string, bool) {
	scheme, rest, found := strings.Cut(header, " ")
	if !found {
		return header, true
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(rest)
	return token, token != ""
}

// PrincipalFrom returns the principal stored by VerifyToken.
func PrincipalFrom(c *gin.Context) (core.Principal, bool) {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return core.Principal{}, false
	}
	p, ok := v.(core.Principal)
	return p, ok
}
