package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/cooltech/internal/core"
	"github.com/example/cooltech/internal/middleware"
)

// Services bundles the core services the routes delegate to.
type Services struct {
	Auth        core.AuthService
	Credentials core.CredentialService
	Directory   core.DirectoryService
	Membership  core.MembershipService
}

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (logging, recovery, CORS) is applied to router by the caller.
func SetupRoutes(router *gin.Engine, logger *zap.Logger, svc Services) {
	authMW := middleware.NewAuthMiddleware(svc.Auth, logger)

	authHandler := NewAuthHandler(svc.Auth, logger)
	credentialHandler := NewCredentialHandler(svc.Credentials, svc.Directory, logger)
	userHandler := NewUserHandler(svc.Membership, logger)

	apiGroup := router.Group("/api")
	{
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		credentialsGroup := apiGroup.Group("/credentials", authMW.VerifyToken())
		{
			credentialsGroup.GET("/ous", credentialHandler.ListOUs)
			credentialsGroup.GET("/divisions", credentialHandler.ListDivisions)
			credentialsGroup.GET("/admin/users-ou-divisions", credentialHandler.OrgChart)

			credentialsGroup.GET("/cred/:divisionId", credentialHandler.ListCredentials)
			credentialsGroup.POST("/cred/:divisionId", credentialHandler.AddCredential)
			credentialsGroup.PUT("/cred/:divisionId/:credentialId", credentialHandler.UpdateCredential)
			credentialsGroup.DELETE("/cred/:divisionId/:credentialId", credentialHandler.DeleteCredential)
		}

		usersGroup := apiGroup.Group("/users", authMW.VerifyToken())
		{
			usersGroup.GET("", userHandler.ListUsers)
			usersGroup.PUT("/:userId/role", userHandler.ChangeUserRole)
			usersGroup.POST("/:userId/ou/:ouId", userHandler.AssignUserToOU)
			usersGroup.DELETE("/:userId/ou/:ouId", userHandler.RemoveUserFromOU)
			usersGroup.POST("/:userId/division/:divisionId", userHandler.AssignUserToDivision)
			usersGroup.DELETE("/:userId/division/:divisionId", userHandler.RemoveUserFromDivision)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "CoolTech credential service is healthy."})
	})

	logger.Info("API routes configured successfully under /api and /health.")
}
