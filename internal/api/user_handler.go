package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/cooltech/internal/core"
	"github.com/example/cooltech/internal/models"
)

// UserHandler handles the admin-only user and membership endpoints.
type UserHandler struct {
	membershipService core.MembershipService
	logger            *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(ms core.MembershipService, logger *zap.Logger) *UserHandler {
	return &UserHandler{membershipService: ms, logger: logger}
}

func (h *UserHandler) mapUserErrorToStatus(c *gin.Context, err error) {
	mapErrorToStatus(c, h.logger, err, http.StatusForbidden)
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	users, err := h.membershipService.ListUsers(c.Request.Context(), p)
	if err != nil {
		h.mapUserErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// AssignUserToOU handles POST /users/:userId/ou/:ouId
func (h *UserHandler) AssignUserToOU(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ou, err := h.membershipService.AssignUserToOU(c.Request.Context(), p, c.Param("userId"), c.Param("ouId"))
	if err != nil {
		h.mapUserErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, ou)
}

// RemoveUserFromOU handles DELETE /users/:userId/ou/:ouId
func (h *UserHandler) RemoveUserFromOU(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.membershipService.RemoveUserFromOU(c.Request.Context(), p, c.Param("userId"), c.Param("ouId")); err != nil {
		h.mapUserErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "User removed from OU and associated divisions successfully"})
}

// AssignUserToDivision handles POST /users/:userId/division/:divisionId
func (h *UserHandler) AssignUserToDivision(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.membershipService.AssignUserToDivision(c.Request.Context(), p, c.Param("userId"), c.Param("divisionId")); err != nil {
		h.mapUserErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "User assigned to division successfully"})
}

// RemoveUserFromDivision handles DELETE /users/:userId/division/:divisionId
func (h *UserHandler) RemoveUserFromDivision(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.membershipService.RemoveUserFromDivision(c.Request.Context(), p, c.Param("userId"), c.Param("divisionId")); err != nil {
		h.mapUserErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "User removed from division successfully"})
}

// ChangeUserRole handles PUT /users/:userId/role
func (h *UserHandler) ChangeUserRole(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	// An unreadable body leaves Role empty and is rejected after authorization.
	var req models.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Role change body not bound", zap.Error(err))
	}

	user, err := h.membershipService.ChangeUserRole(c.Request.Context(), p, c.Param("userId"), req.Role)
	if err != nil {
		h.mapUserErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
