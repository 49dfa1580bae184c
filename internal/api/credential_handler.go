package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/cooltech/internal/core"
	"github.com/example/cooltech/internal/models"
)

// CredentialHandler handles division credentials and the org listings.
type CredentialHandler struct {
	credentialService core.CredentialService
	directoryService  core.DirectoryService
	logger            *zap.Logger
}

// NewCredentialHandler creates a new CredentialHandler.
func NewCredentialHandler(cs core.CredentialService, ds core.DirectoryService, logger *zap.Logger) *CredentialHandler {
	return &CredentialHandler{credentialService: cs, directoryService: ds, logger: logger}
}

func (h *CredentialHandler) mapCredentialErrorToStatus(c *gin.Context, err error) {
	mapErrorToStatus(c, h.logger, err, http.StatusForbidden)
}

// ListCredentials handles GET /credentials/cred/:divisionId
func (h *CredentialHandler) ListCredentials(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	view, err := h.credentialService.ListCredentials(c.Request.Context(), p, c.Param("divisionId"))
	if err != nil {
		h.mapCredentialErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddCredential handles POST /credentials/cred/:divisionId
func (h *CredentialHandler) AddCredential(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.CreateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}

	view, err := h.credentialService.AddCredential(c.Request.Context(), p, c.Param("divisionId"), req)
	if err != nil {
		h.mapCredentialErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// UpdateCredential handles PUT /credentials/cred/:divisionId/:credentialId.
// A denied update answers 400, matching existing clients.
func (h *CredentialHandler) UpdateCredential(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.UpdateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request payload", Details: err.Error()})
		return
	}

	updated, err := h.credentialService.UpdateCredential(c.Request.Context(), p, c.Param("divisionId"), c.Param("credentialId"), req)
	if err != nil {
		mapErrorToStatus(c, h.logger, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteCredential handles DELETE /credentials/cred/:divisionId/:credentialId
func (h *CredentialHandler) DeleteCredential(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.credentialService.DeleteCredential(c.Request.Context(), p, c.Param("divisionId"), c.Param("credentialId")); err != nil {
		h.mapCredentialErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Credential deleted"})
}

// ListOUs handles GET /credentials/ous
func (h *CredentialHandler) ListOUs(c *gin.Context) {
	ous, err := h.directoryService.ListOUs(c.Request.Context())
	if err != nil {
		h.mapCredentialErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, ous)
}

// ListDivisions handles GET /credentials/divisions
func (h *CredentialHandler) ListDivisions(c *gin.Context) {
	divisions, err := h.directoryService.ListDivisions(c.Request.Context())
	if err != nil {
		h.mapCredentialErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, divisions)
}

// OrgChart handles GET /credentials/admin/users-ou-divisions
func (h *CredentialHandler) OrgChart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	chart, err := h.directoryService.OrgChart(c.Request.Context(), p)
	if err != nil {
		h.mapCredentialErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, chart)
}
