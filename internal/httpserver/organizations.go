package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"quote-commerce/internal/domain"
)

type createOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *handlers) listOrganizations(c *gin.Context) {
	orgs, err := h.deps.Organizations.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": orgs, "count": len(orgs)})
}

func (h *handlers) createOrganization(c *gin.Context) {
	var req createOrganizationRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	org, err := h.deps.Organizations.Create(c.Request.Context(), &domain.Organization{Name: req.Name})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, org)
}
