package httpserver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"quote-commerce/internal/domain"
)

const organizationHeader = "X-Organization-ID"

const organizationKey = "organization"

// bindJSON decodes the body into dst and runs its binding rules.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return validationErrs
		}
		return domain.InvalidInput("malformed JSON body: %s", strings.TrimSpace(err.Error()))
	}
	return nil
}

// organizationMiddleware resolves the tenant from the X-Organization-ID header.
func organizationMiddleware(orgs OrganizationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(organizationHeader))
		if id == "" {
			writeError(c, domain.InvalidInput("missing %s header", organizationHeader))
			return
		}
		org, err := orgs.GetByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(c, fmt.Errorf("organization %s: %w", id, domain.ErrNotFound))
				return
			}
			writeError(c, err)
			return
		}
		c.Set(organizationKey, org)
		c.Next()
	}
}

func organizationID(c *gin.Context) string {
	if v, ok := c.Get(organizationKey); ok {
		if org, ok := v.(*domain.Organization); ok {
			return org.ID
		}
	}
	return ""
}
