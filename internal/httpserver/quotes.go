package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) activateQuote(c *gin.Context) {
	activated, err := h.deps.Quotes.ActivateQuote(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, activated)
}

func (h *handlers) cancelQuote(c *gin.Context) {
	cancelled, err := h.deps.Quotes.CancelQuote(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, cancelled)
}

// expireQuote lets a scheduler settle an elapsed quote. It is a no-op for quotes still in their window.
func (h *handlers) expireQuote(c *gin.Context) {
	got, expired, err := h.deps.Quotes.MarkExpired(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": got, "expired": expired})
}

func (h *handlers) validatePrices(c *gin.Context) {
	res, err := h.deps.Quotes.ValidateCartPrices(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, res)
}

func (h *handlers) approvePriceChange(c *gin.Context) {
	approved, res, err := h.deps.Quotes.ApprovePriceChange(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": approved, "validation": res})
}
