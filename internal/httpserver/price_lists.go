package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"quote-commerce/internal/domain"
	"quote-commerce/internal/service/pricelist"
)

func (h *handlers) listPriceLists(c *gin.Context) {
	status := domain.PriceListStatus(strings.TrimSpace(c.Query("status")))
	lists, err := h.deps.PriceLists.List(c.Request.Context(), organizationID(c), status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": lists, "count": len(lists)})
}

func (h *handlers) getPriceList(c *gin.Context) {
	list, err := h.deps.PriceLists.Get(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, list)
}

func (h *handlers) createPriceList(c *gin.Context) {
	var in pricelist.CreateInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	list, err := h.deps.PriceLists.Create(c.Request.Context(), organizationID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (h *handlers) updatePriceList(c *gin.Context) {
	var in pricelist.UpdateInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	list, err := h.deps.PriceLists.Update(c.Request.Context(), organizationID(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, list)
}

func (h *handlers) deletePriceList(c *gin.Context) {
	if err := h.deps.PriceLists.Delete(c.Request.Context(), organizationID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) addCondition(c *gin.Context) {
	var cond domain.PriceListCondition
	if err := bindJSON(c, &cond); err != nil {
		writeError(c, err)
		return
	}
	created, err := h.deps.PriceLists.AddCondition(c.Request.Context(), organizationID(c), c.Param("id"), cond)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handlers) deleteCondition(c *gin.Context) {
	err := h.deps.PriceLists.DeleteCondition(c.Request.Context(), organizationID(c), c.Param("id"), c.Param("conditionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// priceListProgress answers how close a cart is to each conditional list.
func (h *handlers) priceListProgress(c *gin.Context) {
	cartID := strings.TrimSpace(c.Query("cartId"))
	if cartID == "" {
		writeError(c, domain.InvalidInput("cartId query parameter required"))
		return
	}
	if h.deps.Carts == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	progress, err := h.deps.Carts.PriceListProgress(c.Request.Context(), organizationID(c), cartID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cartId": cartID, "priceLists": progress})
}
