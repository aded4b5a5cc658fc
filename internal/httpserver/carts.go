package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"quote-commerce/internal/service/cart"
	"quote-commerce/internal/service/pricing"
)

type replaceItemsRequest struct {
	Items []pricing.ItemRequest `json:"items" binding:"dive"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

func (h *handlers) createCart(c *gin.Context) {
	var in cart.CreateInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	created, err := h.deps.Carts.Create(c.Request.Context(), organizationID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handlers) getCart(c *gin.Context) {
	got, err := h.deps.Carts.Get(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, got)
}

func (h *handlers) replaceCartItems(c *gin.Context) {
	var req replaceItemsRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	updated, err := h.deps.Carts.ReplaceItems(c.Request.Context(), organizationID(c), c.Param("id"), req.Items)
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, updated)
}

func (h *handlers) addCartItem(c *gin.Context) {
	var in cart.AddItemInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	updated, err := h.deps.Carts.AddItem(c.Request.Context(), organizationID(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, updated)
}

func (h *handlers) updateCartItem(c *gin.Context) {
	var req updateItemRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	updated, err := h.deps.Carts.UpdateItemQuantity(c.Request.Context(), organizationID(c), c.Param("id"), c.Param("itemId"), *req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, updated)
}

func (h *handlers) removeCartItem(c *gin.Context) {
	updated, err := h.deps.Carts.RemoveItem(c.Request.Context(), organizationID(c), c.Param("id"), c.Param("itemId"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, updated)
}

func (h *handlers) updateCustomization(c *gin.Context) {
	var fields map[string]interface{}
	if err := bindJSON(c, &fields); err != nil {
		writeError(c, err)
		return
	}
	updated, err := h.deps.Carts.UpdateCustomization(c.Request.Context(), organizationID(c), c.Param("id"), fields)
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, updated)
}

func (h *handlers) cartChangelog(c *gin.Context) {
	changes, err := h.deps.Carts.Changelog(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": changes, "count": len(changes)})
}
