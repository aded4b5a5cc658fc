package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"quote-commerce/internal/service/product"
)

func (h *handlers) listProducts(c *gin.Context) {
	products, err := h.deps.Products.List(c.Request.Context(), organizationID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": products, "count": len(products)})
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.deps.Products.Get(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, p)
}

func (h *handlers) createProduct(c *gin.Context) {
	var in product.CreateInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	p, err := h.deps.Products.Create(c.Request.Context(), organizationID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *handlers) setProductPrice(c *gin.Context) {
	var in product.PriceInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	price, err := h.deps.Products.SetPrice(c.Request.Context(), organizationID(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, price)
}
