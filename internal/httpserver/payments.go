package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"quote-commerce/internal/domain"
	"quote-commerce/internal/service/payment"
)

const idempotencyHeader = "Idempotency-Key"

type failPaymentRequest struct {
	Reason string `json:"reason"`
}

func (h *handlers) createPayment(c *gin.Context) {
	var in payment.CreateInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
	p, replayed, err := h.deps.Payments.Create(c.Request.Context(), organizationID(c), key, in)
	if err != nil {
		writeError(c, err)
		return
	}
	if replayed {
		c.Header("Idempotency-Replayed", "true")
		c.JSON(http.StatusOK, p)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *handlers) getPayment(c *gin.Context) {
	p, err := h.deps.Payments.Get(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, p)
}

func (h *handlers) listCartPayments(c *gin.Context) {
	payments, err := h.deps.Payments.ListByCart(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": payments, "count": len(payments)})
}

// uploadProof accepts a multipart "file" field holding the transfer or check receipt.
func (h *handlers) uploadProof(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, payment.MaxProofSize+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		writeError(c, domain.InvalidInput("multipart field \"file\" required"))
		return
	}
	f, err := header.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	p, err := h.deps.Payments.UploadProof(c.Request.Context(), organizationID(c), c.Param("id"),
		header.Filename, header.Header.Get("Content-Type"), header.Size, f)
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, p)
}

func (h *handlers) confirmPayment(c *gin.Context) {
	var in payment.ConfirmInput
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &in); err != nil {
			writeError(c, err)
			return
		}
	}
	p, err := h.deps.Payments.Confirm(c.Request.Context(), organizationID(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, p)
}

func (h *handlers) failPayment(c *gin.Context) {
	var req failPaymentRequest
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			writeError(c, err)
			return
		}
	}
	p, err := h.deps.Payments.Fail(c.Request.Context(), organizationID(c), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, p)
}

func (h *handlers) cancelPayment(c *gin.Context) {
	p, err := h.deps.Payments.Cancel(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, p)
}

func (h *handlers) refundPayment(c *gin.Context) {
	p, err := h.deps.Payments.Refund(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, p)
}

func (h *handlers) retryPayment(c *gin.Context) {
	p, err := h.deps.Payments.Retry(c.Request.Context(), organizationID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, p)
}
