package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"quote-commerce/internal/domain"
	"quote-commerce/internal/idempotency"
	"quote-commerce/internal/lock"
	"quote-commerce/internal/logger"
	"quote-commerce/internal/service/quote"
)

type errorItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorResponse struct {
	StatusCode int                          `json:"statusCode"`
	Message    string                       `json:"message"`
	Errors     []errorItem                  `json:"errors"`
	Validation *quote.PriceValidationResult `json:"validation,omitempty"`
	CartID     string                       `json:"cartId,omitempty"`
	ValidUntil string                       `json:"validUntil,omitempty"`
}

// writeError maps service errors to status codes and a stable error body.
func writeError(c *gin.Context, err error) {
	resp := errorResponse{StatusCode: http.StatusInternalServerError, Message: "internal error"}
	code := "InternalError"

	var (
		validationErrs validator.ValidationErrors
		expired        *domain.QuoteExpiredError
		badStatus      *domain.InvalidQuoteStatusError
		badTransition  *domain.InvalidTransitionError
		priceChanged   *quote.PriceChangedError
	)
	switch {
	case errors.As(err, &validationErrs):
		resp.StatusCode, resp.Message, code = http.StatusBadRequest, "invalid request", "InvalidInput"
		for _, fe := range validationErrs {
			resp.Errors = append(resp.Errors, errorItem{
				Code:    "InvalidField",
				Field:   fe.Field(),
				Message: fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()),
			})
		}
	case errors.As(err, &priceChanged):
		resp.StatusCode, resp.Message, code = http.StatusConflict, err.Error(), "PriceChanged"
		resp.Validation = priceChanged.Validation
	case errors.As(err, &expired):
		resp.StatusCode, resp.Message, code = http.StatusGone, err.Error(), "QuoteExpired"
		resp.CartID = expired.CartID
		resp.ValidUntil = expired.ValidUntil.UTC().Format(time.RFC3339)
	case errors.As(err, &badStatus):
		resp.StatusCode, resp.Message, code = http.StatusBadRequest, err.Error(), "InvalidQuoteStatus"
	case errors.As(err, &badTransition):
		resp.StatusCode, resp.Message, code = http.StatusBadRequest, err.Error(), "InvalidTransition"
	case errors.Is(err, domain.ErrInvalidInput):
		resp.StatusCode, resp.Message, code = http.StatusBadRequest, err.Error(), "InvalidInput"
	case errors.Is(err, domain.ErrNotFound):
		resp.StatusCode, resp.Message, code = http.StatusNotFound, err.Error(), "ResourceNotFound"
	case errors.Is(err, domain.ErrConflict):
		resp.StatusCode, resp.Message, code = http.StatusConflict, err.Error(), "Conflict"
	case errors.Is(err, idempotency.ErrInProgress):
		resp.StatusCode, resp.Message, code = http.StatusConflict, err.Error(), "RequestInProgress"
	case errors.Is(err, lock.ErrNotAcquired):
		resp.StatusCode, resp.Message, code = http.StatusConflict, "cart is busy, retry", "Busy"
	}
	if len(resp.Errors) == 0 {
		resp.Errors = []errorItem{{Code: code, Message: resp.Message}}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed", zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(resp.StatusCode, resp)
}
