package httpserver

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"quote-commerce/internal/domain"
	"quote-commerce/internal/logger"
	"quote-commerce/internal/metrics"
	"quote-commerce/internal/notify"
	"quote-commerce/internal/service/cart"
	"quote-commerce/internal/service/payment"
	"quote-commerce/internal/service/pricelist"
	"quote-commerce/internal/service/pricing"
	"quote-commerce/internal/service/product"
	"quote-commerce/internal/service/quote"
)

// Pinger reports database reachability for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type OrganizationStore interface {
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	Create(ctx context.Context, org *domain.Organization) (*domain.Organization, error)
	List(ctx context.Context) ([]domain.Organization, error)
}

type CartService interface {
	Create(ctx context.Context, organizationID string, in cart.CreateInput) (*domain.Cart, error)
	Get(ctx context.Context, organizationID, id string) (*domain.Cart, error)
	ReplaceItems(ctx context.Context, organizationID, cartID string, items []pricing.ItemRequest) (*domain.Cart, error)
	AddItem(ctx context.Context, organizationID, cartID string, in cart.AddItemInput) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, organizationID, cartID, itemID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, organizationID, cartID, itemID string) (*domain.Cart, error)
	UpdateCustomization(ctx context.Context, organizationID, cartID string, fields map[string]interface{}) (*domain.Cart, error)
	Changelog(ctx context.Context, organizationID, cartID string) ([]domain.CartChange, error)
	PriceListProgress(ctx context.Context, organizationID, cartID string) ([]pricing.PriceListProgress, error)
}

type QuoteService interface {
	ValidateCartPrices(ctx context.Context, organizationID, cartID string) (*quote.PriceValidationResult, error)
	ApprovePriceChange(ctx context.Context, organizationID, cartID string) (*domain.Cart, *quote.PriceValidationResult, error)
	ActivateQuote(ctx context.Context, organizationID, cartID string) (*domain.Cart, error)
	MarkExpired(ctx context.Context, organizationID, cartID string) (*domain.Cart, bool, error)
	CancelQuote(ctx context.Context, organizationID, cartID string) (*domain.Cart, error)
}

type ProductService interface {
	List(ctx context.Context, organizationID string) ([]domain.Product, error)
	Get(ctx context.Context, organizationID, id string) (*domain.Product, error)
	Create(ctx context.Context, organizationID string, in product.CreateInput) (*domain.Product, error)
	SetPrice(ctx context.Context, organizationID, productID string, in product.PriceInput) (*domain.ProductPrice, error)
}

type PriceListService interface {
	List(ctx context.Context, organizationID string, status domain.PriceListStatus) ([]domain.PriceList, error)
	Get(ctx context.Context, organizationID, id string) (*domain.PriceList, error)
	Create(ctx context.Context, organizationID string, in pricelist.CreateInput) (*domain.PriceList, error)
	Update(ctx context.Context, organizationID, id string, in pricelist.UpdateInput) (*domain.PriceList, error)
	Delete(ctx context.Context, organizationID, id string) error
	AddCondition(ctx context.Context, organizationID, priceListID string, cond domain.PriceListCondition) (*domain.PriceListCondition, error)
	DeleteCondition(ctx context.Context, organizationID, priceListID, conditionID string) error
}

type PaymentService interface {
	Create(ctx context.Context, organizationID, idempotencyKey string, in payment.CreateInput) (*domain.Payment, bool, error)
	Get(ctx context.Context, organizationID, id string) (*domain.Payment, error)
	ListByCart(ctx context.Context, organizationID, cartID string) ([]domain.Payment, error)
	UploadProof(ctx context.Context, organizationID, paymentID, filename, contentType string, size int64, body io.Reader) (*domain.Payment, error)
	Confirm(ctx context.Context, organizationID, paymentID string, in payment.ConfirmInput) (*domain.Payment, error)
	Fail(ctx context.Context, organizationID, paymentID, reason string) (*domain.Payment, error)
	Cancel(ctx context.Context, organizationID, paymentID string) (*domain.Payment, error)
	Refund(ctx context.Context, organizationID, paymentID string) (*domain.Payment, error)
	Retry(ctx context.Context, organizationID, paymentID string) (*domain.Payment, error)
}

// Deps are the collaborators the router serves. Nil services leave their routes unregistered.
type Deps struct {
	Logger           *zap.Logger
	DB               Pinger
	Metrics          *metrics.Metrics
	CORSAllowOrigins []string
	Organizations    OrganizationStore
	Carts            CartService
	Quotes           QuoteService
	Products         ProductService
	PriceLists       PriceListService
	Payments         PaymentService
	Events           notify.Subscriber
	// EventHeartbeat is the keep-alive interval of the cart event stream.
	EventHeartbeat time.Duration
}

func (d Deps) logger() *zap.Logger {
	return logger.OrNop(d.Logger)
}

// buildRouter wires routes for the API.
func buildRouter(deps Deps) *gin.Engine {
	log := deps.logger()
	router := gin.New()
	router.Use(logger.Recovery(log), logger.GinMiddleware(log))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, organizationHeader, "Idempotency-Key", logger.RequestIDHeader)
	corsCfg.ExposeHeaders = []string{logger.RequestIDHeader, "Idempotency-Replayed"}
	if len(deps.CORSAllowOrigins) == 0 || (len(deps.CORSAllowOrigins) == 1 && deps.CORSAllowOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = deps.CORSAllowOrigins
	}
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.DB))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	if deps.Organizations == nil {
		return router
	}
	h := &handlers{deps: deps}

	router.GET("/organizations", h.listOrganizations)
	router.POST("/organizations", h.createOrganization)

	api := router.Group("/", organizationMiddleware(deps.Organizations))

	if deps.Products != nil {
		api.GET("/products", h.listProducts)
		api.POST("/products", h.createProduct)
		api.GET("/products/:id", h.getProduct)
		api.PUT("/products/:id/prices", h.setProductPrice)
	}

	if deps.PriceLists != nil {
		api.GET("/price-lists", h.listPriceLists)
		api.POST("/price-lists", h.createPriceList)
		api.GET("/price-lists/progress", h.priceListProgress)
		api.GET("/price-lists/:id", h.getPriceList)
		api.PATCH("/price-lists/:id", h.updatePriceList)
		api.DELETE("/price-lists/:id", h.deletePriceList)
		api.POST("/price-lists/:id/conditions", h.addCondition)
		api.DELETE("/price-lists/:id/conditions/:conditionId", h.deleteCondition)
	}

	if deps.Carts != nil {
		api.POST("/cart", h.createCart)
		api.GET("/cart/:id", h.getCart)
		api.PUT("/cart/:id", h.replaceCartItems)
		api.POST("/cart/:id/items", h.addCartItem)
		api.PATCH("/cart/:id/items/:itemId", h.updateCartItem)
		api.DELETE("/cart/:id/items/:itemId", h.removeCartItem)
		api.PATCH("/cart/:id/customization", h.updateCustomization)
		api.GET("/cart/:id/changelog", h.cartChangelog)
	}
	if deps.Quotes != nil {
		api.POST("/cart/:id/activate", h.activateQuote)
		api.POST("/cart/:id/cancel", h.cancelQuote)
		api.POST("/cart/:id/expire", h.expireQuote)
		api.GET("/cart/:id/validate-prices", h.validatePrices)
		api.POST("/cart/:id/approve-price-change", h.approvePriceChange)
	}
	if deps.Events != nil {
		api.GET("/cart/:id/events", h.cartEvents)
	}

	if deps.Payments != nil {
		api.POST("/payments", h.createPayment)
		api.GET("/payments/:id", h.getPayment)
		api.POST("/payments/:id/proof", h.uploadProof)
		api.POST("/payments/:id/confirm", h.confirmPayment)
		api.POST("/payments/:id/fail", h.failPayment)
		api.POST("/payments/:id/cancel", h.cancelPayment)
		api.POST("/payments/:id/refund", h.refundPayment)
		api.POST("/payments/:id/retry", h.retryPayment)
		api.GET("/cart/:id/payments", h.listCartPayments)
	}

	router.NoRoute(func(c *gin.Context) {
		writeError(c, domain.ErrNotFound)
	})
	return router
}

type handlers struct {
	deps Deps
}

func (h *handlers) ok(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}
