package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"quote-commerce/internal/domain"
	"quote-commerce/internal/service/cart"
	"quote-commerce/internal/service/payment"
	"quote-commerce/internal/service/product"
	"quote-commerce/internal/service/quote"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubOrgs struct {
	orgs map[string]*domain.Organization
	err  error
}

func (s *stubOrgs) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	if s.err != nil {
		return nil, s.err
	}
	org, ok := s.orgs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return org, nil
}

func (s *stubOrgs) Create(_ context.Context, org *domain.Organization) (*domain.Organization, error) {
	created := &domain.Organization{ID: "org-new", Name: org.Name}
	return created, nil
}

func (s *stubOrgs) List(context.Context) ([]domain.Organization, error) {
	out := []domain.Organization{}
	for _, org := range s.orgs {
		out = append(out, *org)
	}
	return out, nil
}

type stubProducts struct {
	ProductService
	created []product.CreateInput
}

func (s *stubProducts) Create(_ context.Context, orgID string, in product.CreateInput) (*domain.Product, error) {
	s.created = append(s.created, in)
	return &domain.Product{ID: "p1", OrganizationID: orgID, SKU: in.SKU, Name: in.Name}, nil
}

type stubCarts struct {
	CartService
	quantities []int
	err        error
}

func (s *stubCarts) Get(_ context.Context, orgID, id string) (*domain.Cart, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Cart{ID: id, OrganizationID: orgID}, nil
}

func (s *stubCarts) UpdateItemQuantity(_ context.Context, orgID, cartID, _ string, quantity int) (*domain.Cart, error) {
	s.quantities = append(s.quantities, quantity)
	return &domain.Cart{ID: cartID, OrganizationID: orgID}, nil
}

func (s *stubCarts) Create(_ context.Context, orgID string, in cart.CreateInput) (*domain.Cart, error) {
	return &domain.Cart{ID: "c1", OrganizationID: orgID, Currency: in.Currency}, nil
}

type stubQuotes struct {
	QuoteService
	activateErr error
}

func (s *stubQuotes) ActivateQuote(_ context.Context, orgID, cartID string) (*domain.Cart, error) {
	if s.activateErr != nil {
		return nil, s.activateErr
	}
	return &domain.Cart{ID: cartID, OrganizationID: orgID, Status: domain.CartStatusActive}, nil
}

type stubPayments struct {
	PaymentService
	keys      []string
	createErr error
}

func (s *stubPayments) Create(_ context.Context, orgID, key string, in payment.CreateInput) (*domain.Payment, bool, error) {
	if s.createErr != nil {
		return nil, false, s.createErr
	}
	replayed := false
	for _, k := range s.keys {
		if k == key && key != "" {
			replayed = true
		}
	}
	s.keys = append(s.keys, key)
	return &domain.Payment{ID: "pay-1", OrganizationID: orgID, CartID: in.CartID, Status: domain.PaymentStatusPending}, replayed, nil
}

func testDeps() Deps {
	return Deps{
		Organizations: &stubOrgs{orgs: map[string]*domain.Organization{"org-1": {ID: "org-1", Name: "Acme"}}},
		Products:      &stubProducts{},
		Carts:         &stubCarts{},
		Quotes:        &stubQuotes{},
		Payments:      &stubPayments{},
	}
}

func doRequest(t *testing.T, router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return resp
}

var orgHeader = map[string]string{organizationHeader: "org-1"}

func TestHealthz(t *testing.T) {
	router := buildRouter(Deps{})
	rr := doRequest(t, router, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestReadyzWithoutDB(t *testing.T) {
	router := buildRouter(Deps{})
	rr := doRequest(t, router, http.MethodGet, "/readyz", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestReadyzPingFailure(t *testing.T) {
	router := buildRouter(Deps{DB: failingPinger{}})
	rr := doRequest(t, router, http.MethodGet, "/readyz", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestOrganizationMiddleware(t *testing.T) {
	router := buildRouter(testDeps())

	rr := doRequest(t, router, http.MethodGet, "/cart/c1", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing header: expected 400, got %d", rr.Code)
	}

	rr = doRequest(t, router, http.MethodGet, "/cart/c1", "", map[string]string{organizationHeader: "nope"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown org: expected 404, got %d", rr.Code)
	}

	rr = doRequest(t, router, http.MethodGet, "/cart/c1", "", orgHeader)
	if rr.Code != http.StatusOK {
		t.Fatalf("known org: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var got domain.Cart
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if got.OrganizationID != "org-1" {
		t.Fatalf("expected org-1 to reach the service, got %q", got.OrganizationID)
	}
}

func TestOrganizationMiddlewareStoreFailure(t *testing.T) {
	deps := testDeps()
	deps.Organizations = &stubOrgs{err: errors.New("db down")}
	rr := doRequest(t, buildRouter(deps), http.MethodGet, "/cart/c1", "", orgHeader)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestCreateProductValidation(t *testing.T) {
	deps := testDeps()
	products := deps.Products.(*stubProducts)
	router := buildRouter(deps)

	rr := doRequest(t, router, http.MethodPost, "/products", `{"sku":"TS-1"}`, orgHeader)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	resp := decodeError(t, rr)
	if len(resp.Errors) == 0 || resp.Errors[0].Field != "Name" {
		t.Fatalf("expected field error on Name, got %+v", resp.Errors)
	}

	rr = doRequest(t, router, http.MethodPost, "/products", `{"sku":"TS-1","name":"Tee","stock":3}`, orgHeader)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if len(products.created) != 1 || products.created[0].Stock != 3 {
		t.Fatalf("unexpected create calls: %+v", products.created)
	}
}

func TestMalformedJSON(t *testing.T) {
	rr := doRequest(t, buildRouter(testDeps()), http.MethodPost, "/cart", `{"currency":`, orgHeader)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Errors[0].Code != "InvalidInput" {
		t.Fatalf("expected InvalidInput, got %+v", resp.Errors)
	}
}

func TestUpdateCartItemQuantity(t *testing.T) {
	deps := testDeps()
	carts := deps.Carts.(*stubCarts)
	router := buildRouter(deps)

	rr := doRequest(t, router, http.MethodPatch, "/cart/c1/items/i1", `{}`, orgHeader)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing quantity: expected 400, got %d", rr.Code)
	}

	rr = doRequest(t, router, http.MethodPatch, "/cart/c1/items/i1", `{"quantity":0}`, orgHeader)
	if rr.Code != http.StatusOK {
		t.Fatalf("zero quantity: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if len(carts.quantities) != 1 || carts.quantities[0] != 0 {
		t.Fatalf("expected quantity 0 forwarded, got %v", carts.quantities)
	}
}

func TestQuoteErrorMapping(t *testing.T) {
	validUntil := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"expired", &domain.QuoteExpiredError{CartID: "c1", ValidUntil: validUntil}, http.StatusGone, "QuoteExpired"},
		{"bad status", &domain.InvalidQuoteStatusError{CartID: "c1", Current: domain.CartStatusPaid, Expected: []domain.CartStatus{domain.CartStatusDraft}}, http.StatusBadRequest, "InvalidQuoteStatus"},
		{"not found", domain.ErrNotFound, http.StatusNotFound, "ResourceNotFound"},
		{"conflict", domain.Conflict("busy"), http.StatusConflict, "Conflict"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "InternalError"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deps := testDeps()
			deps.Quotes = &stubQuotes{activateErr: tc.err}
			rr := doRequest(t, buildRouter(deps), http.MethodPost, "/cart/c1/activate", "", orgHeader)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rr.Code, rr.Body.String())
			}
			resp := decodeError(t, rr)
			if resp.Errors[0].Code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, resp.Errors[0].Code)
			}
			if tc.status == http.StatusGone && resp.ValidUntil != "2025-03-01T00:00:00Z" {
				t.Fatalf("expected validUntil in body, got %q", resp.ValidUntil)
			}
		})
	}
}

func TestCreatePaymentIdempotency(t *testing.T) {
	router := buildRouter(testDeps())
	body := `{"cartId":"c1","paymentType":"bank_transfer"}`
	headers := map[string]string{organizationHeader: "org-1", idempotencyHeader: "k-1"}

	rr := doRequest(t, router, http.MethodPost, "/payments", body, headers)
	if rr.Code != http.StatusCreated {
		t.Fatalf("first request: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doRequest(t, router, http.MethodPost, "/payments", body, headers)
	if rr.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("expected replay header")
	}
}

func TestCreatePaymentRejectsUnknownType(t *testing.T) {
	rr := doRequest(t, buildRouter(testDeps()), http.MethodPost, "/payments", `{"cartId":"c1","paymentType":"cash"}`, orgHeader)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreatePaymentPriceChanged(t *testing.T) {
	deps := testDeps()
	deps.Payments = &stubPayments{createErr: &quote.PriceChangedError{Validation: &quote.PriceValidationResult{
		CartID:                "c1",
		TotalOldPrice:         decimal.NewFromInt(100),
		TotalNewPrice:         decimal.NewFromInt(110),
		TotalDifference:       decimal.NewFromInt(10),
		TotalPercentageChange: decimal.NewFromInt(10),
		RequiresApproval:      true,
	}}}
	rr := doRequest(t, buildRouter(deps), http.MethodPost, "/payments", `{"cartId":"c1","paymentType":"check"}`, orgHeader)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	resp := decodeError(t, rr)
	if resp.Validation == nil || !resp.Validation.RequiresApproval {
		t.Fatalf("expected validation diff in body, got %s", rr.Body.String())
	}
	if !strings.Contains(resp.Message, "10.00%") {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestUnregisteredRouteIsNotFound(t *testing.T) {
	rr := doRequest(t, buildRouter(testDeps()), http.MethodGet, "/nope", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
