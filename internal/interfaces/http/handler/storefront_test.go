package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	appinventory "github.com/storefront/backend/internal/application/inventory"
	apppayment "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	infrapayment "github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/testutil"
	"github.com/stretchr/testify/require"
)

// storefront wires the real services over an in-memory database
type storefront struct {
	store    *testutil.Store
	signer   *infrapayment.HMACConfig
	sessions *SessionHandler
	cart     *CartHandler
	payment  *PaymentHandler
	orders   *OrderHandler
	skus     *InventoryHandler
}

func newStorefront(t *testing.T) *storefront {
	t.Helper()
	store := testutil.NewStore(t)

	signer := &infrapayment.HMACConfig{Secret: "whsec_test_0123456789abcdef"}
	verifier, err := infrapayment.NewHMACVerifier(signer)
	require.NoError(t, err)

	sessions := appcheckout.NewSessionService(store.Sessions, auth.NewJWTService(testJWTConfig()), time.Hour, nil)
	reservations := appcheckout.NewReservationService(appcheckout.ReservationServiceConfig{
		Scope:          store.Scope,
		Calculator:     testutil.NewTestCalculator(t),
		ReservationTTL: 15 * time.Minute,
	})
	webhooks := apppayment.NewWebhookService(apppayment.WebhookServiceConfig{
		Verifier: verifier,
		Scope:    store.Scope,
	})

	return &storefront{
		store:    store,
		signer:   signer,
		sessions: NewSessionHandler(sessions),
		cart:     NewCartHandler(appcheckout.NewCartService(sessions, store.Carts, store.SKUs)),
		payment:  NewPaymentHandler(reservations, webhooks, "pk_test_storefront", 0),
		orders:   NewOrderHandler(appcheckout.NewOrderService(store.Orders)),
		skus:     NewInventoryHandler(appinventory.NewSKUService(store.Scope, store.SKUs, store.Prices, store.Reservations, nil)),
	}
}

// routes mounts the customer routes behind auth, which sets the caller
func (s *storefront) routes(auth gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.POST("/api/v1/sessions", s.sessions.Start)
	router.POST("/payment", s.payment.Webhook)

	authed := router.Group("", auth)
	authed.GET("/api/v1/cart", s.cart.Get)
	authed.PUT("/api/v1/cart/items", s.cart.PutItem)
	authed.DELETE("/api/v1/cart/items/:sku_id", s.cart.DeleteItem)
	authed.GET("/payment", s.payment.CreatePayment)
	authed.GET("/api/v1/orders", s.orders.List)
	authed.GET("/api/v1/orders/:reference", s.orders.GetByReference)
	authed.POST("/api/v1/inventory/skus", s.skus.CreateSKU)
	authed.GET("/api/v1/inventory/skus", s.skus.ListSKUs)
	authed.GET("/api/v1/inventory/skus/:id", s.skus.GetSKU)
	authed.POST("/api/v1/inventory/skus/:id/restock", s.skus.Restock)
	authed.PUT("/api/v1/inventory/skus/:id/prices", s.skus.SetPrices)
	return router
}

// signedWebhook builds a provider notification for reference signed with the test secret
func (s *storefront) signedWebhook(eventID, eventType, reference, amount string) (string, string) {
	body := fmt.Sprintf(
		`{"id":%q,"type":%q,"created":1773482400,"data":{"reference":%q,"payment_id":"pm_%s","amount":%q,"currency":"gbp"}}`,
		eventID, eventType, reference, eventID, amount)
	return body, "sha256=" + s.signer.Sign([]byte(body))
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret-key-that-is-long-enough", Issuer: "storefront-test"}
}

func serve(router *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonItem(skuID uuid.UUID, qty int64) string {
	return fmt.Sprintf(`{"sku_id":%q,"quantity":%d}`, skuID, qty)
}
