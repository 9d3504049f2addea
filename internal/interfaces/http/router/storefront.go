package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	System    *handler.SystemHandler
	Session   *handler.SessionHandler
	Cart      *handler.CartHandler
	Payment   *handler.PaymentHandler
	Orders    *handler.OrderHandler
	Inventory *handler.InventoryHandler
}

// EngineConfig configures the middleware stack of the storefront API
type EngineConfig struct {
	Logger         *zap.Logger
	Tokens         middleware.TokenValidator
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	TrustedProxies []string
	MaxBodySize    int64
	// RateLimiter is nil when rate limiting is disabled
	RateLimiter *middleware.RateLimiter
	// ServiceName names the server spans; empty disables tracing
	ServiceName string
	// Meter is nil when HTTP metrics are disabled
	Meter     metric.Meter
	Profiling bool
}

// NewEngine builds the gin engine with the global middleware stack and every
// storefront route.
//
// Public routes: GET /health, POST /api/v1/sessions and the provider webhook
// POST /payment. Everything else needs a bearer token, and each route checks
// the capability it needs from the token's role.
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			return nil, err
		}
	}

	// RequestID first: the logger and the tracer read it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SecureWithConfig(cfg.Security))
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	engine.Use(middleware.Tracing(cfg.ServiceName)...)
	httpMetrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, err
	}
	engine.Use(httpMetrics)
	engine.Use(middleware.Profiling(cfg.Profiling))
	if cfg.RateLimiter != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimiter))
	}
	engine.Use(middleware.BodyLimit(cfg.MaxBodySize))

	authenticate := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		Validator: cfg.Tokens,
		Logger:    log,
	})
	authenticated := []gin.HandlerFunc{authenticate, middleware.SpanCaller()}
	permissions := middleware.PermissionConfig{Logger: log}
	require := func(capability auth.Capability) gin.HandlerFunc {
		return middleware.RequireAnyCapabilityWithConfig(permissions, capability)
	}

	engine.GET("/health", h.System.Health)

	// The webhook authenticates by signature, not by bearer token
	payment := engine.Group("/payment")
	payment.POST("", h.Payment.Webhook)
	payment.GET("", append(authenticated, require(auth.CapCheckout), h.Payment.CreatePayment)...)

	r := NewRouter(engine, WithAPIVersion("v1"))

	sessions := NewDomainGroup("sessions", "/sessions")
	sessions.POST("", h.Session.Start)
	r.Register(sessions)

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)
	system.GET("/ping", h.System.Ping)
	r.Register(system)

	cart := NewDomainGroup("cart", "/cart").Use(authenticated...).Use(require(auth.CapCheckout))
	cart.GET("", h.Cart.Get)
	cart.PUT("/items", h.Cart.PutItem)
	cart.DELETE("/items/:sku_id", h.Cart.DeleteItem)
	r.Register(cart)

	orders := NewDomainGroup("orders", "/orders").Use(authenticated...)
	orders.GET("", require(auth.CapOrdersRead), h.Orders.List)
	orders.GET("/:reference", require(auth.CapOrdersRead), h.Orders.GetByReference)
	r.Register(orders)

	inventory := NewDomainGroup("inventory", "/inventory").Use(authenticated...)
	skus := inventory.Group("skus", "/skus")
	skus.GET("", require(auth.CapInventoryRead), h.Inventory.ListSKUs)
	skus.GET("/:id", require(auth.CapInventoryRead), h.Inventory.GetSKU)
	skus.POST("", require(auth.CapInventoryWrite), h.Inventory.CreateSKU)
	skus.POST("/:id/restock", require(auth.CapInventoryWrite), h.Inventory.Restock)
	skus.PUT("/:id/prices", require(auth.CapInventoryWrite), h.Inventory.SetPrices)
	r.Register(inventory)

	r.Setup()
	return engine, nil
}
