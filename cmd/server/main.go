package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	appinventory "github.com/storefront/backend/internal/application/inventory"
	apppayment "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	infrapayment "github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	lowStockThreshold     = 5
	stockMetricsInterval  = 30 * time.Second
	memoryArchiveCapacity = 1000
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	exporter := telemetry.Exporter{
		Endpoint:       cfg.Telemetry.CollectorEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    serviceName,
		ServiceVersion: version,
	}

	// OpenTelemetry log export: rebuild the logger with an OTEL core teed in
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:  cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		Exporter: exporter,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	if logsProvider.IsEnabled() {
		otelCore := logsProvider.Core(otelLogLevel(cfg.Telemetry.LogsLevel))
		if log, err = logger.New(logCfg, otelCore); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:       cfg.Telemetry.Enabled,
		Exporter:      exporter,
		SamplingRatio: cfg.Telemetry.SamplingRatio,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:        cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		Exporter:       exporter,
		ExportInterval: cfg.Telemetry.MetricsInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: serviceName,
		Tags:            map[string]string{"env": cfg.App.Env, "version": version},
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Exporters flush last, after the server and workers have stopped.
	// Each pipeline bounds its own flush.
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
		shutdownCtx := context.Background()
		_ = meterProvider.Shutdown(shutdownCtx)
		_ = tracerProvider.Shutdown(shutdownCtx)
		_ = logsProvider.Shutdown(shutdownCtx)
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	db, err := persistence.Open(ctx, &cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbObserverCfg := telemetry.DBObserverConfig{
		Tracing:            cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:             cfg.Database.DBName,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}
	if meterProvider.IsEnabled() {
		dbObserverCfg.Meter = meterProvider.Meter("db.client")
	}
	dbObserver, err := telemetry.NewDBObserver(dbObserverCfg, log)
	if err != nil {
		log.Fatal("Failed to create database observer", zap.Error(err))
	}
	if err := db.DB.Use(dbObserver); err != nil {
		log.Warn("Failed to install database observer", zap.Error(err))
	}
	defer dbObserver.Stop()

	// Initialize repositories
	scope := persistence.NewGormTransactionScope(db.DB)
	skuRepo := persistence.NewGormSKUStockRepository(db.DB)
	priceRepo := persistence.NewGormPriceRepository(db.DB)
	sessionRepo := persistence.NewGormSessionRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	reservationRepo := persistence.NewGormReservationRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)

	checkoutMetrics, err := telemetry.NewCheckoutMetrics(telemetry.CheckoutMetricsConfig{
		Meter:             meterProvider.Meter(serviceName),
		Logger:            log,
		StockProvider:     telemetry.NewGormStockMetricsProvider(db.DB),
		LowStockThreshold: lowStockThreshold,
	})
	if err != nil {
		log.Fatal("Failed to create checkout metrics", zap.Error(err))
	}
	if meterProvider.IsEnabled() {
		checkoutMetrics.StartPeriodicCollection(ctx, stockMetricsInterval, lowStockThreshold)
		defer checkoutMetrics.Stop()
	}

	card, err := pricing.ParseRateCard(pricing.RateCardSpec{
		Currencies:       cfg.Pricing.Currencies,
		Shipping:         cfg.Pricing.Shipping,
		FreeShippingOver: cfg.Pricing.FreeShippingOver,
		TaxRates:         cfg.Pricing.TaxRates,
		DefaultTaxRate:   cfg.Pricing.DefaultTaxRate,
		TaxShipping:      cfg.Pricing.TaxShipping,
	})
	if err != nil {
		log.Fatal("Invalid pricing configuration", zap.Error(err))
	}
	calculator := pricing.NewCalculator(card)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)
	checkoutEventHandler := event.NewCheckoutEventHandler(log, checkoutMetrics)
	eventBus.Subscribe(checkoutEventHandler)
	log.Info("Event handlers registered",
		zap.Strings("checkout_events", checkoutEventHandler.EventTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Production refuses a per-process idempotency store when Redis is configured
	idempotency, err := cache.NewIdempotencyStore(ctx, cfg.Redis, cfg.App.Env != "production", log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}

	verifier, err := newVerifier(cfg.Payment)
	if err != nil {
		log.Fatal("Failed to initialize webhook verifier", zap.Error(err))
	}

	archive, err := newArchive(ctx, cfg.Archive, log)
	if err != nil {
		log.Fatal("Failed to initialize webhook archive", zap.Error(err))
	}

	// Initialize application services
	jwtService := auth.NewJWTService(cfg.JWT)
	sessionService := appcheckout.NewSessionService(sessionRepo, jwtService, cfg.Checkout.SessionTTL, log)
	cartService := appcheckout.NewCartService(sessionService, cartRepo, skuRepo)
	orderService := appcheckout.NewOrderService(orderRepo)
	reservationService := appcheckout.NewReservationService(appcheckout.ReservationServiceConfig{
		Scope:          scope,
		Calculator:     calculator,
		ReservationTTL: cfg.Checkout.ReservationTTL,
		Publisher:      eventBus,
		Metrics:        checkoutMetrics,
		Logger:         log,
	})
	webhookService := apppayment.NewWebhookService(apppayment.WebhookServiceConfig{
		Verifier:       verifier,
		Scope:          scope,
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.Payment.IdempotencyTTL,
		Publisher:      eventBus,
		Archive:        archive,
		Metrics:        checkoutMetrics,
		Logger:         log,
	})
	skuService := appinventory.NewSKUService(scope, skuRepo, priceRepo, reservationRepo, log)
	expirationService := appcheckout.NewExpirationService(appcheckout.ExpirationServiceConfig{
		Scope:            scope,
		ReservationRepo:  reservationRepo,
		SessionRepo:      sessionRepo,
		Publisher:        eventBus,
		Metrics:          checkoutMetrics,
		Logger:           log,
		BatchSize:        cfg.Sweep.BatchSize,
		SessionBatchSize: cfg.Sweep.SessionBatchSize,
		SessionGrace:     cfg.Checkout.SessionTTL,
	})

	// Expiry sweep
	sweepConfig := scheduler.DefaultSweepSchedulerConfig()
	sweepConfig.Enabled = cfg.Sweep.Enabled
	if cfg.Sweep.Interval > 0 {
		sweepConfig.Interval = cfg.Sweep.Interval
	}
	if cfg.Sweep.Timeout > 0 {
		sweepConfig.Timeout = cfg.Sweep.Timeout
	}
	sweepScheduler, err := scheduler.NewSweepScheduler(expirationService, sweepConfig, log)
	if err != nil {
		log.Fatal("Failed to create sweep scheduler", zap.Error(err))
	}
	if err := sweepScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start sweep scheduler", zap.Error(err))
	}
	defer func() {
		if err := sweepScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping sweep scheduler", zap.Error(err))
		}
	}()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitBurst)
		limiterCtx, stopLimiter := context.WithCancel(ctx)
		defer stopLimiter()
		go rateLimiter.Run(limiterCtx)
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	security := middleware.DefaultSecurityConfig()
	if cfg.App.Env == "production" {
		security.HSTSMaxAge = 365 * 24 * time.Hour
	}

	var (
		httpServiceName string
		httpMeter       metric.Meter
	)
	if tracerProvider.IsEnabled() {
		httpServiceName = serviceName
	}
	if meterProvider.IsEnabled() {
		httpMeter = meterProvider.Meter("http.server")
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		Tokens:         jwtService,
		CORS:           corsConfig,
		Security:       security,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		RateLimiter:    rateLimiter,
		ServiceName:    httpServiceName,
		Meter:          httpMeter,
		Profiling:      profiler.IsEnabled(),
	}, router.Handlers{
		System:    handler.NewSystemHandler(cfg.App.Name, version, db),
		Session:   handler.NewSessionHandler(sessionService),
		Cart:      handler.NewCartHandler(cartService),
		Payment:   handler.NewPaymentHandler(reservationService, webhookService, cfg.Payment.PublicKey, cfg.Payment.MaxPayloadBytes),
		Orders:    handler.NewOrderHandler(orderService),
		Inventory: handler.NewInventoryHandler(skuService),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// newVerifier builds the webhook signature verifier for the configured provider
func newVerifier(cfg config.PaymentConfig) (payment.Verifier, error) {
	if cfg.Provider == "stripe" {
		return infrapayment.NewStripeVerifier(&infrapayment.StripeConfig{
			WebhookSecret: cfg.WebhookSecret,
			Tolerance:     cfg.Tolerance,
		})
	}
	return infrapayment.NewHMACVerifier(&infrapayment.HMACConfig{
		Secret: cfg.WebhookSecret,
		Header: cfg.SignatureHeader,
	})
}

// newArchive returns the S3 archive when enabled, otherwise a bounded
// in-memory one
func newArchive(ctx context.Context, cfg config.ArchiveConfig, log *zap.Logger) (apppayment.PayloadArchive, error) {
	if !cfg.Enabled {
		return storage.NewMemoryPayloadArchive(memoryArchiveCapacity), nil
	}
	archive, err := storage.NewS3PayloadArchive(ctx, cfg, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	log.Info("Archiving webhook payloads to S3", zap.String("bucket", cfg.Bucket))
	return archive, nil
}

func otelLogLevel(level string) zapcore.Level {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return parsed
}
