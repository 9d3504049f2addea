package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development secret. Production refuses to start with it.
const DefaultJWTSecret = "dev-only-secret-change-me-0123456789abcdef"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Checkout  CheckoutConfig
	Sweep     SweepConfig
	Payment   PaymentConfig
	Pricing   PricingConfig
	Archive   ArchiveConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds session token settings
type JWTConfig struct {
	Secret          string
	Issuer          string
	StaffExpiration time.Duration // lifetime of tokens minted by cmd/token
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// CheckoutConfig holds reservation and session lifetimes
type CheckoutConfig struct {
	ReservationTTL time.Duration // how long stock is held awaiting payment
	SessionTTL     time.Duration // how long an anonymous shopping session lives
}

// SweepConfig holds the expiry sweep settings
type SweepConfig struct {
	Enabled          bool
	Interval         time.Duration
	BatchSize        int
	SessionBatchSize int
	Timeout          time.Duration
}

// PaymentConfig holds payment provider and webhook settings
type PaymentConfig struct {
	Provider        string // hmac or stripe
	PublicKey       string // returned to clients as pub_key
	WebhookSecret   string
	SignatureHeader string // hmac provider only
	Tolerance       time.Duration
	IdempotencyTTL  time.Duration
	MaxPayloadBytes int64
}

// PricingConfig holds the rate card. Country keys are ISO 3166-1 alpha-2 or
// "*"; amounts are decimal strings.
type PricingConfig struct {
	Currencies       []string                     `mapstructure:"currencies"`
	Shipping         map[string]map[string]string `mapstructure:"shipping"`
	FreeShippingOver map[string]string            `mapstructure:"free_shipping_over"`
	TaxRates         map[string]string            `mapstructure:"tax_rates"`
	DefaultTaxRate   string                       `mapstructure:"default_tax_rate"`
	TaxShipping      bool                         `mapstructure:"tax_shipping"`
}

// ArchiveConfig holds the S3 webhook audit archive settings
type ArchiveConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string // custom endpoint for MinIO or other S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	Timeout         time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	LogsLevel         string
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	// Continuous profiling
	ProfilingEnabled bool
	PyroscopeAddress string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHOP_ prefix (e.g., SHOP_PAYMENT_WEBHOOK_SECRET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return loadFrom(v)
}

// loadFrom builds the config from an initialised viper instance
func loadFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("SHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("jwt.secret"),
			Issuer:          v.GetString("jwt.issuer"),
			StaffExpiration: v.GetDuration("jwt.staff_expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			RateLimitBurst:    v.GetInt("http.rate_limit_burst"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Checkout: CheckoutConfig{
			ReservationTTL: v.GetDuration("checkout.reservation_ttl"),
			SessionTTL:     v.GetDuration("checkout.session_ttl"),
		},
		Sweep: SweepConfig{
			Enabled:          !v.IsSet("sweep.enabled") || v.GetBool("sweep.enabled"),
			Interval:         v.GetDuration("sweep.interval"),
			BatchSize:        v.GetInt("sweep.batch_size"),
			SessionBatchSize: v.GetInt("sweep.session_batch_size"),
			Timeout:          v.GetDuration("sweep.timeout"),
		},
		Payment: PaymentConfig{
			Provider:        v.GetString("payment.provider"),
			PublicKey:       v.GetString("payment.public_key"),
			WebhookSecret:   v.GetString("payment.webhook_secret"),
			SignatureHeader: v.GetString("payment.signature_header"),
			Tolerance:       v.GetDuration("payment.tolerance"),
			IdempotencyTTL:  v.GetDuration("payment.idempotency_ttl"),
			MaxPayloadBytes: v.GetInt64("payment.max_payload_bytes"),
		},
		Archive: ArchiveConfig{
			Enabled:         v.GetBool("archive.enabled"),
			Bucket:          v.GetString("archive.bucket"),
			Region:          v.GetString("archive.region"),
			Endpoint:        v.GetString("archive.endpoint"),
			AccessKeyID:     v.GetString("archive.access_key_id"),
			SecretAccessKey: v.GetString("archive.secret_access_key"),
			UsePathStyle:    v.GetBool("archive.use_path_style"),
			Timeout:         v.GetDuration("archive.timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			LogsLevel:         v.GetString("telemetry.logs_level"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeAddress:  v.GetString("telemetry.pyroscope_address"),
		},
	}

	if err := v.UnmarshalKey("pricing", &cfg.Pricing); err != nil {
		return nil, fmt.Errorf("error reading pricing config: %w", err)
	}
	if env := v.GetString("pricing.currencies"); env != "" && len(cfg.Pricing.Currencies) == 0 {
		cfg.Pricing.Currencies = strings.Split(env, ",")
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "storefront"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = DefaultJWTSecret
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "storefront-backend"
	}
	if cfg.JWT.StaffExpiration == 0 {
		cfg.JWT.StaffExpiration = 12 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = 20
	}
	// NOTE: CORS origins have no wildcard default. An empty list allows no
	// cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Checkout.ReservationTTL == 0 {
		cfg.Checkout.ReservationTTL = 15 * time.Minute
	}
	if cfg.Checkout.SessionTTL == 0 {
		cfg.Checkout.SessionTTL = 72 * time.Hour
	}
	if cfg.Sweep.Interval == 0 {
		cfg.Sweep.Interval = time.Minute
	}
	if cfg.Sweep.BatchSize == 0 {
		cfg.Sweep.BatchSize = 500
	}
	if cfg.Sweep.SessionBatchSize == 0 {
		cfg.Sweep.SessionBatchSize = 500
	}
	if cfg.Sweep.Timeout == 0 {
		cfg.Sweep.Timeout = 30 * time.Second
	}
	if cfg.Payment.Provider == "" {
		cfg.Payment.Provider = "hmac"
	}
	if cfg.Payment.Tolerance == 0 {
		cfg.Payment.Tolerance = 5 * time.Minute
	}
	if cfg.Payment.IdempotencyTTL == 0 {
		cfg.Payment.IdempotencyTTL = 72 * time.Hour
	}
	if cfg.Payment.MaxPayloadBytes == 0 {
		cfg.Payment.MaxPayloadBytes = 65536
	}
	if len(cfg.Pricing.Currencies) == 0 {
		cfg.Pricing.Currencies = []string{"GBP", "EUR", "USD"}
	}
	if len(cfg.Pricing.Shipping) == 0 {
		cfg.Pricing.Shipping = map[string]map[string]string{
			"*": {"GBP": "4.99", "EUR": "5.99", "USD": "6.99"},
		}
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "us-east-1"
	}
	if cfg.Archive.Timeout == 0 {
		cfg.Archive.Timeout = 5 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "storefront-backend"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.LogsLevel == "" {
		cfg.Telemetry.LogsLevel = "info"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.PyroscopeAddress == "" {
		cfg.Telemetry.PyroscopeAddress = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Checkout.ReservationTTL < time.Minute {
		return fmt.Errorf("checkout.reservation_ttl must be at least 1m, got %s", c.Checkout.ReservationTTL)
	}
	if c.Checkout.SessionTTL < c.Checkout.ReservationTTL {
		return fmt.Errorf("checkout.session_ttl (%s) cannot be shorter than checkout.reservation_ttl (%s)",
			c.Checkout.SessionTTL, c.Checkout.ReservationTTL)
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval must be positive")
	}

	switch c.Payment.Provider {
	case "hmac", "stripe":
	default:
		return fmt.Errorf("payment.provider must be one of hmac, stripe; got %q", c.Payment.Provider)
	}
	if c.Payment.MaxPayloadBytes <= 0 {
		return fmt.Errorf("payment.max_payload_bytes must be positive")
	}

	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archive.enabled is true")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.JWT.Secret == DefaultJWTSecret {
			return fmt.Errorf("jwt.secret must be changed from the development default in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Payment.WebhookSecret == "" {
			return fmt.Errorf("payment.webhook_secret is required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
