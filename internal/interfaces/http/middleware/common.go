package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// MaxRequestIDLength caps a caller-supplied X-Request-ID
const MaxRequestIDLength = 128

// CORSConfig lists the browser origins allowed to call the API. An empty
// AllowOrigins admits no cross-origin caller; "*" admits any.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig allows no origins until configured
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORS applies DefaultCORSConfig
func CORS() gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithConfig answers preflight requests with 204 and decorates simple
// requests from allowed origins. Requests from other origins pass through
// undecorated; the browser enforces the refusal.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(cfg.AllowOrigins))
	wildcard := false
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			wildcard = true
		}
		origins[o] = struct{}{}
	}

	static := http.Header{}
	static.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))
	static.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))
	if len(cfg.ExposeHeaders) > 0 {
		static.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposeHeaders, ", "))
	}
	if cfg.MaxAge > 0 {
		static.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
	}

	allowed := func(origin string) (string, bool) {
		if wildcard {
			return "*", true
		}
		if _, ok := origins[origin]; ok && origin != "" {
			return origin, true
		}
		return "", false
	}

	return func(c *gin.Context) {
		if value, ok := allowed(c.GetHeader("Origin")); ok {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", value)
			h.Add("Vary", "Origin")
			// Browsers reject credentials on a wildcard origin
			if cfg.AllowCredentials && value != "*" {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			for k, v := range static {
				h[k] = v
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID propagates X-Request-ID, minting one when the header is absent
// or longer than MaxRequestIDLength. The id is stored in the gin context,
// echoed in the response and recorded in the request context for loggers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" || len(id) > MaxRequestIDLength {
			id = newRequestID()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)

		ctx, _ := logger.WithRequestID(c.Request.Context(), logger.FromContext(c.Request.Context()), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func newRequestID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return hex.EncodeToString(b[:])
}

// SecurityConfig controls response hardening headers
type SecurityConfig struct {
	// HSTSMaxAge enables Strict-Transport-Security when positive. Only set
	// it behind TLS.
	HSTSMaxAge time.Duration
	// ContentSecurityPolicy is sent verbatim when non-empty
	ContentSecurityPolicy string
}

// DefaultSecurityConfig suits a JSON API that never serves documents
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
	}
}

// Secure applies DefaultSecurityConfig
func Secure() gin.HandlerFunc {
	return SecureWithConfig(DefaultSecurityConfig())
}

// SecureWithConfig sets hardening headers on every response
func SecureWithConfig(cfg SecurityConfig) gin.HandlerFunc {
	headers := http.Header{}
	headers.Set("X-Frame-Options", "DENY")
	headers.Set("X-Content-Type-Options", "nosniff")
	headers.Set("Referrer-Policy", "no-referrer")
	headers.Set("Cache-Control", "no-store")
	if cfg.ContentSecurityPolicy != "" {
		headers.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
	}
	if cfg.HSTSMaxAge > 0 {
		headers.Set("Strict-Transport-Security",
			"max-age="+strconv.Itoa(int(cfg.HSTSMaxAge.Seconds()))+"; includeSubDomains")
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range headers {
			h[k] = v
		}
		c.Next()
	}
}
