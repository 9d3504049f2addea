package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey    = "jwt_claims"
	JWTSessionIDKey = "session_id"
	JWTRoleKey      = "jwt_role"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
)

// ErrMissingCredentials is reported when the request carries no bearer token
var ErrMissingCredentials = errors.New("missing bearer token")

// TokenValidator validates a bearer token and returns its claims
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	// Validator is required for token validation
	Validator TokenValidator
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that don't require authentication
	SkipPathPrefixes []string
	// Optional callback if token is invalid (default: return 401)
	OnError func(c *gin.Context, err error)
	Logger  *zap.Logger
}

// DefaultJWTConfig returns default JWT middleware configuration
func DefaultJWTConfig(validator TokenValidator) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		Validator: validator,
		SkipPaths: []string{
			"/health",
			"/api/v1/sessions",
		},
	}
}

// JWTAuthMiddleware creates JWT authentication middleware
func JWTAuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(validator))
}

// JWTAuthMiddlewareWithConfig creates JWT authentication middleware with custom config
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			handleAuthError(c, cfg, ErrMissingCredentials, "Missing or malformed authorization header")
			return
		}

		claims, err := cfg.Validator.ValidateToken(tokenString)
		if err != nil {
			handleAuthError(c, cfg, err, "Token validation failed")
			return
		}

		setClaims(c, claims)

		if cfg.Logger != nil {
			cfg.Logger.Debug("JWT authentication successful",
				zap.String("subject", claims.Subject),
				zap.String("role", string(claims.Role)),
			)
		}

		c.Next()
	}
}

// OptionalJWTAuthMiddleware extracts claims when a valid token is present
// and lets the request through otherwise
func OptionalJWTAuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		if claims, err := validator.ValidateToken(tokenString); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
	return token, token != ""
}

// setClaims stores claims in the gin context and enriches the request logger
func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(JWTClaimsKey, claims)
	c.Set(JWTRoleKey, string(claims.Role))

	ctx := c.Request.Context()
	log := logger.FromContext(ctx)
	if claims.SessionID != "" {
		c.Set(JWTSessionIDKey, claims.SessionID)
		ctx, log = logger.WithSessionID(ctx, log, claims.SessionID)
	}
	ctx, _ = logger.WithRole(ctx, log, string(claims.Role))
	c.Request = c.Request.WithContext(ctx)
}

// handleAuthError handles authentication errors
func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error, message string) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		c.Abort()
		return
	}

	if cfg.Logger != nil {
		cfg.Logger.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("message", message),
			zap.String("path", c.Request.URL.Path),
		)
	}

	code := dto.ErrCodeUnauthorized
	msg := "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		code, msg = dto.ErrCodeTokenInvalid, "Token is not yet valid"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingSessionID),
		errors.Is(err, auth.ErrUnknownRole):
		code, msg = dto.ErrCodeTokenInvalid, "Invalid token"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Fail(code, msg, c.GetString("request_id")))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetSessionID returns the shopping session of a customer token
func GetSessionID(c *gin.Context) (uuid.UUID, bool) {
	claims := GetJWTClaims(c)
	if claims == nil || claims.SessionID == "" {
		return uuid.Nil, false
	}
	id, err := claims.SessionUUID()
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetRole returns the role of the authenticated caller
func GetRole(c *gin.Context) auth.Role {
	if claims := GetJWTClaims(c); claims != nil {
		return claims.Role
	}
	return ""
}
