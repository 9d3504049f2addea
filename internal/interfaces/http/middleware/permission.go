package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for capability middleware
type PermissionConfig struct {
	Logger *zap.Logger
	// OnDenied is called when the capability check fails (optional)
	OnDenied func(c *gin.Context, required []auth.Capability)
}

// RequireCapability creates middleware that requires the caller's role to
// grant the capability
func RequireCapability(capability auth.Capability) gin.HandlerFunc {
	return RequireAnyCapabilityWithConfig(PermissionConfig{}, capability)
}

// RequireAnyCapability creates middleware that requires any of the listed capabilities
func RequireAnyCapability(capabilities ...auth.Capability) gin.HandlerFunc {
	return RequireAnyCapabilityWithConfig(PermissionConfig{}, capabilities...)
}

// RequireAnyCapabilityWithConfig creates middleware that requires any of the
// listed capabilities with custom config
func RequireAnyCapabilityWithConfig(cfg PermissionConfig, capabilities ...auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			handlePermissionDenied(c, cfg, capabilities, "No authentication claims found")
			return
		}

		for _, capability := range capabilities {
			if claims.Can(capability) {
				if cfg.Logger != nil {
					cfg.Logger.Debug("Capability check passed",
						zap.String("role", string(claims.Role)),
						zap.String("capability", string(capability)),
					)
				}
				c.Next()
				return
			}
		}

		handlePermissionDenied(c, cfg, capabilities, "Role lacks required capability")
	}
}

// HasCapability reports whether the authenticated caller holds the capability
func HasCapability(c *gin.Context, capability auth.Capability) bool {
	claims := GetJWTClaims(c)
	if claims == nil {
		return false
	}
	return claims.Can(capability)
}

func handlePermissionDenied(c *gin.Context, cfg PermissionConfig, required []auth.Capability, reason string) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, required)
		c.Abort()
		return
	}

	if cfg.Logger != nil {
		requiredNames := make([]string, 0, len(required))
		for _, r := range required {
			requiredNames = append(requiredNames, string(r))
		}
		cfg.Logger.Warn("Permission denied",
			zap.String("reason", reason),
			zap.String("role", string(GetRole(c))),
			zap.Strings("required_capabilities", requiredNames),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	c.AbortWithStatusJSON(http.StatusForbidden, dto.Fail(
		dto.ErrCodeForbidden,
		"Access denied: insufficient permissions",
		c.GetString("request_id"),
	))
}
