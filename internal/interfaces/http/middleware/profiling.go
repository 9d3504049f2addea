package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

var apiVersionSegment = regexp.MustCompile(`^[vV][0-9]+$`)

// Profiling labels the samples Pyroscope takes while a request is handled
// with its method, route pattern, resource and caller role. Health probes
// are not labeled.
func Profiling(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		telemetry.WithProfilingLabels(c.Request.Context(), profilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context) map[string]string {
	labels := map[string]string{telemetry.ProfilingLabelMethod: c.Request.Method}
	if route := c.FullPath(); route != "" {
		labels[telemetry.ProfilingLabelRoute] = route
		if resource := routeResource(route); resource != "" {
			labels[telemetry.ProfilingLabelOperation] = resource
		}
	}
	if role := GetRole(c); role != "" {
		labels[telemetry.ProfilingLabelRole] = string(role)
	}
	return labels
}

// routeResource is the first segment of route after an optional /api/vN
// prefix, or "" when that segment is a parameter.
// "/api/v1/orders/:reference" gives "orders".
func routeResource(route string) string {
	segs := strings.FieldsFunc(route, func(r rune) bool { return r == '/' })
	if len(segs) >= 2 && segs[0] == "api" && apiVersionSegment.MatchString(segs[1]) {
		segs = segs[2:]
	}
	if len(segs) == 0 || segs[0][0] == ':' || segs[0][0] == '*' {
		return ""
	}
	return segs[0]
}
