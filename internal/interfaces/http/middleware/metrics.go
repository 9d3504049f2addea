package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// bodySizeBuckets are in bytes
var bodySizeBuckets = []float64{128, 512, 1 << 10, 4 << 10, 16 << 10, 64 << 10, 256 << 10, 1 << 20}

type httpInstruments struct {
	requests     *telemetry.Counter
	duration     *telemetry.Histogram
	requestSize  *telemetry.Histogram
	responseSize *telemetry.Histogram
	inFlight     metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var (
		in  httpInstruments
		err error
	)
	if in.requests, err = telemetry.NewCounter(meter, "http_server_request_total",
		"HTTP requests served", "{request}"); err != nil {
		return nil, err
	}
	if in.duration, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if in.requestSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "HTTP request body size",
		Unit:        "By",
		Boundaries:  bodySizeBuckets,
	}); err != nil {
		return nil, err
	}
	if in.responseSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size",
		Unit:        "By",
		Boundaries:  bodySizeBuckets,
	}); err != nil {
		return nil, err
	}
	if in.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	return &in, nil
}

// HTTPMetrics records request count, latency, body sizes and in-flight
// requests on meter. Series are keyed by route pattern; unmatched paths
// share the route "unknown". A nil meter disables it.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }, nil
	}
	in, err := newHTTPInstruments(meter)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		in.inFlight.Add(ctx, 1)
		c.Next()
		in.inFlight.Add(ctx, -1)

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		attrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}
		in.requests.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))...)
		in.duration.RecordDuration(ctx, time.Since(start), attrs...)
		if n := c.Request.ContentLength; n > 0 {
			in.requestSize.Record(ctx, float64(n), attrs...)
		}
		if n := c.Writer.Size(); n > 0 {
			in.responseSize.Record(ctx, float64(n), attrs...)
		}
	}, nil
}
