// Package telemetry wires the OpenTelemetry trace, metric and log pipelines,
// Pyroscope profiling and the checkout instruments.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// shutdownTimeout bounds the final flush of each pipeline
const shutdownTimeout = 10 * time.Second

// Exporter is the OTLP collector connection shared by every pipeline
type Exporter struct {
	Endpoint       string // host:port of the collector's gRPC receiver
	Insecure       bool   // plaintext gRPC, development only
	ServiceName    string
	ServiceVersion string
}

func (e Exporter) resource() (*resource.Resource, error) {
	version := e.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(e.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// shutdown flushes one pipeline within shutdownTimeout
func shutdown(ctx context.Context, logger *zap.Logger, pipeline string, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := stop(ctx); err != nil {
		logger.Error("Error shutting down telemetry pipeline", zap.String("pipeline", pipeline), zap.Error(err))
		return fmt.Errorf("failed to shutdown %s pipeline: %w", pipeline, err)
	}
	logger.Info("Telemetry pipeline shut down", zap.String("pipeline", pipeline))
	return nil
}
