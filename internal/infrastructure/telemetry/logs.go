package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogsConfig holds log export configuration
type LogsConfig struct {
	Enabled  bool
	Exporter Exporter
}

// LoggerProvider owns the SDK log provider that zap entries are bridged into
type LoggerProvider struct {
	provider *sdklog.LoggerProvider
	logger   *zap.Logger
	config   LogsConfig
}

// NewLoggerProvider builds the OTLP log pipeline
func NewLoggerProvider(ctx context.Context, cfg LogsConfig, logger *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{logger: logger, config: cfg}
	if !cfg.Enabled {
		logger.Info("Log export disabled")
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Exporter.Endpoint)}
	if cfg.Exporter.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	res, err := cfg.Exporter.resource()
	if err != nil {
		return nil, err
	}

	lp.provider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.provider)

	logger.Info("Log export enabled", zap.String("collector_endpoint", cfg.Exporter.Endpoint))
	return lp, nil
}

// IsEnabled reports whether logs are exported
func (lp *LoggerProvider) IsEnabled() bool {
	return lp.config.Enabled && lp.provider != nil
}

// Shutdown flushes pending records
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp.provider == nil {
		return nil
	}
	return shutdown(ctx, lp.logger, "logs", lp.provider.Shutdown)
}

// Core returns a zap core that forwards entries at or above min to the
// collector. Tee it with the console core; see logger.New. It is a no-op
// core when export is disabled.
func (lp *LoggerProvider) Core(min zapcore.Level) zapcore.Core {
	if !lp.IsEnabled() {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(lp.config.Exporter.ServiceName, otelzap.WithLoggerProvider(lp.provider))
	return &minLevelCore{Core: core, min: min}
}

// minLevelCore drops entries below min. The otelzap core accepts every level.
type minLevelCore struct {
	zapcore.Core
	min zapcore.Level
}

func (c *minLevelCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.min && c.Core.Enabled(lvl)
}

func (c *minLevelCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if entry.Level < c.min {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *minLevelCore) With(fields []zapcore.Field) zapcore.Core {
	return &minLevelCore{Core: c.Core.With(fields), min: c.min}
}
