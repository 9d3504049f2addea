package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "telemetry:query_start"

// DBObserverConfig selects which database signals are produced
type DBObserverConfig struct {
	// Tracing registers otelgorm so each statement becomes a client span.
	Tracing bool
	// Meter receives query and pool instruments. Nil disables metrics.
	Meter metric.Meter
	// TracerProvider overrides the global provider for otelgorm spans.
	TracerProvider trace.TracerProvider
	DBName         string
	// SlowQueryThreshold marks statements for the slow query counter, a
	// span event and a warning log. 200ms when zero.
	SlowQueryThreshold time.Duration
}

// DBObserver is a GORM plugin that times every statement. It records
// query metrics, flags slow statements and reports connection pool usage.
type DBObserver struct {
	cfg    DBObserverConfig
	logger *zap.Logger

	queries     *Counter
	duration    *Histogram
	slowQueries *Counter
	pool        metric.Registration
}

// NewDBObserver builds the plugin; install it with db.Use.
func NewDBObserver(cfg DBObserverConfig, logger *zap.Logger) (*DBObserver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.DBName == "" {
		cfg.DBName = "postgres"
	}
	o := &DBObserver{cfg: cfg, logger: logger.Named("db")}
	if cfg.Meter == nil {
		return o, nil
	}

	var err error
	if o.queries, err = NewCounter(cfg.Meter, "db_query_total",
		"Database statements by operation and outcome", "{query}"); err != nil {
		return nil, err
	}
	if o.duration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if o.slowQueries, err = NewCounter(cfg.Meter, "db_slow_query_total",
		"Database statements slower than the configured threshold", "{query}"); err != nil {
		return nil, err
	}
	return o, nil
}

// Name implements gorm.Plugin
func (o *DBObserver) Name() string {
	return "storefront:db_observer"
}

// Initialize implements gorm.Plugin. The timing callbacks are registered
// ahead of otelgorm so the slow query event lands on a still-open span.
func (o *DBObserver) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	type hook func(string, func(*gorm.DB)) error
	processors := []struct {
		name          string
		operation     string
		before, after hook
	}{
		{"create", "INSERT", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", "SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", "UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", "DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", "", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", "", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, p := range processors {
		operation := p.operation
		if err := p.before(o.Name()+":before_"+p.name, o.start); err != nil {
			return err
		}
		if err := p.after(o.Name()+":after_"+p.name, func(tx *gorm.DB) { o.finish(tx, operation) }); err != nil {
			return err
		}
	}

	if o.cfg.Tracing {
		opts := []otelgorm.Option{
			otelgorm.WithDBName(o.cfg.DBName),
			otelgorm.WithoutQueryVariables(),
		}
		if o.cfg.TracerProvider != nil {
			opts = append(opts, otelgorm.WithTracerProvider(o.cfg.TracerProvider))
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return fmt.Errorf("failed to register otelgorm: %w", err)
		}
	}

	if o.cfg.Meter != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := o.observePool(sqlDB); err != nil {
			return err
		}
	}

	o.logger.Info("Database observer installed",
		zap.Bool("tracing", o.cfg.Tracing),
		zap.Bool("metrics", o.cfg.Meter != nil),
		zap.Duration("slow_query_threshold", o.cfg.SlowQueryThreshold),
	)
	return nil
}

func (o *DBObserver) start(tx *gorm.DB) {
	tx.InstanceSet(queryStartKey, time.Now())
}

func (o *DBObserver) finish(tx *gorm.DB, operation string) {
	v, ok := tx.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	elapsed := time.Since(v.(time.Time))

	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if operation == "" {
		operation = statementOperation(tx.Statement.SQL.String())
	}
	table := tx.Statement.Table
	if table == "" {
		table = "unknown"
	}
	outcome := "ok"
	if tx.Error != nil && tx.Error != gorm.ErrRecordNotFound {
		outcome = "error"
	}

	if o.queries != nil {
		op := AttrDBOperation.String(operation)
		o.queries.Inc(ctx, op, attribute.String("outcome", outcome))
		o.duration.RecordDuration(ctx, elapsed, op)
	}

	if elapsed < o.cfg.SlowQueryThreshold {
		return
	}
	if o.slowQueries != nil {
		o.slowQueries.Inc(ctx, AttrDBTable.String(table))
	}
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("slow_query", trace.WithAttributes(
			AttrDBTable.String(table),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		))
		if outcome == "error" {
			span.SetStatus(codes.Error, tx.Error.Error())
		}
	}
	o.logger.Warn("Slow query",
		zap.String("operation", operation),
		zap.String("table", table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", tx.Statement.RowsAffected),
	)
}

func (o *DBObserver) observePool(sqlDB *sql.DB) error {
	open, err := o.cfg.Meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxConns, err := o.cfg.Meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	waits, err := o.cfg.Meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connection requests that had to wait"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return err
	}

	o.pool, err = o.cfg.Meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		stats := sqlDB.Stats()
		obs.ObserveInt64(open, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		obs.ObserveInt64(open, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		obs.ObserveInt64(maxConns, int64(stats.MaxOpenConnections))
		obs.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, open, maxConns, waits)
	return err
}

// Stop unregisters the pool callback
func (o *DBObserver) Stop() {
	if o.pool == nil {
		return
	}
	if err := o.pool.Unregister(); err != nil {
		o.logger.Warn("Failed to unregister pool metrics", zap.Error(err))
	}
	o.pool = nil
}

func statementOperation(sql string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(sql), " ")
	switch verb = strings.ToUpper(verb); verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH":
		return verb
	case "":
		return "UNKNOWN"
	default:
		return "OTHER"
	}
}
