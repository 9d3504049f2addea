package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openObservedDB(t *testing.T, cfg telemetry.DBObserverConfig, log *zap.Logger) (*gorm.DB, *telemetry.DBObserver) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&widget{}))

	obs, err := telemetry.NewDBObserver(cfg, log)
	require.NoError(t, err)
	require.NoError(t, db.Use(obs))
	t.Cleanup(obs.Stop)
	return db, obs
}

func TestDBObserver_QueryMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	db, _ := openObservedDB(t, telemetry.DBObserverConfig{
		Meter:              mp.Meter("db"),
		SlowQueryThreshold: time.Hour,
	}, zap.NewNop())

	require.NoError(t, db.Create(&widget{Name: "a"}).Error)
	require.NoError(t, db.Create(&widget{Name: "b"}).Error)
	var got []widget
	require.NoError(t, db.Find(&got).Error)

	metrics := collect(t, reader)
	queries := metrics["db_query_total"]
	ok := attribute.String("outcome", "ok")
	assert.Equal(t, int64(2), sumFor(t, queries, telemetry.AttrDBOperation.String("INSERT"), ok))
	assert.Equal(t, int64(1), sumFor(t, queries, telemetry.AttrDBOperation.String("SELECT"), ok))
	assert.Contains(t, metrics, "db_query_duration_seconds")
	assert.Contains(t, metrics, "db_pool_connections")
	assert.NotContains(t, metrics, "db_slow_query_total")
}

func TestDBObserver_RawStatementsClassified(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	db, _ := openObservedDB(t, telemetry.DBObserverConfig{
		Meter:              mp.Meter("db"),
		SlowQueryThreshold: time.Hour,
	}, zap.NewNop())

	require.NoError(t, db.Exec("UPDATE widgets SET name = ?", "x").Error)
	var n int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM widgets").Scan(&n).Error)

	queries := collect(t, reader)["db_query_total"]
	ok := attribute.String("outcome", "ok")
	assert.Equal(t, int64(1), sumFor(t, queries, telemetry.AttrDBOperation.String("UPDATE"), ok))
	assert.Equal(t, int64(1), sumFor(t, queries, telemetry.AttrDBOperation.String("SELECT"), ok))
}

func TestDBObserver_SlowQuery(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	core, logs := observer.New(zap.WarnLevel)

	db, _ := openObservedDB(t, telemetry.DBObserverConfig{
		Meter:              mp.Meter("db"),
		SlowQueryThreshold: time.Nanosecond,
	}, zap.New(core))

	require.NoError(t, db.Create(&widget{Name: "slow"}).Error)

	slow := collect(t, reader)["db_slow_query_total"]
	assert.Equal(t, int64(1), sumFor(t, slow, telemetry.AttrDBTable.String("widgets")))

	entries := logs.FilterMessage("Slow query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "INSERT", entries[0].ContextMap()["operation"])
}

func TestDBObserver_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	db, _ := openObservedDB(t, telemetry.DBObserverConfig{
		Tracing:        true,
		TracerProvider: tp,
		DBName:         "storefront",
	}, zap.NewNop())

	require.NoError(t, db.WithContext(context.Background()).Create(&widget{Name: "traced"}).Error)
	assert.NotEmpty(t, recorder.Ended())
}

func TestDBObserver_NoMeter(t *testing.T) {
	db, obs := openObservedDB(t, telemetry.DBObserverConfig{}, zap.NewNop())
	require.NoError(t, db.Create(&widget{Name: "plain"}).Error)
	assert.Equal(t, "storefront:db_observer", obs.Name())
	obs.Stop()
}
