package persistence

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	apppayment "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/migration"
	infrapayment "github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresDB starts a disposable Postgres, applies migrations/ and
// returns a pooled gorm handle.
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("storefront_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(16)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, filepath.Join("..", "..", "..", "migrations"), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up())
	st, err := m.Status()
	require.NoError(t, err)
	require.True(t, st.Applied)
	require.False(t, st.Dirty)

	return db
}

func TestPostgres_LastUnitRace(t *testing.T) {
	db := newPostgresDB(t)
	ledger := NewGormStockLedger(db)
	sku := seedSKU(t, db, "TEE-RED-M", 1)

	const buyers = 12
	var (
		wins  atomic.Int32
		short atomic.Int32
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := ledger.Reserve(context.Background(), sku.ID, 1)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, shared.ErrInsufficientStock):
				short.Add(1)
			default:
				t.Errorf("unexpected reserve error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(buyers-1), short.Load())
	assert.Zero(t, availableOf(t, db, sku.ID))
}

func TestPostgres_ConcurrentReserveRelease(t *testing.T) {
	db := newPostgresDB(t)
	ledger := NewGormStockLedger(db)
	sku := seedSKU(t, db, "CAP-BLK-OS", 10)

	var (
		wins atomic.Int64
		wg   sync.WaitGroup
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Reserve(context.Background(), sku.ID, 1); err == nil {
				wins.Add(1)
				if wins.Load()%2 == 0 {
					assert.NoError(t, ledger.Release(context.Background(), sku.ID, 1))
					wins.Add(-1)
				}
			}
		}()
	}
	wg.Wait()

	held := wins.Load()
	assert.LessOrEqual(t, held, int64(10))
	assert.Equal(t, 10-held, availableOf(t, db, sku.ID), "held plus available is conserved")
}

func TestPostgres_BatchRollsBackOnShortSKU(t *testing.T) {
	db := newPostgresDB(t)
	scope := NewGormTransactionScope(db)
	tee := seedSKU(t, db, "TEE-NVY-L", 5)
	hat := seedSKU(t, db, "CAP-NVY-OS", 0)

	err := scope.Execute(context.Background(), func(repos appcheckout.TransactionalRepositories) error {
		if err := repos.Ledger().Reserve(context.Background(), tee.ID, 2); err != nil {
			return err
		}
		return repos.Ledger().Reserve(context.Background(), hat.ID, 1)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.ErrorContains(t, err, "CAP-NVY-OS")

	assert.Equal(t, int64(5), availableOf(t, db, tee.ID), "first hold rolled back")
	assert.Zero(t, availableOf(t, db, hat.ID))
}

type eventTally struct {
	mu     sync.Mutex
	byType map[string]int
}

func (e *eventTally) Publish(_ context.Context, events ...shared.DomainEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.byType == nil {
		e.byType = make(map[string]int)
	}
	for _, ev := range events {
		e.byType[ev.EventType()]++
	}
	return nil
}

func (e *eventTally) count(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.byType[eventType]
}

func TestPostgres_ConcurrentSuccessDeliveries(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()
	scope := NewGormTransactionScope(db)

	card, err := pricing.ParseRateCard(pricing.RateCardSpec{
		Currencies:     []string{"GBP"},
		Shipping:       map[string]map[string]string{"*": {"GBP": "4.99"}},
		DefaultTaxRate: "0",
	})
	require.NoError(t, err)

	tee := seedSKU(t, db, "TEE-GRN-S", 5)
	hat := seedSKU(t, db, "CAP-GRN-OS", 5)
	var prices []catalog.SKUPrice
	for _, id := range []uuid.UUID{tee.ID, hat.ID} {
		p, err := catalog.NewSKUPrice(id, "GBP", decimal.RequireFromString("15.00"))
		require.NoError(t, err)
		prices = append(prices, p)
	}
	require.NoError(t, NewGormPriceRepository(db).Upsert(ctx, prices))

	session := seedSession(t, db, time.Hour, time.Now())
	carts := NewGormCartRepository(db)
	for _, id := range []uuid.UUID{tee.ID, hat.ID} {
		item, err := checkout.NewCartItem(session.ID, id, 2)
		require.NoError(t, err)
		require.NoError(t, carts.Upsert(ctx, item))
	}

	co, err := appcheckout.NewReservationService(appcheckout.ReservationServiceConfig{
		Scope:      scope,
		Calculator: pricing.NewCalculator(card),
	}).PriceAndReserve(ctx, session.ID, "GB", "GBP")
	require.NoError(t, err)

	signer := &infrapayment.HMACConfig{Secret: "whsec_integration_0123456789"}
	verifier, err := infrapayment.NewHMACVerifier(signer)
	require.NoError(t, err)
	idempotency := cache.NewInMemoryIdempotencyStore(time.Hour)
	t.Cleanup(func() { _ = idempotency.Close() })
	events := &eventTally{}
	svc := apppayment.NewWebhookService(apppayment.WebhookServiceConfig{
		Verifier:    verifier,
		Scope:       scope,
		Idempotency: idempotency,
		Publisher:   events,
	})

	const deliveries = 8
	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		outcomes = make([]string, deliveries)
		errs     = make([]error, deliveries)
	)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := []byte(fmt.Sprintf(
				`{"id":"evt_pg_%d","type":"payment.succeeded","data":{"reference":%q,"amount":%q,"currency":"gbp"}}`,
				i, co.Reference, co.Total.StringFixed(2)))
			<-start
			result, err := svc.HandleWebhook(ctx, body, signer.Sign(body))
			errs[i] = err
			if result != nil {
				outcomes[i] = result.Outcome
			}
		}(i)
	}
	close(start)
	wg.Wait()

	confirmed := 0
	for i := range outcomes {
		require.NoError(t, errs[i])
		assert.Contains(t, []string{apppayment.OutcomeConfirmed, apppayment.OutcomeDuplicate}, outcomes[i])
		if outcomes[i] == apppayment.OutcomeConfirmed {
			confirmed++
		}
	}
	assert.Equal(t, 1, confirmed)
	assert.Zero(t, events.count(checkout.EventTypeRefundRequired))
	assert.Equal(t, 1, events.count(checkout.EventTypeOrderConfirmed))

	var orders int64
	require.NoError(t, db.Table("orders").Where("reference = ?", co.Reference).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
	assert.Equal(t, int64(3), availableOf(t, db, tee.ID))
}
