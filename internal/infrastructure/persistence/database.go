package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/storefront/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// connectTimeout bounds the startup ping
const connectTimeout = 5 * time.Second

// Database is the shared GORM handle every repository is built on
type Database struct {
	DB *gorm.DB
}

// Open connects to PostgreSQL, applies the pool limits from cfg and pings
// the server once. A nil log silences GORM.
func Open(ctx context.Context, cfg *config.DatabaseConfig, log gormlogger.Interface) (*Database, error) {
	db, err := open(postgres.Open(cfg.DSN()), log)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// open builds the handle with the settings every repository relies on.
// TranslateError maps unique violations to gorm.ErrDuplicatedKey.
func open(dialector gorm.Dialector, log gormlogger.Interface) (*Database, error) {
	if log == nil {
		log = gormlogger.Discard
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 log,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Database{DB: db}, nil
}

// PingContext reports whether the server answers within ctx
func (d *Database) PingContext(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
