package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/facturo/facturo/internal/config"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/logger"
	"github.com/facturo/facturo/internal/types"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sqlx.DB to provide transaction management
type DB struct {
	*sqlx.DB
	driver types.DatabaseDriver
	logger *logger.Logger
}

// Querier interface defines all database operations
// Both *sqlx.DB and *sqlx.Tx implement these methods
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	Rebind(query string) string
	BindNamed(query string, arg interface{}) (string, []interface{}, error)
}

// NewDB opens the configured driver. postgres uses lib/pq, pgx uses the
// pgx stdlib adapter and sqlite3 is meant for local runs and tests.
func NewDB(cfg *config.Configuration, logger *logger.Logger) (*DB, error) {
	driver := cfg.Postgres.Driver
	if driver == "" {
		driver = types.DatabaseDriverPostgres
	}

	db, err := sqlx.Connect(string(driver), cfg.Postgres.GetDSN())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to the database").
			WithReportableDetails(map[string]any{"driver": driver}).
			Mark(ierr.ErrDatabase)
	}

	if driver == types.DatabaseDriverSQLite {
		// sqlite serialises writers; one connection keeps an in-memory
		// database alive and shared
		db.SetMaxOpenConns(1)
	} else {
		if cfg.Postgres.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		}
		if cfg.Postgres.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		}
		if cfg.Postgres.ConnMaxLifetimeMinutes > 0 {
			db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)
		}
	}

	wrapped := &DB{DB: db, driver: driver, logger: logger}

	if cfg.Postgres.AutoMigrate {
		if err := wrapped.EnsureSchema(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	logger.Infow("connected to database", "driver", driver)
	return wrapped, nil
}

// Driver returns the driver the pool was opened with
func (db *DB) Driver() types.DatabaseDriver {
	return db.driver
}

// Close closes the database connection
func (db *DB) Close() error {
	if err := db.DB.Close(); err != nil {
		db.logger.Errorw("error closing database", "error", err)
		return err
	}
	return nil
}

// GetQuerier returns either the transaction from context or the base DB
func (db *DB) GetQuerier(ctx context.Context) Querier {
	if tx, ok := GetTx(ctx); ok {
		return NewTracedQuerier(tx.Tx, db.logger, tx.ID)
	}
	return NewTracedQuerier(db.DB, db.logger, "")
}
