package conn

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/mstgnz/gobuckaroo/infra/logger"
)

const DriverPostgres = "postgres"

const (
	connectAttempts = 5
	retryDelay      = 2 * time.Second
	pingTimeout     = 5 * time.Second
)

type DB struct {
	*sql.DB
}

// Open connects to the database, retrying the ping a few times before giving up
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var lastErr error

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		database, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("conn: open %s: %w", driver, err)
		}

		database.SetMaxOpenConns(25)
		database.SetMaxIdleConns(5)
		database.SetConnMaxLifetime(5 * time.Minute)
		database.SetConnMaxIdleTime(2 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = database.PingContext(pingCtx)
		cancel()

		if err == nil {
			logger.Info("Database connected", logger.LogContext{
				Fields: map[string]any{"driver": driver, "attempt": attempt},
			})
			return &DB{DB: database}, nil
		}

		lastErr = err
		database.Close()
		logger.Warn("Database ping failed", logger.LogContext{
			Fields: map[string]any{"driver": driver, "attempt": attempt, "error": err.Error()},
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return nil, fmt.Errorf("conn: failed to connect after %d attempts: %w", connectAttempts, lastErr)
}

// Close closes the connection, logging instead of returning the error
func (db *DB) Close() {
	if err := db.DB.Close(); err != nil {
		logger.Error("Failed to close database connection", err)
		return
	}
	logger.Info("Database connection closed")
}
