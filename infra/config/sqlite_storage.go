package config

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mstgnz/gobuckaroo/infra/logger"
)

var sqliteQueries = storageQueries{
	upsert: `
		INSERT INTO tenant_configs (tenant_id, provider_name, config_data, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (tenant_id, provider_name)
		DO UPDATE SET config_data = excluded.config_data, updated_at = CURRENT_TIMESTAMP`,
	load: `
		SELECT config_data FROM tenant_configs
		WHERE tenant_id = ? AND provider_name = ?`,
	loadAll: `
		SELECT tenant_id, provider_name, config_data FROM tenant_configs
		ORDER BY tenant_id, provider_name`,
	remove: `
		DELETE FROM tenant_configs
		WHERE tenant_id = ? AND provider_name = ?`,
	tenantsByProvider: `
		SELECT DISTINCT tenant_id FROM tenant_configs
		WHERE provider_name = ?
		ORDER BY tenant_id`,
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS tenant_configs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id TEXT NOT NULL,
		provider_name TEXT NOT NULL,
		config_data TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(tenant_id, provider_name)
	);

	CREATE INDEX IF NOT EXISTS idx_tenant_provider ON tenant_configs(tenant_id, provider_name);
`

// NewSQLiteStorage opens (and creates) a SQLite database file for tenant configurations
func NewSQLiteStorage(dbPath string) (*SQLStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// WAL lets replicas read while one of them writes
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_timeout=20000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite config storage initialized", logger.LogContext{
		Fields: map[string]any{"path": dbPath},
	})

	return NewSQLStorage(db, DriverSQLite)
}
