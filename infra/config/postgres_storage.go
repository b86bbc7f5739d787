package config

import (
	"context"
	"fmt"

	"github.com/mstgnz/gobuckaroo/infra/conn"
)

var postgresQueries = storageQueries{
	upsert: `
		INSERT INTO tenant_configs (tenant_id, provider_name, config_data, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (tenant_id, provider_name)
		DO UPDATE SET config_data = EXCLUDED.config_data, updated_at = CURRENT_TIMESTAMP`,
	load: `
		SELECT config_data FROM tenant_configs
		WHERE tenant_id = $1 AND provider_name = $2`,
	loadAll: `
		SELECT tenant_id, provider_name, config_data FROM tenant_configs
		ORDER BY tenant_id, provider_name`,
	remove: `
		DELETE FROM tenant_configs
		WHERE tenant_id = $1 AND provider_name = $2`,
	tenantsByProvider: `
		SELECT DISTINCT tenant_id FROM tenant_configs
		WHERE provider_name = $1
		ORDER BY tenant_id`,
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS tenant_configs (
		id SERIAL PRIMARY KEY,
		tenant_id VARCHAR(64) NOT NULL,
		provider_name VARCHAR(64) NOT NULL,
		config_data TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (tenant_id, provider_name)
	)
`

// NewPostgresStorage connects to PostgreSQL and makes sure tenant_configs exists
func NewPostgresStorage(ctx context.Context, dbURL string) (*SQLStorage, error) {
	db, err := conn.Open(ctx, conn.DriverPostgres, dbURL)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return NewSQLStorage(db.DB, DriverPostgres)
}
