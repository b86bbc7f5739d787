package config

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mstgnz/gobuckaroo/infra/logger"
)

// ErrConfigNotFound is returned when no configuration is stored for a tenant and provider
var ErrConfigNotFound = errors.New("config: no configuration found")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type storageQueries struct {
	upsert            string
	load              string
	loadAll           string
	remove            string
	tenantsByProvider string
}

// SQLStorage keeps tenant gateway configurations as JSON rows in tenant_configs
type SQLStorage struct {
	db      *sql.DB
	driver  string
	queries storageQueries
	mu      sync.Mutex
}

// NewSQLStorage wraps an open database. The schema must already exist.
func NewSQLStorage(db *sql.DB, driver string) (*SQLStorage, error) {
	var queries storageQueries
	switch driver {
	case DriverSQLite:
		queries = sqliteQueries
	case DriverPostgres:
		queries = postgresQueries
	default:
		return nil, fmt.Errorf("config: unsupported storage driver %q", driver)
	}
	return &SQLStorage{db: db, driver: driver, queries: queries}, nil
}

// tenantKey is the in-memory key for a tenant's provider configuration
func tenantKey(tenantID, providerName string) string {
	return strings.ToUpper(tenantID) + "_" + strings.ToLower(providerName)
}

// SaveTenantConfig inserts or replaces a tenant configuration
func (s *SQLStorage) SaveTenantConfig(tenantID, providerName string, config map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if _, err := s.db.Exec(s.queries.upsert, strings.ToUpper(tenantID), strings.ToLower(providerName), string(configJSON)); err != nil {
		return fmt.Errorf("failed to save tenant config: %w", err)
	}

	logger.Info("Saved tenant config", logger.LogContext{TenantID: tenantID, Provider: providerName})
	return nil
}

// LoadTenantConfig loads one tenant configuration
func (s *SQLStorage) LoadTenantConfig(tenantID, providerName string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var configJSON string
	err := s.db.QueryRow(s.queries.load, strings.ToUpper(tenantID), strings.ToLower(providerName)).Scan(&configJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w for tenant: %s, provider: %s", ErrConfigNotFound, tenantID, providerName)
		}
		return nil, fmt.Errorf("failed to load tenant config: %w", err)
	}

	var config map[string]string
	if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// LoadAllTenantConfigs loads every stored configuration keyed by tenant and provider.
// Rows that do not decode are skipped.
func (s *SQLStorage) LoadAllTenantConfigs() (map[string]map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(s.queries.loadAll)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant configs: %w", err)
	}
	defer rows.Close()

	configs := make(map[string]map[string]string)
	for rows.Next() {
		var tenantID, providerName, configJSON string
		if err := rows.Scan(&tenantID, &providerName, &configJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var config map[string]string
		if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
			logger.Warn("Skipping undecodable tenant config", logger.LogContext{
				TenantID: tenantID,
				Provider: providerName,
				Fields:   map[string]any{"error": err.Error()},
			})
			continue
		}

		configs[tenantKey(tenantID, providerName)] = config
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return configs, nil
}

// DeleteTenantConfig removes a tenant configuration
func (s *SQLStorage) DeleteTenantConfig(tenantID, providerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(s.queries.remove, strings.ToUpper(tenantID), strings.ToLower(providerName))
	if err != nil {
		return fmt.Errorf("failed to delete tenant config: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w for tenant: %s, provider: %s", ErrConfigNotFound, tenantID, providerName)
	}

	return nil
}

// GetTenantsByProvider returns the tenants that have a configuration for a provider
func (s *SQLStorage) GetTenantsByProvider(providerName string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(s.queries.tenantsByProvider, strings.ToLower(providerName))
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants by provider: %w", err)
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var tenantID string
		if err := rows.Scan(&tenantID); err != nil {
			return nil, fmt.Errorf("failed to scan tenant ID: %w", err)
		}
		tenants = append(tenants, tenantID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenant rows: %w", err)
	}

	return tenants, nil
}

// Ping checks the database connection
func (s *SQLStorage) Ping() error {
	return s.db.Ping()
}

// Driver returns the storage driver name
func (s *SQLStorage) Driver() string {
	return s.driver
}

// DB returns the underlying connection pool
func (s *SQLStorage) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
