package config

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"sync"

	"github.com/mstgnz/gobuckaroo/infra/logger"
)

// DefaultTenant holds the gateway configuration read from BUCKAROO_* variables
const DefaultTenant = "default"

// ConfigStorage persists tenant gateway configurations
type ConfigStorage interface {
	SaveTenantConfig(tenantID, providerName string, config map[string]string) error
	LoadTenantConfig(tenantID, providerName string) (map[string]string, error)
	LoadAllTenantConfigs() (map[string]map[string]string, error)
	DeleteTenantConfig(tenantID, providerName string) error
	GetTenantsByProvider(providerName string) ([]string, error)
	Driver() string
}

// GatewayConfigStore keeps tenant gateway configurations in memory, backed by optional storage
type GatewayConfigStore struct {
	configs map[string]map[string]string
	storage ConfigStorage
	mu      sync.RWMutex
}

// NewGatewayConfigStore creates a store. A nil storage keeps everything in memory.
func NewGatewayConfigStore(storage ConfigStorage) *GatewayConfigStore {
	store := &GatewayConfigStore{
		configs: make(map[string]map[string]string),
		storage: storage,
	}

	if storage != nil {
		if err := store.loadFromStorage(); err != nil {
			logger.Warn("Failed to preload tenant configurations", logger.LogContext{
				Fields: map[string]any{"error": err.Error(), "driver": storage.Driver()},
			})
		}
	}

	return store
}

func (c *GatewayConfigStore) loadFromStorage() error {
	configs, err := c.storage.LoadAllTenantConfigs()
	if err != nil {
		return fmt.Errorf("failed to load configs from storage: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	maps.Copy(c.configs, configs)
	return nil
}

// LoadFromEnv registers the BUCKAROO_* environment configuration for the default tenant.
// It is kept in memory only. Missing keys leave the default tenant unconfigured.
func (c *GatewayConfigStore) LoadFromEnv(app *AppConfig) bool {
	if app == nil || app.BuckarooSecretKey == "" || app.BuckarooWebsiteKey == "" {
		return false
	}

	environment := "test"
	if !app.BuckarooTest {
		environment = "production"
	}

	conf := map[string]string{
		"secretKey":   app.BuckarooSecretKey,
		"websiteKey":  app.BuckarooWebsiteKey,
		"environment": environment,
		"test":        strconv.FormatBool(app.BuckarooTest),
	}
	if app.BuckarooMandatePrefix != "" {
		conf["mandatePrefix"] = app.BuckarooMandatePrefix
	}

	c.mu.Lock()
	c.configs[tenantKey(DefaultTenant, "buckaroo")] = conf
	c.mu.Unlock()

	logger.Info("Loaded gateway configuration from environment", logger.LogContext{
		TenantID: DefaultTenant,
		Provider: "buckaroo",
		Fields:   map[string]any{"environment": environment},
	})
	return true
}

// SetTenantConfig stores the configuration for a tenant and provider
func (c *GatewayConfigStore) SetTenantConfig(tenantID, providerName string, config map[string]string) error {
	if tenantID == "" {
		return errors.New("tenant ID cannot be empty")
	}
	if providerName == "" {
		return errors.New("provider name cannot be empty")
	}
	if len(config) == 0 {
		return errors.New("config cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.storage != nil {
		if err := c.storage.SaveTenantConfig(tenantID, providerName, config); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	c.configs[tenantKey(tenantID, providerName)] = maps.Clone(config)
	return nil
}

// GetTenantConfig returns a copy of the configuration for a tenant and provider
func (c *GatewayConfigStore) GetTenantConfig(tenantID, providerName string) (map[string]string, error) {
	if tenantID == "" {
		return nil, errors.New("tenant ID cannot be empty")
	}

	key := tenantKey(tenantID, providerName)

	c.mu.RLock()
	config, exists := c.configs[key]
	c.mu.RUnlock()

	if !exists && c.storage != nil {
		stored, err := c.storage.LoadTenantConfig(tenantID, providerName)
		if err != nil && !errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
		if err == nil {
			c.mu.Lock()
			c.configs[key] = stored
			c.mu.Unlock()
			config, exists = stored, true
		}
	}

	if !exists {
		return nil, fmt.Errorf("%w for tenant: %s, provider: %s", ErrConfigNotFound, tenantID, providerName)
	}

	return maps.Clone(config), nil
}

// DeleteTenantConfig removes a tenant configuration from storage and memory
func (c *GatewayConfigStore) DeleteTenantConfig(tenantID, providerName string) error {
	if tenantID == "" {
		return errors.New("tenant ID cannot be empty")
	}
	if providerName == "" {
		return errors.New("provider name cannot be empty")
	}

	key := tenantKey(tenantID, providerName)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.storage != nil {
		err := c.storage.DeleteTenantConfig(tenantID, providerName)
		// entries that only live in memory (LoadFromEnv) are not in storage
		if err != nil && !(errors.Is(err, ErrConfigNotFound) && c.configs[key] != nil) {
			return fmt.Errorf("failed to delete config: %w", err)
		}
	} else if _, ok := c.configs[key]; !ok {
		return fmt.Errorf("%w for tenant: %s, provider: %s", ErrConfigNotFound, tenantID, providerName)
	}

	delete(c.configs, key)
	return nil
}

// GetTenantsByProvider lists tenants configured for a provider
func (c *GatewayConfigStore) GetTenantsByProvider(providerName string) ([]string, error) {
	if c.storage == nil {
		return nil, errors.New("storage not initialized")
	}
	return c.storage.GetTenantsByProvider(providerName)
}

// GetStats returns configuration and storage statistics
func (c *GatewayConfigStore) GetStats() map[string]any {
	c.mu.RLock()
	memoryConfigs := len(c.configs)
	c.mu.RUnlock()

	stats := map[string]any{"memory_configs": memoryConfigs}
	if c.storage != nil {
		stats["storage"] = c.storage.Driver()
	} else {
		stats["storage"] = "memory"
	}

	return stats
}
