package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayConfigStore_SetTenantConfig(t *testing.T) {
	tests := []struct {
		name         string
		tenantID     string
		providerName string
		configData   map[string]string
		errorMsg     string
	}{
		{
			name:         "valid_buckaroo_config",
			tenantID:     "APP1",
			providerName: "buckaroo",
			configData: map[string]string{
				"secretKey":   "secret",
				"websiteKey":  "website",
				"environment": "test",
			},
		},
		{
			name:         "empty_tenant_id",
			providerName: "buckaroo",
			configData:   map[string]string{"secretKey": "secret"},
			errorMsg:     "tenant ID cannot be empty",
		},
		{
			name:       "empty_provider_name",
			tenantID:   "APP1",
			configData: map[string]string{"secretKey": "secret"},
			errorMsg:   "provider name cannot be empty",
		},
		{
			name:         "empty_config",
			tenantID:     "APP1",
			providerName: "buckaroo",
			configData:   map[string]string{},
			errorMsg:     "config cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewGatewayConfigStore(nil)

			err := store.SetTenantConfig(tt.tenantID, tt.providerName, tt.configData)
			if tt.errorMsg != "" {
				assert.EqualError(t, err, tt.errorMsg)
				return
			}
			require.NoError(t, err)

			got, err := store.GetTenantConfig(tt.tenantID, tt.providerName)
			require.NoError(t, err)
			assert.Equal(t, tt.configData, got)
		})
	}
}

func TestGatewayConfigStore_GetReturnsCopy(t *testing.T) {
	store := NewGatewayConfigStore(nil)
	require.NoError(t, store.SetTenantConfig("APP1", "buckaroo", map[string]string{"secretKey": "secret"}))

	got, err := store.GetTenantConfig("app1", "BUCKAROO")
	require.NoError(t, err)
	got["secretKey"] = "changed"

	again, err := store.GetTenantConfig("APP1", "buckaroo")
	require.NoError(t, err)
	assert.Equal(t, "secret", again["secretKey"])
}

func TestGatewayConfigStore_GetMissing(t *testing.T) {
	store := NewGatewayConfigStore(nil)

	_, err := store.GetTenantConfig("APP1", "buckaroo")
	assert.ErrorIs(t, err, ErrConfigNotFound)

	_, err = store.GetTenantConfig("", "buckaroo")
	assert.EqualError(t, err, "tenant ID cannot be empty")
}

func TestGatewayConfigStore_WithStorage(t *testing.T) {
	storage := newTestSQLite(t)
	require.NoError(t, storage.SaveTenantConfig("PRELOADED", "buckaroo", map[string]string{"secretKey": "pre"}))

	store := NewGatewayConfigStore(storage)

	got, err := store.GetTenantConfig("PRELOADED", "buckaroo")
	require.NoError(t, err)
	assert.Equal(t, "pre", got["secretKey"])

	require.NoError(t, store.SetTenantConfig("APP1", "buckaroo", map[string]string{"secretKey": "one"}))

	// a second store over the same database sees the persisted row
	other := NewGatewayConfigStore(storage)
	got, err = other.GetTenantConfig("APP1", "buckaroo")
	require.NoError(t, err)
	assert.Equal(t, "one", got["secretKey"])

	tenants, err := store.GetTenantsByProvider("buckaroo")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"APP1", "PRELOADED"}, tenants)

	require.NoError(t, store.DeleteTenantConfig("APP1", "buckaroo"))
	_, err = store.GetTenantConfig("APP1", "buckaroo")
	assert.ErrorIs(t, err, ErrConfigNotFound)

	assert.Equal(t, "sqlite", store.GetStats()["storage"])
}

func TestGatewayConfigStore_LoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		app      *AppConfig
		loaded   bool
		expected map[string]string
	}{
		{
			name: "test_environment",
			app: &AppConfig{
				BuckarooSecretKey:     "secret",
				BuckarooWebsiteKey:    "website",
				BuckarooTest:          true,
				BuckarooMandatePrefix: "ACME",
			},
			loaded: true,
			expected: map[string]string{
				"secretKey":     "secret",
				"websiteKey":    "website",
				"environment":   "test",
				"test":          "true",
				"mandatePrefix": "ACME",
			},
		},
		{
			name: "production",
			app: &AppConfig{
				BuckarooSecretKey:  "secret",
				BuckarooWebsiteKey: "website",
			},
			loaded: true,
			expected: map[string]string{
				"secretKey":   "secret",
				"websiteKey":  "website",
				"environment": "production",
				"test":        "false",
			},
		},
		{
			name: "missing_website_key",
			app:  &AppConfig{BuckarooSecretKey: "secret"},
		},
		{
			name: "nil_config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewGatewayConfigStore(nil)

			assert.Equal(t, tt.loaded, store.LoadFromEnv(tt.app))

			got, err := store.GetTenantConfig(DefaultTenant, "buckaroo")
			if !tt.loaded {
				assert.ErrorIs(t, err, ErrConfigNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestGatewayConfigStore_DeleteEnvConfigWithStorage(t *testing.T) {
	store := NewGatewayConfigStore(newTestSQLite(t))
	require.True(t, store.LoadFromEnv(&AppConfig{BuckarooSecretKey: "s", BuckarooWebsiteKey: "w"}))

	require.NoError(t, store.DeleteTenantConfig(DefaultTenant, "buckaroo"))

	err := store.DeleteTenantConfig(DefaultTenant, "buckaroo")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
