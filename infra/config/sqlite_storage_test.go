package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "data", "gobuckaroo.db")
	storage, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	return storage
}

func TestNewSQLiteStorage(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "gobuckaroo.db")

	storage, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer storage.Close()

	assert.Equal(t, DriverSQLite, storage.Driver())
	assert.NoError(t, storage.Ping())
	assert.NoError(t, storage.DB().Ping())

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestSQLiteStorage_SaveAndLoad(t *testing.T) {
	storage := newTestSQLite(t)

	conf := map[string]string{
		"secretKey":   "secret",
		"websiteKey":  "website",
		"environment": "test",
	}
	require.NoError(t, storage.SaveTenantConfig("app1", "Buckaroo", conf))

	loaded, err := storage.LoadTenantConfig("APP1", "buckaroo")
	require.NoError(t, err)
	assert.Equal(t, conf, loaded)

	// upsert replaces the previous row
	conf["environment"] = "production"
	require.NoError(t, storage.SaveTenantConfig("APP1", "buckaroo", conf))

	loaded, err = storage.LoadTenantConfig("APP1", "buckaroo")
	require.NoError(t, err)
	assert.Equal(t, "production", loaded["environment"])
}

func TestSQLiteStorage_LoadMissing(t *testing.T) {
	storage := newTestSQLite(t)

	_, err := storage.LoadTenantConfig("APP1", "buckaroo")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestSQLiteStorage_LoadAllAndTenants(t *testing.T) {
	storage := newTestSQLite(t)

	require.NoError(t, storage.SaveTenantConfig("APP1", "buckaroo", map[string]string{"secretKey": "a"}))
	require.NoError(t, storage.SaveTenantConfig("APP2", "buckaroo", map[string]string{"secretKey": "b"}))

	all, err := storage.LoadAllTenantConfigs()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "a", all["APP1_buckaroo"]["secretKey"])
	assert.Equal(t, "b", all["APP2_buckaroo"]["secretKey"])

	tenants, err := storage.GetTenantsByProvider("BUCKAROO")
	require.NoError(t, err)
	assert.Equal(t, []string{"APP1", "APP2"}, tenants)
}

func TestSQLiteStorage_Delete(t *testing.T) {
	storage := newTestSQLite(t)

	require.NoError(t, storage.SaveTenantConfig("APP1", "buckaroo", map[string]string{"secretKey": "a"}))
	require.NoError(t, storage.DeleteTenantConfig("app1", "buckaroo"))

	_, err := storage.LoadTenantConfig("APP1", "buckaroo")
	assert.ErrorIs(t, err, ErrConfigNotFound)

	err = storage.DeleteTenantConfig("APP1", "buckaroo")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
