package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalHelpers(t *testing.T) {
	previous := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(previous) })

	l, logs := newObservedLogger(LevelDebug)
	SetGlobalLogger(l)

	Debug("debug", LogContext{Provider: "buckaroo"})
	Info("info")
	Warn("warn")
	Error("error", nil)
	WithTenant("APP1").Info("tenant")
	WithTenantAndProvider("APP1", "buckaroo").Warn("tenant and provider")

	require.Equal(t, 6, logs.Len())
	assert.Equal(t, "APP1", logs.All()[5].ContextMap()["tenant_id"])
	assert.Equal(t, "buckaroo", logs.All()[5].ContextMap()["provider"])
}

func TestGetGlobalLogger_Fallback(t *testing.T) {
	previous := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(previous) })

	SetGlobalLogger(nil)
	l := GetGlobalLogger()

	require.NotNil(t, l)
	assert.Equal(t, LevelInfo, l.minLevel)
	assert.Same(t, l, GetGlobalLogger())
}
