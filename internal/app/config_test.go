package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/maderia/maderia/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 10*time.Minute, cfg.DashboardCacheTTL)
	assert.Equal(t, int64(1), cfg.DefaultServiceID)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, cfg.SMTPFrom, cfg.NotifyAddress())
}

func TestLoadConfigRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestNotifyAddressPrefersAdminOverride(t *testing.T) {
	cfg := &Config{SMTPFrom: "no-reply@maderia.local", AdminNotifyEmail: "admin@maderia.local"}
	assert.Equal(t, "admin@maderia.local", cfg.NotifyAddress())
}

func TestInTestModeGuard(t *testing.T) {
	RefreshTestMode()
	assert.True(t, InTestMode())
}
