package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, time.Second, cfg.StaggerDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.ChainStartDelay)
	assert.Equal(t, AlarmPolicyExact, cfg.AlarmPolicy)
	assert.True(t, cfg.WelcomeTask)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("WELCOME_TASK", "false")
	t.Setenv("STAGGER_DELAY", "not-a-duration")

	cfg := Load()

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.False(t, cfg.WelcomeTask)
	assert.Equal(t, time.Second, cfg.StaggerDelay, "invalid values fall back to the default")
}

func TestLoadFile_OverlayThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("db_driver: postgres\ndb_port: \"5432\"\nchain_start_delay: 2s\nalarm_policy: catch-up\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("DB_PORT", "6543")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "6543", cfg.DBPort, "environment wins over the file")
	assert.Equal(t, 2*time.Second, cfg.ChainStartDelay)
	assert.Equal(t, AlarmPolicyCatchUp, cfg.AlarmPolicy)
	assert.Equal(t, "localhost", cfg.DBHost, "unset keys keep defaults")
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, time.Local, cfg.Location())

	cfg.Timezone = "UTC"
	assert.Equal(t, "UTC", cfg.Location().String())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.Local, cfg.Location())
}
