package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "./xpboard.db", cfg.Database.DSN)
	assert.Equal(t, 24*time.Hour, cfg.Stats.MaxWait)
	assert.Equal(t, 5, cfg.Stats.TopN)
	assert.False(t, cfg.Stats.TestMode)
	assert.Equal(t, 256, cfg.Socket.SendBuffer)

	day, err := cfg.Stats.ParseWeekday()
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, day)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("stats:\n  test_mode: true\n  test_interval: 30s\n  weekday: monday\ndatabase:\n  dsn: /tmp/other.db\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("XPBOARD_SERVER_PORT", "9999")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "/tmp/other.db", cfg.Database.DSN)
	assert.True(t, cfg.Stats.TestMode)
	assert.Equal(t, 30*time.Second, cfg.Stats.TestInterval)

	day, err := cfg.Stats.ParseWeekday()
	require.NoError(t, err)
	assert.Equal(t, time.Monday, day)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database:\n  driver: mysql\n"), 0o600))

	_, err := LoadFrom(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestParseWeekdayInvalid(t *testing.T) {
	_, err := StatsConfig{Weekday: "someday"}.ParseWeekday()
	assert.Error(t, err)
}
