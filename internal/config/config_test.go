package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, int32(2), cfg.Store.MinConns)
	assert.Equal(t, 10*time.Second, cfg.Store.QueryTimeout())
	assert.Equal(t, 3, cfg.Store.Retry.MaxAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "Census ACS 5-Year 2023", cfg.Sources.CensusVintage)
	assert.Equal(t, "Q4 2025", cfg.Sources.CrosswalkVintage)
	assert.Len(t, cfg.Sources.Checked, 2)
	assert.Equal(t, 5*time.Minute, cfg.National.CacheTTL())
	assert.Equal(t, 100, cfg.Export.MaxZips)
	assert.Equal(t, 2, cfg.Compare.MinZips)
	assert.Equal(t, 10, cfg.Compare.MaxZips)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 50, cfg.Search.MaxLimit)
	assert.Equal(t, 200, cfg.Search.ZipListLimit)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 900, cfg.Monitoring.CheckIntervalSecs)
	assert.InDelta(t, 80.0, cfg.Monitoring.CompletenessThreshold, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: housing.db
log:
  level: debug
  format: console
server:
  port: 9090
national:
  cache_ttl_secs: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "housing.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Zero(t, cfg.National.CacheTTL())
	// Defaults still apply for unset values
	assert.Equal(t, 100, cfg.Export.MaxZips)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("HOUSING_STORE_DRIVER", "postgres")
	t.Setenv("HOUSING_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("HOUSING_SERVER_PORT", "8081")
	t.Setenv("HOUSING_STORE_DATABASE_URL", "postgres://localhost/housing")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/housing", cfg.Store.DatabaseURL)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unterminated"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/housing"
	cfg.Store.QueryTimeoutSecs = 10
	cfg.Server.Port = 3000
	cfg.National.CacheTTLSecs = 300
	cfg.Compare.MinZips = 2
	cfg.Compare.MaxZips = 10
	cfg.Search.DefaultLimit = 20
	cfg.Search.MaxLimit = 50
	cfg.Export.MaxZips = 100
	return cfg
}

func TestValidateServe_Valid(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidateStore_SQLiteNeedsNoURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = ""
	assert.NoError(t, cfg.Validate("store"))
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mysql" is not supported`)
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateServe_Bounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Compare.MaxZips = 1
	cfg.Search.MaxLimit = 5
	cfg.National.CacheTTLSecs = -1

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compare.min_zips")
	assert.Contains(t, err.Error(), "search.default_limit")
	assert.Contains(t, err.Error(), "national.cache_ttl_secs")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateServe_MonitoringInterval(t *testing.T) {
	cfg := validDefaults()
	cfg.Monitoring.Enabled = true

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring.check_interval_secs")

	cfg.Monitoring.CheckIntervalSecs = 60
	assert.NoError(t, cfg.Validate("serve"))
}
