package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConfig returns a valid Config for testing
func newTestConfig() Config {
	var cfg Config
	cfg.API.Port = 8000
	cfg.API.AllowedOriginPatterns = []string{DefaultAllowedOriginPattern}
	cfg.API.RateLimit = RateLimitConfig{RequestsPerSecond: 20, Burst: 40}
	cfg.API.ShutdownTimeout = 10 * time.Second
	cfg.Logging.Level = "info"
	cfg.Secrets.Provider = "env"
	cfg.Geo.BaseURL = "http://ip-api.com"
	cfg.Geo.Timeout = 5 * time.Second
	cfg.Content.Primary.BaseURL = "https://api.quran.com/api/v4"
	cfg.Content.Primary.TranslationID = 131
	cfg.Content.Secondary.BaseURL = "https://api.alquran.cloud/v1"
	cfg.Content.Secondary.TranslationEdition = "en.asad"
	cfg.Content.Timeout = 10 * time.Second
	cfg.Content.CircuitBreaker = CircuitBreakerSettings{MaxFailures: 5, Timeout: time.Minute}
	cfg.Cache.Backend = BackendSQLite
	cfg.Cache.Redis = RedisConfig{Addr: "localhost:6379", PoolSize: 10}
	cfg.Rules.CacheSize = 1024
	cfg.Analytics.Backend = BackendSQLite
	cfg.ClickHouse = ClickHouseConfig{Addr: "localhost:9000", Database: "dhikr", MaxPoolSize: 10}
	return cfg
}

// resetViper isolates tests that go through LoadConfig
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestValidateConfig_Valid(t *testing.T) {
	cfg := newTestConfig()
	assert.NoError(t, validateConfig(&cfg))
}

func TestValidateConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.API.Port = 0 }},
		{"port too large", func(c *Config) { c.API.Port = 70000 }},
		{"bad origin regex", func(c *Config) { c.API.AllowedOriginPatterns = []string{"(unclosed"} }},
		{"bad proxy network", func(c *Config) {
			c.API.TrustProxy = true
			c.API.TrustedProxyNetworks = []string{"not-a-cidr"}
		}},
		{"zero rate", func(c *Config) { c.API.RateLimit.RequestsPerSecond = 0 }},
		{"zero burst", func(c *Config) { c.API.RateLimit.Burst = 0 }},
		{"zero shutdown timeout", func(c *Config) { c.API.ShutdownTimeout = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown secret provider", func(c *Config) { c.Secrets.Provider = "gcp" }},
		{"geo url without scheme", func(c *Config) { c.Geo.BaseURL = "ip-api.com" }},
		{"content url ftp", func(c *Config) { c.Content.Primary.BaseURL = "ftp://api.quran.com" }},
		{"zero geo timeout", func(c *Config) { c.Geo.Timeout = 0 }},
		{"negative content timeout", func(c *Config) { c.Content.Timeout = -time.Second }},
		{"zero breaker failures", func(c *Config) { c.Content.CircuitBreaker.MaxFailures = 0 }},
		{"zero breaker timeout", func(c *Config) { c.Content.CircuitBreaker.Timeout = 0 }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis without addr", func(c *Config) {
			c.Cache.Backend = BackendRedis
			c.Cache.Redis.Addr = ""
		}},
		{"unknown analytics backend", func(c *Config) { c.Analytics.Backend = "mongodb" }},
		{"clickhouse without pool", func(c *Config) {
			c.Analytics.Backend = BackendClickHouse
			c.ClickHouse.MaxPoolSize = 0
		}},
		{"negative rule cache", func(c *Config) { c.Rules.CacheSize = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig()
			tt.mutate(&cfg)
			assert.Error(t, validateConfig(&cfg))
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.API.Port)
	assert.Equal(t, []string{DefaultAllowedOriginPattern}, cfg.API.AllowedOriginPatterns)
	assert.Equal(t, BackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, BackendSQLite, cfg.Analytics.Backend)
	assert.Equal(t, 5*time.Second, cfg.Geo.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Content.Timeout)
	assert.Equal(t, "en.asad", cfg.Content.Secondary.TranslationEdition)
	assert.Equal(t, filepath.Join("data", "dhikr.db"), filepath.Clean(cfg.GetSQLitePath()))
	assert.Empty(t, cfg.Privacy.HMACKey, "secrets are loaded separately")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())
	t.Setenv("DHIKR_API_PORT", "9090")
	t.Setenv("DHIKR_CACHE_BACKEND", "redis")
	t.Setenv("DHIKR_SQLITE_PATH", "/tmp/dhikr-test.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "/tmp/dhikr-test.db", cfg.GetSQLitePath())
}

func TestLoadConfig_File(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
api:
  port: 8123
logging:
  level: debug
rules:
  seed_file: rules.yaml
`), 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.API.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "rules.yaml", cfg.Rules.SeedFile)
}

func TestLoadConfig_InvalidFileValue(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("cache:\n  backend: memcached\n"), 0o600))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestResolveDataPaths(t *testing.T) {
	cfg := newTestConfig()
	cfg.DataPaths.DataDir = "/var/lib/dhikr"
	cfg.ResolveDataPaths()
	assert.Equal(t, filepath.Join("/var/lib/dhikr", "dhikr.db"), cfg.GetSQLitePath())

	cfg = newTestConfig()
	cfg.ResolveDataPaths()
	assert.Equal(t, "./data", cfg.GetDataDir())
}

func TestLogLevel(t *testing.T) {
	cfg := newTestConfig()
	cfg.Logging.Level = "warn"
	assert.Equal(t, "warn", cfg.LogLevel().String())

	cfg.Logging.Level = "nonsense"
	assert.Equal(t, "info", cfg.LogLevel().String())
}

func TestMaskSensitiveSettings(t *testing.T) {
	cfg := newTestConfig()
	cfg.Privacy.HMACKey = "super-secret-hmac-key"
	cfg.ClickHouse.Password = "pw"

	masked := MaskSensitiveSettings(&cfg)
	assert.Equal(t, maskedValue, masked.Privacy.HMACKey)
	assert.Equal(t, maskedValue, masked.ClickHouse.Password)
	assert.Empty(t, masked.Cache.Redis.Password, "empty values stay empty")
	assert.Equal(t, "super-secret-hmac-key", cfg.Privacy.HMACKey, "original untouched")

	masked.API.AllowedOriginPatterns[0] = "changed"
	assert.Equal(t, DefaultAllowedOriginPattern, cfg.API.AllowedOriginPatterns[0])
}
