package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// DefaultAllowedOriginPattern admits local development, Replit previews and
// browser extension origins.
const DefaultAllowedOriginPattern = `(http://localhost(:\d+)?|https://.*\.replit\.(dev|app)|chrome-extension://.*|moz-extension://.*)`

// Backend names accepted by cache.backend and analytics.backend
const (
	BackendSQLite     = "sqlite"
	BackendRedis      = "redis"
	BackendClickHouse = "clickhouse"
)

// DataPaths holds all data directory and file path configuration
// These paths can be overridden via environment variables
type DataPaths struct {
	// DataDir is the base data directory (DHIKR_DATA_DIR, default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// SQLitePath is the SQLite database file path (DHIKR_SQLITE_PATH, default: ${DataDir}/dhikr.db)
	SQLitePath string `mapstructure:"sqlite_path"`
}

// RateLimitConfig configures the per-client token bucket
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// APIConfig configures the HTTP server
type APIConfig struct {
	Port int `mapstructure:"port"`
	// AllowedOriginPatterns are anchored regular expressions matched against the Origin header
	AllowedOriginPatterns []string        `mapstructure:"allowed_origin_patterns"`
	TrustProxy            bool            `mapstructure:"trust_proxy"`
	TrustedProxyNetworks  []string        `mapstructure:"trusted_proxy_networks"`
	RateLimit             RateLimitConfig `mapstructure:"rate_limit"`
	ShutdownTimeout       time.Duration   `mapstructure:"shutdown_timeout"`
}

// CircuitBreakerSettings mirrors core.CircuitBreakerConfig
type CircuitBreakerSettings struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ContentConfig configures the verse providers
type ContentConfig struct {
	Primary struct {
		BaseURL       string `mapstructure:"base_url"`
		TranslationID int    `mapstructure:"translation_id"`
	} `mapstructure:"primary"`
	Secondary struct {
		BaseURL            string `mapstructure:"base_url"`
		TranslationEdition string `mapstructure:"translation_edition"`
	} `mapstructure:"secondary"`
	Timeout        time.Duration          `mapstructure:"timeout"`
	CircuitBreaker CircuitBreakerSettings `mapstructure:"circuit_breaker"`
}

// RedisConfig configures the Redis content cache
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"pool_size"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ClickHouseConfig configures the optional ClickHouse event store
type ClickHouseConfig struct {
	Addr        string `mapstructure:"addr"`
	Database    string `mapstructure:"database"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TLS         bool   `mapstructure:"tls"`
	MaxPoolSize int    `mapstructure:"max_pool_size"`
}

// SecretsConfig selects where the HMAC key is read from
type SecretsConfig struct {
	Provider string `mapstructure:"provider"` // env, vault, aws
	Vault    struct {
		Address string `mapstructure:"address"`
		Token   string `mapstructure:"token"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"vault"`
	AWS struct {
		Region    string `mapstructure:"region"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		SecretID  string `mapstructure:"secret_id"`
	} `mapstructure:"aws"`
}

// Config holds all configuration for the dhikr service
type Config struct {
	// DataPaths holds all data directory configuration
	DataPaths DataPaths `mapstructure:"data_paths"`

	API APIConfig `mapstructure:"api"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`

	Privacy struct {
		// HMACKey keys URL pseudonymization. Filled by LoadSecrets.
		HMACKey string `mapstructure:"hmac_key"`
	} `mapstructure:"privacy"`

	Secrets SecretsConfig `mapstructure:"secrets"`

	Geo struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"geo"`

	Content ContentConfig `mapstructure:"content"`

	Cache struct {
		Backend string      `mapstructure:"backend"`
		Redis   RedisConfig `mapstructure:"redis"`
	} `mapstructure:"cache"`

	Rules struct {
		CacheSize int    `mapstructure:"cache_size"`
		SeedFile  string `mapstructure:"seed_file"`
	} `mapstructure:"rules"`

	Analytics struct {
		Backend string `mapstructure:"backend"`
	} `mapstructure:"analytics"`

	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("data_paths.data_dir", "./data")
	viper.SetDefault("data_paths.sqlite_path", "") // Empty = derive from data_dir

	viper.SetDefault("api.port", 8000)
	viper.SetDefault("api.allowed_origin_patterns", []string{DefaultAllowedOriginPattern})
	viper.SetDefault("api.trust_proxy", false)
	viper.SetDefault("api.trusted_proxy_networks", []string{})
	viper.SetDefault("api.rate_limit.requests_per_second", 20)
	viper.SetDefault("api.rate_limit.burst", 40)
	viper.SetDefault("api.shutdown_timeout", 10*time.Second)

	viper.SetDefault("logging.level", "info")

	viper.SetDefault("privacy.hmac_key", "")
	viper.SetDefault("secrets.provider", "env")
	viper.SetDefault("secrets.vault.path", "secret/dhikr")
	viper.SetDefault("secrets.aws.secret_id", "dhikr/secrets")

	viper.SetDefault("geo.base_url", "http://ip-api.com")
	viper.SetDefault("geo.timeout", 5*time.Second)

	viper.SetDefault("content.primary.base_url", "https://api.quran.com/api/v4")
	viper.SetDefault("content.primary.translation_id", 131)
	viper.SetDefault("content.secondary.base_url", "https://api.alquran.cloud/v1")
	viper.SetDefault("content.secondary.translation_edition", "en.asad")
	viper.SetDefault("content.timeout", 10*time.Second)
	viper.SetDefault("content.circuit_breaker.max_failures", 5)
	viper.SetDefault("content.circuit_breaker.timeout", 60*time.Second)

	viper.SetDefault("cache.backend", BackendSQLite)
	viper.SetDefault("cache.redis.addr", "localhost:6379")
	viper.SetDefault("cache.redis.password", "")
	viper.SetDefault("cache.redis.db", 0)
	viper.SetDefault("cache.redis.pool_size", 10)
	viper.SetDefault("cache.redis.key_prefix", "dhikr:content:")

	viper.SetDefault("rules.cache_size", 1024)
	viper.SetDefault("rules.seed_file", "")

	viper.SetDefault("analytics.backend", BackendSQLite)
	viper.SetDefault("clickhouse.addr", "localhost:9000")
	viper.SetDefault("clickhouse.database", "dhikr")
	viper.SetDefault("clickhouse.username", "default")
	viper.SetDefault("clickhouse.password", "")
	viper.SetDefault("clickhouse.tls", false)
	viper.SetDefault("clickhouse.max_pool_size", 10)
}

// loadFromEnv sets up environment variable loading
func loadFromEnv() {
	viper.SetEnvPrefix("DHIKR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Shorter names for the path settings
	_ = viper.BindEnv("data_paths.data_dir", "DHIKR_DATA_DIR")
	_ = viper.BindEnv("data_paths.sqlite_path", "DHIKR_SQLITE_PATH")
}

// LoadConfig loads configuration from file and environment variables.
// Secrets are not resolved here; call LoadSecrets before serving traffic.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	config.ResolveDataPaths()
	return &config, nil
}

// ResolveDataPaths derives the SQLite path from DataDir when not explicitly set
func (c *Config) ResolveDataPaths() {
	dataDir := c.DataPaths.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}

	if c.DataPaths.SQLitePath == "" {
		c.DataPaths.SQLitePath = filepath.Join(dataDir, "dhikr.db")
	} else if !filepath.IsAbs(c.DataPaths.SQLitePath) {
		c.DataPaths.SQLitePath = filepath.Clean(c.DataPaths.SQLitePath)
	}

	c.DataPaths.DataDir = dataDir
}

// GetDataDir returns the resolved base data directory
func (c *Config) GetDataDir() string {
	if c.DataPaths.DataDir == "" {
		return "./data"
	}
	return c.DataPaths.DataDir
}

// GetSQLitePath returns the resolved SQLite database path
func (c *Config) GetSQLitePath() string {
	if c.DataPaths.SQLitePath == "" {
		return filepath.Join(c.GetDataDir(), "dhikr.db")
	}
	return c.DataPaths.SQLitePath
}

// LogLevel returns the configured zap level, defaulting to info
func (c *Config) LogLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// validateConfig validates the configuration for security and correctness.
// The HMAC key is checked separately by ValidateSecrets.
func validateConfig(config *Config) error {
	if config.API.Port < 1 || config.API.Port > 65535 {
		return fmt.Errorf("invalid API port: %d", config.API.Port)
	}

	for _, pattern := range config.API.AllowedOriginPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid allowed origin pattern %q: %w", pattern, err)
		}
	}

	if config.API.TrustProxy {
		for _, network := range config.API.TrustedProxyNetworks {
			if !isValidIPOrCIDR(network) {
				return fmt.Errorf("invalid trusted proxy network: %s", network)
			}
		}
	}

	if config.API.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("api.rate_limit.requests_per_second must be positive")
	}
	if config.API.RateLimit.Burst < 1 {
		return fmt.Errorf("api.rate_limit.burst must be at least 1")
	}
	if config.API.ShutdownTimeout <= 0 {
		return fmt.Errorf("api.shutdown_timeout must be positive")
	}

	if _, err := zapcore.ParseLevel(config.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level %q", config.Logging.Level)
	}

	switch config.Secrets.Provider {
	case "", "env", "vault", "aws":
	default:
		return fmt.Errorf("unsupported secret provider: %s", config.Secrets.Provider)
	}

	for name, raw := range map[string]string{
		"geo.base_url":               config.Geo.BaseURL,
		"content.primary.base_url":   config.Content.Primary.BaseURL,
		"content.secondary.base_url": config.Content.Secondary.BaseURL,
	} {
		if err := validateHTTPURL(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if config.Geo.Timeout <= 0 {
		return fmt.Errorf("geo.timeout must be positive")
	}
	if config.Content.Timeout <= 0 {
		return fmt.Errorf("content.timeout must be positive")
	}
	if config.Content.CircuitBreaker.MaxFailures == 0 {
		return fmt.Errorf("content.circuit_breaker.max_failures must be greater than 0")
	}
	if config.Content.CircuitBreaker.Timeout <= 0 {
		return fmt.Errorf("content.circuit_breaker.timeout must be positive")
	}

	switch config.Cache.Backend {
	case BackendSQLite:
	case BackendRedis:
		if config.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required when cache.backend is redis")
		}
		if config.Cache.Redis.PoolSize < 1 {
			return fmt.Errorf("cache.redis.pool_size must be at least 1")
		}
	default:
		return fmt.Errorf("unsupported cache backend: %q", config.Cache.Backend)
	}

	switch config.Analytics.Backend {
	case BackendSQLite:
	case BackendClickHouse:
		if config.ClickHouse.Addr == "" {
			return fmt.Errorf("clickhouse.addr is required when analytics.backend is clickhouse")
		}
		if config.ClickHouse.MaxPoolSize < 1 {
			return fmt.Errorf("clickhouse.max_pool_size must be at least 1")
		}
	default:
		return fmt.Errorf("unsupported analytics backend: %q", config.Analytics.Backend)
	}

	if config.Rules.CacheSize < 0 {
		return fmt.Errorf("rules.cache_size cannot be negative")
	}

	return nil
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// isValidIPOrCIDR checks if a string is a valid IP address or CIDR notation
func isValidIPOrCIDR(ipStr string) bool {
	if net.ParseIP(ipStr) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(ipStr)
	return err == nil
}
