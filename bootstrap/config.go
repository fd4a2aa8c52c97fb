package bootstrap

import (
	"fmt"
	"os"

	"dhikr/config"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes the zap logger with colored console output.
// The level can be raised or lowered later through the AtomicLevel.
func InitLogger(level zap.AtomicLevel) (*zap.Logger, *zap.SugaredLogger, error) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar(), nil
}

// InitConfig loads the configuration and resolves the HMAC key.
// A missing key is fatal: events cannot be pseudonymized without it.
func InitConfig(sugar *zap.SugaredLogger) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load config: %v\n", err)
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if viper.ConfigFileUsed() == "" {
		sugar.Info("No config file found, using defaults and env vars")
	}

	if err := config.LoadSecrets(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n"+
			"  Remediation:\n"+
			"  - Set DHIKR_SERVER_HMAC_KEY (at least 16 characters)\n"+
			"  - Or configure secrets.provider as vault or aws\n", err)
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	masked := config.MaskSensitiveSettings(cfg)
	sugar.Infow("Data paths configuration",
		"data_dir", cfg.GetDataDir(),
		"sqlite_path", cfg.GetSQLitePath())
	sugar.Infow("Config loaded",
		"port", cfg.API.Port,
		"log_level", cfg.LogLevel().String(),
		"secrets_provider", masked.Secrets.Provider,
		"hmac_key", masked.Privacy.HMACKey,
		"cache_backend", cfg.Cache.Backend,
		"analytics_backend", cfg.Analytics.Backend,
		"content_primary", cfg.Content.Primary.BaseURL,
		"content_secondary", cfg.Content.Secondary.BaseURL,
		"geo_base_url", cfg.Geo.BaseURL)

	return cfg, nil
}
