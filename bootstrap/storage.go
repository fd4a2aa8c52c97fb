package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"dhikr/config"
	"dhikr/content"
	"dhikr/service"
	"dhikr/storage"

	"go.uber.org/zap"
)

// StorageComponents holds all storage-related components.
type StorageComponents struct {
	SQLite       *storage.SQLite
	ClickHouse   *storage.ClickHouse        // nil unless analytics.backend=clickhouse
	RedisCache   *storage.RedisContentCache // nil unless cache.backend=redis
	RuleStorage  *storage.SQLiteRuleStorage
	ContentCache content.Cache
	EventStore   service.EventStore
	TriggerStore *storage.SQLiteTriggerStorage
}

// Close releases every open backend, returning the first error
func (s *StorageComponents) Close() error {
	var errs []error
	if s.RedisCache != nil {
		errs = append(errs, s.RedisCache.Close())
	}
	if s.ClickHouse != nil {
		errs = append(errs, s.ClickHouse.Close())
	}
	if s.SQLite != nil {
		errs = append(errs, s.SQLite.Close())
	}
	return errors.Join(errs...)
}

// HealthCheck pings the SQLite database and any optional backend
func (s *StorageComponents) HealthCheck(ctx context.Context) error {
	if err := s.SQLite.HealthCheck(ctx); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if s.RedisCache != nil {
		if err := s.RedisCache.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if s.ClickHouse != nil {
		if err := s.ClickHouse.HealthCheck(ctx); err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
	}
	return nil
}

// InitStorage opens SQLite and the configured cache and analytics backends.
// On error everything opened so far is closed.
func InitStorage(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*StorageComponents, error) {
	sqlite, err := InitSQLite(cfg.GetSQLitePath(), sugar)
	if err != nil {
		return nil, err
	}

	components := &StorageComponents{
		SQLite:       sqlite,
		RuleStorage:  storage.NewSQLiteRuleStorage(sqlite, sugar),
		TriggerStore: storage.NewSQLiteTriggerStorage(sqlite, sugar),
	}

	if err := initContentCache(ctx, cfg, components, sugar); err != nil {
		_ = components.Close()
		return nil, err
	}

	if err := initEventStore(ctx, cfg, components, sugar); err != nil {
		_ = components.Close()
		return nil, err
	}

	return components, nil
}

// InitSQLite initializes SQLite connection.
func InitSQLite(dbPath string, sugar *zap.SugaredLogger) (*storage.SQLite, error) {
	sqlite, err := storage.NewSQLite(dbPath, sugar)
	if err != nil {
		errMsg := ClassifySQLiteError(err, dbPath)
		fmt.Fprintf(os.Stderr, "\n========================================\n")
		fmt.Fprintf(os.Stderr, "FATAL: SQLite Initialization Failed\n")
		fmt.Fprintf(os.Stderr, "========================================\n")
		fmt.Fprintf(os.Stderr, "%s\n", errMsg)
		fmt.Fprintf(os.Stderr, "========================================\n\n")
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}

	sugar.Info("SQLite initialized successfully")
	return sqlite, nil
}

func initContentCache(ctx context.Context, cfg *config.Config, components *StorageComponents, sugar *zap.SugaredLogger) error {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		redisCfg := cfg.Cache.Redis
		cache := storage.NewRedisContentCache(redisCfg.Addr, redisCfg.Password, redisCfg.DB, redisCfg.PoolSize, redisCfg.KeyPrefix, sugar)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := cache.Ping(pingCtx); err != nil {
			_ = cache.Close()
			fmt.Fprintf(os.Stderr, "FATAL: %s\n", ClassifyConnectionError(err, "Redis", redisCfg.Addr))
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}

		components.RedisCache = cache
		components.ContentCache = cache
		sugar.Infow("Content cache ready", "backend", config.BackendRedis, "addr", redisCfg.Addr)
	case config.BackendSQLite, "":
		components.ContentCache = storage.NewSQLiteContentCache(components.SQLite, sugar)
		sugar.Infow("Content cache ready", "backend", config.BackendSQLite)
	default:
		return fmt.Errorf("%w: cache backend %q", storage.ErrUnknownBackend, cfg.Cache.Backend)
	}
	return nil
}

func initEventStore(ctx context.Context, cfg *config.Config, components *StorageComponents, sugar *zap.SugaredLogger) error {
	switch cfg.Analytics.Backend {
	case config.BackendClickHouse:
		ch, err := InitClickHouse(cfg, sugar)
		if err != nil {
			return err
		}
		components.ClickHouse = ch

		events, err := storage.NewClickHouseEventStorage(ctx, ch, sugar)
		if err != nil {
			return fmt.Errorf("failed to initialize ClickHouse event storage: %w", err)
		}
		components.EventStore = events
		sugar.Infow("Analytics store ready", "backend", config.BackendClickHouse)
	case config.BackendSQLite, "":
		components.EventStore = storage.NewSQLiteEventStorage(components.SQLite, sugar)
		sugar.Infow("Analytics store ready", "backend", config.BackendSQLite)
	default:
		return fmt.Errorf("%w: analytics backend %q", storage.ErrUnknownBackend, cfg.Analytics.Backend)
	}
	return nil
}

// InitClickHouse initializes ClickHouse connection with retry logic.
func InitClickHouse(cfg *config.Config, sugar *zap.SugaredLogger) (*storage.ClickHouse, error) {
	const maxRetries = 3
	retryDelays := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

	var clickhouse *storage.ClickHouse
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			sugar.Infow("Retrying ClickHouse connection",
				"attempt", attempt,
				"max_retries", maxRetries,
				"delay", retryDelays[attempt-1])
			time.Sleep(retryDelays[attempt-1])
		}

		clickhouse, lastErr = storage.NewClickHouse(cfg, sugar)
		if lastErr == nil {
			break
		}

		sugar.Warnw("ClickHouse connection attempt failed",
			"attempt", attempt+1,
			"error", lastErr)
	}

	if lastErr != nil {
		errMsg := ClassifyConnectionError(lastErr, "ClickHouse", cfg.ClickHouse.Addr)
		fmt.Fprintf(os.Stderr, "\n========================================\n")
		fmt.Fprintf(os.Stderr, "FATAL: ClickHouse Connection Failed\n")
		fmt.Fprintf(os.Stderr, "========================================\n")
		fmt.Fprintf(os.Stderr, "%s\n", errMsg)
		fmt.Fprintf(os.Stderr, "========================================\n\n")
		return nil, fmt.Errorf("failed to connect to ClickHouse after %d attempts: %w", maxRetries+1, lastErr)
	}

	sugar.Info("Connected to ClickHouse successfully")
	return clickhouse, nil
}

// SeedRules fills an empty rules table from rules.seed_file, or from the
// built-in defaults when no file is configured. A populated table is left alone.
func SeedRules(ctx context.Context, cfg *config.Config, rules *storage.SQLiteRuleStorage, sugar *zap.SugaredLogger) (int, error) {
	seed := storage.DefaultSeedRules()
	source := "built-in defaults"

	if cfg.Rules.SeedFile != "" {
		loaded, err := storage.LoadSeedRulesFile(cfg.Rules.SeedFile)
		if err != nil {
			return 0, fmt.Errorf("failed to load seed rules from %s: %w", cfg.Rules.SeedFile, err)
		}
		seed = loaded
		source = cfg.Rules.SeedFile
	}

	n, err := rules.SeedRules(ctx, seed)
	if err != nil {
		return 0, fmt.Errorf("failed to seed rules: %w", err)
	}

	if n > 0 {
		sugar.Infow("Seeded reminder rules", "count", n, "source", source)
	} else {
		sugar.Debugw("Rules table already populated, skipping seed")
	}
	return n, nil
}

// ruleCategories returns the distinct category keys of the stored rules, sorted
func ruleCategories(ctx context.Context, rules *storage.SQLiteRuleStorage) ([]string, error) {
	all, err := rules.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule categories: %w", err)
	}

	seen := make(map[string]struct{}, len(all))
	var categories []string
	for _, rule := range all {
		if _, ok := seen[rule.CategoryKey]; ok {
			continue
		}
		seen[rule.CategoryKey] = struct{}{}
		categories = append(categories, rule.CategoryKey)
	}
	sort.Strings(categories)
	return categories, nil
}
