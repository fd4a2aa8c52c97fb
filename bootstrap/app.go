package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"dhikr/api"
	"dhikr/config"
	"dhikr/content"
	"dhikr/core"
	"dhikr/detect"
	"dhikr/geo"
	"dhikr/privacy"
	"dhikr/service"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// App represents the dhikr server with all its components.
type App struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger
	Level  zap.AtomicLevel

	// Storage
	Storage *StorageComponents

	// Pipeline
	Classifier *detect.Classifier
	Resolver   *content.Resolver

	// Services
	Analytics *service.AnalyticsService
	Reminders *service.ReminderService
	Triggers  *service.TriggerService
	APIServer *api.API

	// Lifecycle
	serviceWg    *sync.WaitGroup
	shutdownOnce sync.Once
}

// NewApp creates a new application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{
		Level:     zap.NewAtomicLevelAt(zapcore.InfoLevel),
		serviceWg: &sync.WaitGroup{},
	}

	logger, sugar, err := InitLogger(app.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("dhikr starting...")

	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg
	app.Level.SetLevel(cfg.LogLevel())

	sugar.Info("Running pre-flight checks...")
	if err := EnsureDataDirectory(cfg.GetSQLitePath(), sugar); err != nil {
		return nil, fmt.Errorf("pre-flight check failed: %w", err)
	}

	storageComponents, err := InitStorage(ctx, cfg, sugar)
	if err != nil {
		return nil, err
	}
	app.Storage = storageComponents

	if err := app.wire(ctx); err != nil {
		_ = storageComponents.Close()
		return nil, err
	}

	return app, nil
}

// wire seeds the rules and builds the pipeline, the services and the API
// on top of already opened storage.
func (a *App) wire(ctx context.Context) error {
	cfg := a.Config
	sugar := a.Sugar

	if _, err := SeedRules(ctx, cfg, a.Storage.RuleStorage, sugar); err != nil {
		return err
	}

	breaker, err := core.NewCircuitBreaker(core.CircuitBreakerConfig{
		MaxFailures: cfg.Content.CircuitBreaker.MaxFailures,
		Cooldown:    cfg.Content.CircuitBreaker.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create content circuit breaker: %w", err)
	}

	primary := content.NewQuranComProvider(cfg.Content.Primary.BaseURL, cfg.Content.Primary.TranslationID, cfg.Content.Timeout)
	secondary := content.NewAlQuranCloudProvider(cfg.Content.Secondary.BaseURL, cfg.Content.Secondary.TranslationEdition, cfg.Content.Timeout, sugar)
	a.Resolver = content.NewResolver(a.Storage.ContentCache, primary, secondary, breaker, sugar)

	ruleCache, err := detect.NewCachedRuleStore(a.Storage.RuleStorage, cfg.Rules.CacheSize)
	if err != nil {
		return err
	}
	a.Classifier = detect.NewClassifier(ruleCache, sugar)

	pseudonymizer, err := privacy.NewPseudonymizer(cfg.Privacy.HMACKey)
	if err != nil {
		return fmt.Errorf("failed to create pseudonymizer: %w", err)
	}
	geoResolver := geo.NewResolver(cfg.Geo.BaseURL, cfg.Geo.Timeout, sugar)

	a.Analytics = service.NewAnalyticsService(a.Storage.EventStore, a.Classifier, geoResolver, pseudonymizer, sugar)
	a.Reminders = service.NewReminderService(a.Classifier, a.Resolver, a.Storage.RuleStorage, sugar)
	categories, err := ruleCategories(ctx, a.Storage.RuleStorage)
	if err != nil {
		return err
	}
	a.Triggers = service.NewTriggerService(a.Storage.TriggerStore, categories, sugar)

	apiServer, err := api.NewAPI(a.Reminders, a.Analytics, a.Triggers, a.Storage, cfg, sugar)
	if err != nil {
		return fmt.Errorf("failed to create API: %w", err)
	}
	a.APIServer = apiServer

	sugar.Infow("Components initialized",
		"primary_provider", primary.Name(),
		"secondary_provider", secondary.Name(),
		"rule_cache_size", cfg.Rules.CacheSize)
	return nil
}

// Start starts the API server in the background.
func (a *App) Start(ctx context.Context) error {
	if a.APIServer == nil {
		return errors.New("API server not initialized")
	}

	addr := fmt.Sprintf(":%d", a.Config.API.Port)
	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.Sugar.Errorw("API server panicked", "panic", r)
			}
		}()
		a.Sugar.Infow("Starting API server", "addr", addr)
		if err := a.APIServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Sugar.Errorw("API server failed", "error", err)
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received or ctx is done.
func (a *App) WaitForShutdown(ctx context.Context) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		a.Sugar.Infow("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}
}

// Shutdown gracefully shuts down all components. Safe to call more than once.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(a.shutdown)
}

func (a *App) shutdown() {
	a.Sugar.Info("Shutting down...")

	timeout := 10 * time.Second
	if a.Config != nil && a.Config.API.ShutdownTimeout > 0 {
		timeout = a.Config.API.ShutdownTimeout
	}

	// Phase 1 - Stop accepting requests and drain in-flight ones
	a.Sugar.Info("Phase 1: Stopping API server...")
	if a.APIServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop API server", "error", err)
		}
		cancel()
	}

	// Phase 2 - Wait for service goroutines
	a.Sugar.Info("Phase 2: Waiting for service goroutines to complete...")
	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		a.Sugar.Info("All service goroutines stopped successfully")
	case <-time.After(timeout + 5*time.Second):
		a.Sugar.Warn("Service goroutine shutdown timed out")
	}

	// Phase 3 - Close storage last, after no request can touch it
	a.Sugar.Info("Phase 3: Closing storage...")
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Sugar.Errorw("Failed to close storage", "error", err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}
