// Package api serves the dhikr HTTP endpoints: reminders, rules, anonymized
// analytics, trigger logging and the privacy policy.
//
// Every JSON route answers with the same envelope:
//
//	{"status": "success"|"error", "message": "...", "data": ...}
package api

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"dhikr/config"
	"dhikr/core"
	"dhikr/service"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ReminderProvider serves reminders, verses and the rule list
type ReminderProvider interface {
	GetReminder(ctx context.Context, domain, path, lang string) (*service.Reminder, error)
	GetVerse(ctx context.Context, reference, lang string) (*core.Content, error)
	ListRules(ctx context.Context) ([]core.Rule, error)
}

// AnalyticsRecorder records anonymized events and summarizes them
type AnalyticsRecorder interface {
	RecordEvent(ctx context.Context, in service.EventInput) (*core.AnonymizedEvent, error)
	Summary(ctx context.Context, period string) ([]core.CategorySummary, error)
}

// TriggerRecorder records displayed reminders
type TriggerRecorder interface {
	RecordTrigger(ctx context.Context, in service.TriggerInput) (*core.TriggerRecord, error)
}

// HealthChecker reports whether persistence is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// API holds the API server
type API struct {
	router         *mux.Router
	handler        http.Handler
	server         *http.Server
	reminders      ReminderProvider
	analytics      AnalyticsRecorder
	triggers       TriggerRecorder
	health         HealthChecker
	config         *config.Config
	logger         *zap.SugaredLogger
	validate       *validator.Validate
	allowedOrigins []*regexp.Regexp
	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex
	stopCh         chan struct{}
	stopOnce       sync.Once
}

// NewAPI creates a new API server. health may be nil, in which case /health
// only reports that the process is up.
func NewAPI(reminders ReminderProvider, analytics AnalyticsRecorder, triggers TriggerRecorder, health HealthChecker, cfg *config.Config, logger *zap.SugaredLogger) (*API, error) {
	if reminders == nil || analytics == nil || triggers == nil {
		panic("api: services are required")
	}
	if cfg == nil {
		panic("api: config is required")
	}
	if logger == nil {
		panic("api: logger is required")
	}

	origins, err := compileOriginPatterns(cfg.API.AllowedOriginPatterns)
	if err != nil {
		return nil, err
	}

	a := &API{
		router:         mux.NewRouter(),
		reminders:      reminders,
		analytics:      analytics,
		triggers:       triggers,
		health:         health,
		config:         cfg,
		logger:         logger,
		validate:       newValidator(),
		allowedOrigins: origins,
		rateLimiters:   make(map[string]*rateLimiterEntry),
		stopCh:         make(chan struct{}),
	}
	a.setupRoutes()
	go a.cleanupRateLimiters()
	return a, nil
}

// setupRoutes sets up the API routes. Request IDs, panic recovery and CORS
// wrap the router so that preflight requests are answered before route matching.
func (a *API) setupRoutes() {
	a.router.Use(a.metricsMiddleware)
	a.router.Use(a.rateLimitMiddleware)

	a.router.HandleFunc("/", a.root).Methods("GET")
	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.HandleFunc("/privacy", a.getPrivacyPolicy).Methods("GET")
	a.router.HandleFunc("/rules", a.getRules).Methods("GET")
	a.router.HandleFunc("/reminder", a.getReminder).Methods("GET")
	a.router.HandleFunc("/reminder/ayah", a.getAyah).Methods("GET")
	a.router.HandleFunc("/analytics/log", a.logAnalytics).Methods("POST")
	a.router.HandleFunc("/analytics/summary", a.getAnalyticsSummary).Methods("GET")
	a.router.HandleFunc("/log-trigger", a.logTrigger).Methods("POST")
	a.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	a.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.respondError(w, http.StatusNotFound, "Not found")
	})
	a.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	a.handler = a.requestIDMiddleware(a.errorRecoveryMiddleware(a.securityHeadersMiddleware(a.corsMiddleware(a.router))))
}

// Handler returns the fully wrapped HTTP handler
func (a *API) Handler() http.Handler {
	return a.handler
}

// Start starts the API server on addr and blocks until it stops
func (a *API) Start(addr string) error {
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	a.logger.Infow("API server listening", "addr", addr)
	return a.server.ListenAndServe()
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// compileOriginPatterns anchors each pattern so it must match the whole Origin
func compileOriginPatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`^(?:` + p + `)$`)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed origin pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
