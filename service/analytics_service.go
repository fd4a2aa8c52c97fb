package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dhikr/core"
	"dhikr/metrics"
	"dhikr/privacy"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidPeriod is returned for a summary period that is not "<N>d"
var ErrInvalidPeriod = errors.New("invalid summary period")

// ErrInvalidEvent is returned when an event is missing required data
var ErrInvalidEvent = errors.New("invalid event")

// EventStore persists anonymized events and aggregates them.
// Defined here (consumer package) so SQLite and ClickHouse stores both satisfy it.
type EventStore interface {
	InsertEvent(ctx context.Context, event *core.AnonymizedEvent) error
	SummarizeSince(ctx context.Context, sinceDay string) ([]core.CategorySummary, error)
}

// Classifier returns the category of a (domain, path) pair, if any
type Classifier interface {
	Classify(ctx context.Context, domain, path string) (string, bool)
}

// GeoResolver maps a client IP to a coarse location
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) core.Location
}

// URLHasher produces the keyed identifier stored in place of a URL
type URLHasher interface {
	Pseudonymize(text string) string
}

// EventInput is a raw browsing event as received from the client.
// URL, Title and ClientIP never reach storage.
type EventInput struct {
	URL             string
	Title           *string
	Domain          string
	Path            string
	DurationSeconds int
	ClientIP        string
}

// AnalyticsService runs the anonymization pipeline for browsing events.
//
// PIPELINE:
// 1. Classify the domain/path against the rules
// 2. Redact PII from the URL (and title)
// 3. Pseudonymize the redacted URL with the configured HMAC key
// 4. Resolve the client IP to a coarse region, then drop the IP
// 5. Persist the anonymized event
//
// Classification and geolocation failures degrade to "no category" and
// "Unknown"; only storage failures are returned.
type AnalyticsService struct {
	events     EventStore
	classifier Classifier
	geo        GeoResolver
	hasher     URLHasher
	redactor   *privacy.Redactor
	now        func() time.Time
	logger     *zap.SugaredLogger
}

// NewAnalyticsService creates the analytics pipeline. All dependencies are required.
func NewAnalyticsService(events EventStore, classifier Classifier, geo GeoResolver, hasher URLHasher, logger *zap.SugaredLogger) *AnalyticsService {
	if events == nil {
		panic("events is required")
	}
	if classifier == nil {
		panic("classifier is required")
	}
	if geo == nil {
		panic("geo is required")
	}
	if hasher == nil {
		panic("hasher is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &AnalyticsService{
		events:     events,
		classifier: classifier,
		geo:        geo,
		hasher:     hasher,
		redactor:   privacy.NewRedactor(),
		now:        time.Now,
		logger:     logger,
	}
}

// RecordEvent anonymizes and stores one event, returning the stored record
func (s *AnalyticsService) RecordEvent(ctx context.Context, in EventInput) (*core.AnonymizedEvent, error) {
	if strings.TrimSpace(in.Domain) == "" {
		return nil, fmt.Errorf("%w: domain is required", ErrInvalidEvent)
	}
	if in.DurationSeconds < 0 || in.DurationSeconds > core.MaxDurationSeconds {
		return nil, fmt.Errorf("%w: duration_seconds must be between 0 and %d", ErrInvalidEvent, core.MaxDurationSeconds)
	}

	category, _ := s.classifier.Classify(ctx, in.Domain, in.Path)

	redactedURL := s.redactor.RedactWithMetrics(in.URL)
	// Title is redacted for the PII counters only, never stored
	if in.Title != nil {
		s.redactor.RedactWithMetrics(*in.Title)
	}

	location := s.geo.Resolve(ctx, in.ClientIP)
	now := s.now().UTC()

	event := &core.AnonymizedEvent{
		ID:              uuid.New().String(),
		URLID:           s.hasher.Pseudonymize(redactedURL),
		Domain:          in.Domain,
		CategoryKey:     category,
		DurationSeconds: in.DurationSeconds,
		Region:          location.Region,
		Day:             now.Format(core.DayLayout),
		CreatedAt:       now,
	}

	if err := s.events.InsertEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to store analytics event: %w", err)
	}

	metrics.EventsRecorded.WithLabelValues(strconv.FormatBool(category != "")).Inc()
	s.logger.Debugw("Analytics event recorded", "domain", event.Domain, "category", event.CategoryKey, "region", event.Region)
	return event, nil
}

// Summary aggregates events per category over the last period ("7d", "30d").
// The period includes today and the N days before it.
func (s *AnalyticsService) Summary(ctx context.Context, period string) ([]core.CategorySummary, error) {
	days, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	since := s.now().UTC().AddDate(0, 0, -days).Format(core.DayLayout)
	summaries, err := s.events.SummarizeSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize analytics: %w", err)
	}
	return summaries, nil
}

// ParsePeriod parses "<N>d" into a day count in [1, core.MaxSummaryDays]
func ParsePeriod(period string) (int, error) {
	if period == "" {
		period = "7d"
	}
	trimmed := strings.TrimSuffix(strings.TrimSpace(period), "d")
	days, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	if days < 1 || days > core.MaxSummaryDays {
		return 0, fmt.Errorf("%w: %q must be between 1d and %dd", ErrInvalidPeriod, period, core.MaxSummaryDays)
	}
	return days, nil
}
