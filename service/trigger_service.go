package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dhikr/core"
	"dhikr/metrics"

	"go.uber.org/zap"
)

// TriggerStore persists trigger records
type TriggerStore interface {
	InsertTrigger(ctx context.Context, record *core.TriggerRecord) error
}

// TriggerInput describes a reminder the client displayed.
// Domain and path are stored as sent; no redaction applies.
type TriggerInput struct {
	Domain          string
	Path            string
	CategoryKey     string
	DurationSeconds int
}

// otherCategoryLabel is the metric label for categories no rule defines
const otherCategoryLabel = "other"

// TriggerService records shown reminders
type TriggerService struct {
	store  TriggerStore
	known  map[string]struct{}
	now    func() time.Time
	logger *zap.SugaredLogger
}

// NewTriggerService creates a trigger service. knownCategories are the
// category keys of the configured rules; any other category is still stored
// but counted under "other".
func NewTriggerService(store TriggerStore, knownCategories []string, logger *zap.SugaredLogger) *TriggerService {
	if store == nil {
		panic("store is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	known := make(map[string]struct{}, len(knownCategories))
	for _, c := range knownCategories {
		known[c] = struct{}{}
	}
	return &TriggerService{store: store, known: known, now: time.Now, logger: logger}
}

// RecordTrigger validates and stores a trigger record
func (s *TriggerService) RecordTrigger(ctx context.Context, in TriggerInput) (*core.TriggerRecord, error) {
	if strings.TrimSpace(in.Domain) == "" || strings.TrimSpace(in.CategoryKey) == "" {
		return nil, fmt.Errorf("%w: domain and category_key are required", ErrInvalidEvent)
	}
	if in.DurationSeconds < 0 || in.DurationSeconds > core.MaxDurationSeconds {
		return nil, fmt.Errorf("%w: duration_seconds must be between 0 and %d", ErrInvalidEvent, core.MaxDurationSeconds)
	}

	record := &core.TriggerRecord{
		Domain:          in.Domain,
		Path:            in.Path,
		CategoryKey:     in.CategoryKey,
		DurationSeconds: in.DurationSeconds,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.InsertTrigger(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store trigger: %w", err)
	}

	metrics.TriggersRecorded.WithLabelValues(s.categoryLabel(record.CategoryKey)).Inc()
	return record, nil
}

func (s *TriggerService) categoryLabel(category string) string {
	if _, ok := s.known[category]; ok {
		return category
	}
	return otherCategoryLabel
}
