package storage

import (
	"context"
	"fmt"
	"time"

	"dhikr/core"

	"go.uber.org/zap"
)

// analyticsEventsTableDDL keeps one row per anonymized event. Rows are
// ordered by day so period summaries scan a contiguous range.
const analyticsEventsTableDDL = `
	CREATE TABLE IF NOT EXISTS analytics_events (
		id String,
		url_id FixedString(64),
		domain LowCardinality(String),
		category_key Nullable(String),
		duration_seconds UInt32,
		region LowCardinality(String),
		day Date,
		created_at DateTime64(3, 'UTC')
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(day)
	ORDER BY (day, domain, id)
	SETTINGS index_granularity = 8192
	`

// ClickHouseEventStorage stores anonymized events in ClickHouse.
type ClickHouseEventStorage struct {
	clickhouse *ClickHouse
	logger     *zap.SugaredLogger
}

// NewClickHouseEventStorage creates the events table if needed
func NewClickHouseEventStorage(ctx context.Context, ch *ClickHouse, logger *zap.SugaredLogger) (*ClickHouseEventStorage, error) {
	if err := ch.Conn.Exec(ctx, analyticsEventsTableDDL); err != nil {
		return nil, fmt.Errorf("failed to create analytics_events table: %w", err)
	}
	return &ClickHouseEventStorage{clickhouse: ch, logger: logger}, nil
}

// InsertEvent writes a single event as a one-row batch
func (s *ClickHouseEventStorage) InsertEvent(ctx context.Context, event *core.AnonymizedEvent) error {
	if err := checkDuration(event.DurationSeconds); err != nil {
		return err
	}

	batch, err := s.clickhouse.Conn.PrepareBatch(ctx, `
		INSERT INTO analytics_events (id, url_id, domain, category_key, duration_seconds, region, day, created_at)`)
	if err != nil {
		return fmt.Errorf("failed to prepare event batch: %w", err)
	}

	var category *string
	if event.CategoryKey != "" {
		category = &event.CategoryKey
	}

	day, err := parseDay(event.Day)
	if err != nil {
		_ = batch.Abort()
		return err
	}

	if err := batch.Append(
		event.ID,
		event.URLID,
		event.Domain,
		category,
		uint32(event.DurationSeconds),
		event.Region,
		day,
		event.CreatedAt,
	); err != nil {
		_ = batch.Abort()
		return fmt.Errorf("failed to append event to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send event batch: %w", err)
	}
	return nil
}

// SummarizeSince groups events on or after sinceDay (YYYY-MM-DD) by category
func (s *ClickHouseEventStorage) SummarizeSince(ctx context.Context, sinceDay string) ([]core.CategorySummary, error) {
	day, err := parseDay(sinceDay)
	if err != nil {
		return nil, err
	}

	rows, err := s.clickhouse.Conn.Query(ctx, `
		SELECT ifNull(category_key, '') AS category, count() AS events, sum(duration_seconds) AS seconds
		FROM analytics_events
		WHERE day >= ?
		GROUP BY category
		ORDER BY events DESC, category`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize analytics events: %w", err)
	}
	defer rows.Close()

	var summaries []core.CategorySummary
	for rows.Next() {
		var category string
		var count, seconds uint64
		if err := rows.Scan(&category, &count, &seconds); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summaries = append(summaries, newCategorySummary(category, int64(count), int64(seconds)))
	}
	return summaries, rows.Err()
}

// parseDay parses a YYYY-MM-DD day into a UTC date
func parseDay(day string) (time.Time, error) {
	t, err := time.ParseInLocation(core.DayLayout, day, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", day, err)
	}
	return t, nil
}
