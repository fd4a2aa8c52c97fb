package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"dhikr/core"

	"go.uber.org/zap"
)

// SQLiteEventStorage stores anonymized browsing events.
type SQLiteEventStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteEventStorage creates an event store on top of an open database
func NewSQLiteEventStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteEventStorage {
	return &SQLiteEventStorage{sqlite: sqlite, logger: logger}
}

// InsertEvent persists one anonymized event
func (s *SQLiteEventStorage) InsertEvent(ctx context.Context, event *core.AnonymizedEvent) error {
	if err := checkDuration(event.DurationSeconds); err != nil {
		return err
	}
	_, err := s.sqlite.WriteDB.ExecContext(ctx, `
		INSERT INTO analytics_events (id, url_id, domain, category_key, duration_seconds, region, day, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.URLID, event.Domain, nullString(event.CategoryKey),
		event.DurationSeconds, event.Region, event.Day, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}
	return nil
}

// SummarizeSince groups events on or after sinceDay (YYYY-MM-DD) by category.
// Events without a category are reported as core.UncategorizedLabel.
func (s *SQLiteEventStorage) SummarizeSince(ctx context.Context, sinceDay string) ([]core.CategorySummary, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx, `
		SELECT category_key, COUNT(*), COALESCE(SUM(duration_seconds), 0)
		FROM analytics_events
		WHERE day >= ?
		GROUP BY category_key
		ORDER BY COUNT(*) DESC, category_key`, sinceDay)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize analytics events: %w", err)
	}
	defer rows.Close()

	var summaries []core.CategorySummary
	for rows.Next() {
		var category sql.NullString
		var count, seconds int64
		if err := rows.Scan(&category, &count, &seconds); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summaries = append(summaries, newCategorySummary(category.String, count, seconds))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summary rows: %w", err)
	}
	return summaries, nil
}

// CountEvents returns the number of stored events
func (s *SQLiteEventStorage) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := s.sqlite.ReadDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM analytics_events").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count analytics events: %w", err)
	}
	return n, nil
}

// newCategorySummary converts seconds to hours rounded to two decimals
func newCategorySummary(category string, count, seconds int64) core.CategorySummary {
	if category == "" {
		category = core.UncategorizedLabel
	}
	return core.CategorySummary{
		Category: category,
		Count:    count,
		Hours:    math.Round(float64(seconds)/3600*100) / 100,
	}
}
