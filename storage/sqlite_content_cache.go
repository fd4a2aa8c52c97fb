package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dhikr/core"
	"dhikr/metrics"

	"go.uber.org/zap"
)

// SQLiteContentCache persists resolved verses keyed by (reference, lang).
type SQLiteContentCache struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteContentCache creates a content cache on top of an open database
func NewSQLiteContentCache(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteContentCache {
	return &SQLiteContentCache{sqlite: sqlite, logger: logger}
}

// Get returns the cached entry, or nil with no error on a miss
func (c *SQLiteContentCache) Get(ctx context.Context, reference, lang string) (*core.CachedContent, error) {
	var cc core.CachedContent
	var fetchedAt time.Time
	err := c.sqlite.ReadDB.QueryRowContext(ctx, `
		SELECT verse_ref, lang, verse_text, translation, audio_url, fetched_at
		FROM reminder_cache
		WHERE verse_ref = ? AND lang = ?`, reference, lang).
		Scan(&cc.Reference, &cc.Lang, &cc.VerseText, &cc.Translation, &cc.AudioURL, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.CacheMisses.WithLabelValues("sqlite").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.CacheErrors.WithLabelValues("sqlite", "get").Inc()
		return nil, fmt.Errorf("failed to read cached content: %w", err)
	}

	cc.FetchedAt = fetchedAt
	metrics.CacheHits.WithLabelValues("sqlite").Inc()
	return &cc, nil
}

// Upsert writes the entry, replacing any row with the same (reference, lang).
// Concurrent upserts of one key never surface a uniqueness error; the last write wins.
func (c *SQLiteContentCache) Upsert(ctx context.Context, cc core.CachedContent) error {
	if cc.FetchedAt.IsZero() {
		cc.FetchedAt = time.Now().UTC()
	}

	_, err := c.sqlite.WriteDB.ExecContext(ctx, `
		INSERT INTO reminder_cache (verse_ref, lang, verse_text, translation, audio_url, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(verse_ref, lang) DO UPDATE SET
			verse_text = excluded.verse_text,
			translation = excluded.translation,
			audio_url = excluded.audio_url,
			fetched_at = excluded.fetched_at`,
		cc.Reference, cc.Lang, cc.VerseText, cc.Translation, cc.AudioURL, cc.FetchedAt)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("sqlite", "upsert").Inc()
		return fmt.Errorf("failed to upsert cached content: %w", err)
	}
	return nil
}

// CountEntries returns the number of cached verses
func (c *SQLiteContentCache) CountEntries(ctx context.Context) (int, error) {
	var n int
	if err := c.sqlite.ReadDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM reminder_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cached content: %w", err)
	}
	return n, nil
}
