package storage

import (
	"context"
	"database/sql"
	"fmt"

	"dhikr/core"

	"go.uber.org/zap"
)

// SQLiteTriggerStorage stores records of reminders shown to the user.
type SQLiteTriggerStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteTriggerStorage creates a trigger store on top of an open database
func NewSQLiteTriggerStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteTriggerStorage {
	return &SQLiteTriggerStorage{sqlite: sqlite, logger: logger}
}

// InsertTrigger persists a trigger record and sets its ID
func (s *SQLiteTriggerStorage) InsertTrigger(ctx context.Context, record *core.TriggerRecord) error {
	if err := checkDuration(record.DurationSeconds); err != nil {
		return err
	}
	res, err := s.sqlite.WriteDB.ExecContext(ctx, `
		INSERT INTO requests_log (domain, path, category_key, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		record.Domain, nullString(record.Path), record.CategoryKey, record.DurationSeconds, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trigger record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read trigger record id: %w", err)
	}
	record.ID = id
	return nil
}

// ListTriggers returns the most recent trigger records, newest first
func (s *SQLiteTriggerStorage) ListTriggers(ctx context.Context, limit int) ([]core.TriggerRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.sqlite.ReadDB.QueryContext(ctx, `
		SELECT id, domain, path, category_key, duration_seconds, created_at
		FROM requests_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trigger records: %w", err)
	}
	defer rows.Close()

	var records []core.TriggerRecord
	for rows.Next() {
		var r core.TriggerRecord
		var path sql.NullString
		if err := rows.Scan(&r.ID, &r.Domain, &path, &r.CategoryKey, &r.DurationSeconds, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trigger record: %w", err)
		}
		r.Path = path.String
		records = append(records, r)
	}
	return records, rows.Err()
}
