package storage

import (
	"context"
	"database/sql"
	"fmt"

	"dhikr/core"

	"go.uber.org/zap"
)

// SQLiteRuleStorage reads and seeds reminder rules.
// Rules are written once at startup and are read-only afterwards.
type SQLiteRuleStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteRuleStorage creates a rule store on top of an open database
func NewSQLiteRuleStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteRuleStorage {
	return &SQLiteRuleStorage{sqlite: sqlite, logger: logger}
}

// FindRules returns the rules whose domain_pattern equals domain, in insertion order
func (s *SQLiteRuleStorage) FindRules(ctx context.Context, domain string) ([]core.Rule, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx, `
		SELECT id, domain_pattern, path_pattern, category_key, verse_ref
		FROM reminder_rules
		WHERE domain_pattern = ?
		ORDER BY id`, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules for domain: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// ListRules returns every rule
func (s *SQLiteRuleStorage) ListRules(ctx context.Context) ([]core.Rule, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx, `
		SELECT id, domain_pattern, path_pattern, category_key, verse_ref
		FROM reminder_rules
		ORDER BY domain_pattern, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// CountRules returns the number of stored rules
func (s *SQLiteRuleStorage) CountRules(ctx context.Context) (int, error) {
	var n int
	if err := s.sqlite.ReadDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM reminder_rules").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rules: %w", err)
	}
	return n, nil
}

// SeedRules inserts rules in one transaction when the table is empty.
// It returns the number of rules inserted; an already seeded table is left untouched.
func (s *SQLiteRuleStorage) SeedRules(ctx context.Context, rules []core.Rule) (int, error) {
	for i, r := range rules {
		if err := ValidateSeedRule(r); err != nil {
			return 0, fmt.Errorf("seed rule %d: %w", i, err)
		}
	}

	inserted := 0
	err := s.sqlite.WithTransaction(ctx, func(tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM reminder_rules").Scan(&existing); err != nil {
			return fmt.Errorf("failed to count rules: %w", err)
		}
		if existing > 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO reminder_rules (domain_pattern, path_pattern, category_key, verse_ref)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare rule insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range rules {
			if _, err := stmt.ExecContext(ctx, r.DomainPattern, nullString(r.PathPattern), r.CategoryKey, r.Reference); err != nil {
				return fmt.Errorf("failed to insert rule for %s: %w", r.DomainPattern, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if inserted > 0 {
		s.logger.Infow("Seeded reminder rules", "count", inserted)
	}
	return inserted, nil
}

func scanRules(rows *sql.Rows) ([]core.Rule, error) {
	var rules []core.Rule
	for rows.Next() {
		var r core.Rule
		var path sql.NullString
		if err := rows.Scan(&r.ID, &r.DomainPattern, &path, &r.CategoryKey, &r.Reference); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.PathPattern = path.String
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}
