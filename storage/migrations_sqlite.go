package storage

import (
	"database/sql"
)

// RegisterSQLiteMigrations registers all SQLite migrations with the runner
func RegisterSQLiteMigrations(runner *MigrationRunner) {
	// Base tables come from createTables; 1.0.0 only marks that schema as tracked
	runner.Register(Migration{
		Version:     "1.0.0",
		Name:        "initial_schema",
		Description: "Base schema: reminder_rules, reminder_cache, analytics_events, requests_log",
		Up: func(tx *sql.Tx) error {
			return nil
		},
	})

	runner.Register(Migration{
		Version:     "1.1.0",
		Name:        "add_analytics_summary_index",
		Description: "Cover the per-category summary query (WHERE day >= ? GROUP BY category_key)",
		Up: func(tx *sql.Tx) error {
			return createIndexIfNotExists(tx, "idx_analytics_events_day_category", "analytics_events", "day, category_key")
		},
	})

	runner.Register(Migration{
		Version:     "1.2.0",
		Name:        "add_requests_log_category_index",
		Description: "Index trigger records by category",
		Up: func(tx *sql.Tx) error {
			return createIndexIfNotExists(tx, "idx_requests_log_category", "requests_log", "category_key")
		},
	})
}

// runMigrations brings the schema up to the latest registered version
func (s *SQLite) runMigrations() error {
	runner, err := NewMigrationRunner(s.WriteDB, s.Logger)
	if err != nil {
		return err
	}
	RegisterSQLiteMigrations(runner)

	if err := runner.RunMigrations(); err != nil {
		return err
	}

	issues, err := runner.VerifyIntegrity()
	if err != nil {
		return err
	}
	for _, issue := range issues {
		s.Logger.Warnw("Schema migration drift", "issue", issue)
	}
	return nil
}
