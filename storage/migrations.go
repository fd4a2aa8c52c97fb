package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Migration is one versioned schema change applied on top of the base tables
type Migration struct {
	Version     string // Semantic version (e.g., "1.1.0")
	Name        string
	Description string
	Up          func(*sql.Tx) error
	Checksum    string // Derived from version and name; detects renamed migrations
}

// MigrationRecord represents a row in the schema_migrations table
type MigrationRecord struct {
	ID        int64
	Version   string
	Name      string
	Checksum  string
	AppliedAt time.Time
	Duration  int64 // milliseconds
}

// MigrationRunner applies registered migrations in version order, each in its own transaction
type MigrationRunner struct {
	db         *sql.DB
	logger     *zap.SugaredLogger
	migrations []Migration
}

// NewMigrationRunner creates a runner and ensures the tracking table exists
func NewMigrationRunner(db *sql.DB, logger *zap.SugaredLogger) (*MigrationRunner, error) {
	runner := &MigrationRunner{
		db:     db,
		logger: logger,
	}

	if err := runner.ensureMigrationsTable(); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	return runner, nil
}

func (r *MigrationRunner) ensureMigrationsTable() error {
	_, err := r.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		checksum TEXT NOT NULL,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		duration_ms INTEGER NOT NULL DEFAULT 0
	)`)
	return err
}

// Register adds a migration to the runner
func (r *MigrationRunner) Register(m Migration) {
	if m.Checksum == "" {
		m.Checksum = migrationChecksum(m)
	}
	r.migrations = append(r.migrations, m)
}

func migrationChecksum(m Migration) string {
	hash := sha256.Sum256([]byte(m.Version + ":" + m.Name))
	return hex.EncodeToString(hash[:8])
}

// GetAppliedMigrations returns all migrations recorded as applied, oldest version first
func (r *MigrationRunner) GetAppliedMigrations() ([]MigrationRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, version, name, checksum, applied_at, duration_ms
		FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var rec MigrationRecord
		if err := rows.Scan(&rec.ID, &rec.Version, &rec.Name, &rec.Checksum, &rec.AppliedAt, &rec.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// String order would put 1.10.0 before 1.2.0
	sort.Slice(records, func(i, j int) bool {
		return compareVersions(records[i].Version, records[j].Version) < 0
	})
	return records, nil
}

// GetPendingMigrations returns registered migrations that have not been applied, in version order
func (r *MigrationRunner) GetPendingMigrations() ([]Migration, error) {
	applied, err := r.GetAppliedMigrations()
	if err != nil {
		return nil, err
	}

	appliedSet := make(map[string]bool, len(applied))
	for _, rec := range applied {
		appliedSet[rec.Version] = true
	}

	var pending []Migration
	for _, m := range r.migrations {
		if !appliedSet[m.Version] {
			pending = append(pending, m)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return compareVersions(pending[i].Version, pending[j].Version) < 0
	})

	return pending, nil
}

// RunMigrations applies all pending migrations, stopping at the first failure
func (r *MigrationRunner) RunMigrations() error {
	pending, err := r.GetPendingMigrations()
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		r.logger.Debug("No pending migrations")
		return nil
	}

	r.logger.Infow("Running pending migrations", "count", len(pending))

	for _, m := range pending {
		if err := r.runMigration(m); err != nil {
			return fmt.Errorf("migration %s (%s) failed: %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// runMigration applies a single migration and its tracking row atomically.
// A panicking Up is reported as an error.
func (r *MigrationRunner) runMigration(m Migration) (err error) {
	start := time.Now()

	var tx *sql.Tx
	tx, err = r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("migration panicked: %v", p)
		}
	}()

	if err := m.Up(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration Up() failed: %w", err)
	}

	duration := time.Since(start).Milliseconds()
	if _, err := tx.Exec(`
		INSERT INTO schema_migrations (version, name, checksum, applied_at, duration_ms)
		VALUES (?, ?, ?, ?, ?)`,
		m.Version, m.Name, m.Checksum, time.Now().UTC(), duration); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	r.logger.Infow("Migration applied", "version", m.Version, "name", m.Name, "duration_ms", duration)
	return nil
}

// VerifyIntegrity reports applied migrations that no longer match the registry
func (r *MigrationRunner) VerifyIntegrity() ([]string, error) {
	applied, err := r.GetAppliedMigrations()
	if err != nil {
		return nil, err
	}

	registered := make(map[string]Migration, len(r.migrations))
	for _, m := range r.migrations {
		registered[m.Version] = m
	}

	var issues []string
	for _, rec := range applied {
		m, ok := registered[rec.Version]
		if !ok {
			issues = append(issues, fmt.Sprintf("migration %s was applied but is not registered", rec.Version))
			continue
		}
		if m.Checksum != rec.Checksum {
			issues = append(issues, fmt.Sprintf("migration %s checksum mismatch: applied=%s, registered=%s",
				rec.Version, rec.Checksum, m.Checksum))
		}
	}

	return issues, nil
}

// compareVersions compares two semantic versions
// Returns -1 if a < b, 0 if a == b, 1 if a > b
func compareVersions(a, b string) int {
	partsA := strings.Split(a, ".")
	partsB := strings.Split(b, ".")

	maxLen := len(partsA)
	if len(partsB) > maxLen {
		maxLen = len(partsB)
	}

	for i := 0; i < maxLen; i++ {
		var numA, numB int
		if i < len(partsA) {
			fmt.Sscanf(partsA[i], "%d", &numA)
		}
		if i < len(partsB) {
			fmt.Sscanf(partsB[i], "%d", &numB)
		}

		if numA < numB {
			return -1
		}
		if numA > numB {
			return 1
		}
	}
	return 0
}

// validateSQLIdentifier accepts only [A-Za-z_][A-Za-z0-9_]* so identifiers
// can be interpolated into DDL.
func validateSQLIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("SQL identifier cannot be empty")
	}
	if !(name[0] >= 'a' && name[0] <= 'z' || name[0] >= 'A' && name[0] <= 'Z' || name[0] == '_') {
		return fmt.Errorf("invalid SQL identifier %q: must start with letter or underscore", name)
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return fmt.Errorf("invalid SQL identifier %q: contains invalid character at position %d", name, i)
		}
	}
	return nil
}

// createIndexIfNotExists creates an index over a comma separated column list
func createIndexIfNotExists(tx *sql.Tx, indexName, table, columns string) error {
	if err := validateSQLIdentifier(indexName); err != nil {
		return fmt.Errorf("invalid index name: %w", err)
	}
	if err := validateSQLIdentifier(table); err != nil {
		return fmt.Errorf("invalid table name: %w", err)
	}
	for _, col := range strings.Split(columns, ",") {
		if err := validateSQLIdentifier(strings.TrimSpace(col)); err != nil {
			return fmt.Errorf("invalid column name in index: %w", err)
		}
	}

	_, err := tx.Exec(fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", indexName, table, columns))
	return err
}
