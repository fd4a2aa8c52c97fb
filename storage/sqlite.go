package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite holds the SQLite connection pools.
// Writes go through a single-connection pool; reads use a separate
// query_only pool so WAL readers never queue behind the writer.
type SQLite struct {
	DB      *sql.DB // same pool as WriteDB
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Path    string
	Logger  *zap.SugaredLogger
}

// configureSQLiteConnection applies WAL mode, foreign keys and busy timeout to a pool
func configureSQLiteConnection(db *sql.DB, logger *zap.SugaredLogger, dbPath string, poolType string) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Concurrent content-cache upserts wait for the writer instead of failing with SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to query journal mode: %w", err)
	}
	// In-memory databases report "memory"
	if dbPath != ":memory:" && journalMode != "wal" {
		return fmt.Errorf("WAL mode not enabled (got: %s, expected: wal)", journalMode)
	}
	logger.Debugw("SQLite pool configured", "pool", poolType, "journal_mode", journalMode)

	return nil
}

// NewSQLite opens the database, configures both pools and creates the schema
func NewSQLite(dbPath string, logger *zap.SugaredLogger) (*SQLite, error) {
	if err := validateDatabasePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	writeDB, err := sql.Open("sqlite", sqliteDSN(dbPath, false))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite write database: %w", err)
	}
	if err := configureSQLiteConnection(writeDB, logger, dbPath, "write"); err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to configure write connection: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(0)
	writeDB.SetConnMaxIdleTime(10 * time.Minute)

	readDB, err := sql.Open("sqlite", sqliteDSN(dbPath, true))
	if err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to open SQLite read database: %w", err)
	}
	if err := configureSQLiteConnection(readDB, logger, dbPath, "read"); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("failed to configure read connection: %w", err)
	}
	readDB.SetMaxOpenConns(10)
	readDB.SetMaxIdleConns(5)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	readDB.SetConnMaxIdleTime(10 * time.Minute)

	sqlite := &SQLite{
		DB:      writeDB,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Path:    dbPath,
		Logger:  logger,
	}

	if err := sqlite.createTables(); err != nil {
		_ = sqlite.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := sqlite.runMigrations(); err != nil {
		_ = sqlite.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Infow("SQLite storage ready", "path", dbPath)
	return sqlite, nil
}

// WithTransaction runs fn inside a write transaction, rolling back on error or panic
func (s *SQLite) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.WriteDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction (original error: %w, rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// createTables creates all necessary tables
func (s *SQLite) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reminder_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain_pattern TEXT NOT NULL,
		path_pattern TEXT,
		category_key TEXT NOT NULL,
		verse_ref TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reminder_rules_domain ON reminder_rules(domain_pattern);

	-- (reference, lang) is the cache key; concurrent misses upsert onto the same row
	CREATE TABLE IF NOT EXISTS reminder_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		verse_ref TEXT NOT NULL,
		lang TEXT NOT NULL,
		verse_text TEXT NOT NULL,
		translation TEXT NOT NULL DEFAULT '',
		audio_url TEXT NOT NULL DEFAULT '',
		fetched_at DATETIME NOT NULL,
		UNIQUE(verse_ref, lang)
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id TEXT PRIMARY KEY,
		url_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		category_key TEXT,
		duration_seconds INTEGER NOT NULL CHECK (duration_seconds >= 0),
		region TEXT NOT NULL,
		day TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analytics_events_day ON analytics_events(day);
	CREATE INDEX IF NOT EXISTS idx_analytics_events_url_id ON analytics_events(url_id);

	CREATE TABLE IF NOT EXISTS requests_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		path TEXT,
		category_key TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL CHECK (duration_seconds >= 0),
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_log_created_at ON requests_log(created_at);
	`

	if _, err := s.WriteDB.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes both connection pools
func (s *SQLite) Close() error {
	var writeErr, readErr error
	if s.WriteDB != nil {
		writeErr = s.WriteDB.Close()
	}
	if s.ReadDB != nil {
		readErr = s.ReadDB.Close()
	}

	if writeErr != nil {
		return fmt.Errorf("failed to close write pool: %w", writeErr)
	}
	if readErr != nil {
		return fmt.Errorf("failed to close read pool: %w", readErr)
	}
	return nil
}

// HealthCheck verifies the database connection is alive
func (s *SQLite) HealthCheck(ctx context.Context) error {
	if s.ReadDB == nil {
		return ErrDatabaseClosed
	}
	return s.ReadDB.PingContext(ctx)
}

// validateDatabasePath rejects paths that could escape the data directory
func validateDatabasePath(dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if dbPath == ":memory:" {
		return nil
	}
	if len(dbPath) > 512 {
		return fmt.Errorf("database path exceeds maximum length of 512 characters")
	}
	if strings.Contains(dbPath, "\x00") {
		return fmt.Errorf("null bytes not allowed in path")
	}
	for _, part := range strings.Split(filepath.ToSlash(dbPath), "/") {
		if part == ".." {
			return fmt.Errorf("path traversal not allowed (..): %s", dbPath)
		}
	}
	return nil
}

// sqliteDSN builds a DSN whose pragmas apply to every pooled connection,
// not only the one that happened to run the PRAGMA statements.
func sqliteDSN(dbPath string, readOnly bool) string {
	// Without shared cache every pool would get its own empty in-memory database
	dsn := dbPath + "?"
	if dbPath == ":memory:" {
		dsn = "file::memory:?cache=shared&"
	}
	dsn += "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if readOnly {
		dsn += "&_pragma=query_only(1)"
	}
	return dsn
}

// nullString maps "" to SQL NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
