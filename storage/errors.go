package storage

import (
	"errors"
	"fmt"

	"dhikr/core"
)

// Storage error constants
var (
	// ErrNotFound is a generic "not found" error
	ErrNotFound = errors.New("not found")

	// ErrDatabaseClosed is returned when the database connection is closed
	ErrDatabaseClosed = errors.New("database is closed")

	// ErrInvalidSeedRule is returned when a seed rule is missing fields or has a bad reference
	ErrInvalidSeedRule = errors.New("invalid seed rule")

	// ErrUnknownBackend is returned for an unsupported storage backend name
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrInvalidDuration is returned for a duration outside [0, core.MaxDurationSeconds]
	ErrInvalidDuration = errors.New("invalid duration")
)

// checkDuration keeps sums over a day bounded and fits ClickHouse's UInt32 column
func checkDuration(seconds int) error {
	if seconds < 0 || seconds > core.MaxDurationSeconds {
		return fmt.Errorf("%w: %d seconds", ErrInvalidDuration, seconds)
	}
	return nil
}
