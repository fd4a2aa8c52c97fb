package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"go.uber.org/zap"
)

func TestContainsIgnoreCase(t *testing.T) {
	tests := []struct {
		s        string
		substr   string
		expected bool
	}{
		{"Hello World", "hello", true},
		{"Hello World", "WORLD", true},
		{"Hello World", "xyz", false},
		{"", "", true},
		{"abc", "", true},
		{"", "abc", false},
		{"connection refused", "Connection Refused", true},
		{"ECONNREFUSED", "econnrefused", true},
	}

	for _, tt := range tests {
		t.Run(tt.s+"_"+tt.substr, func(t *testing.T) {
			result := containsIgnoreCase(tt.s, tt.substr)
			if result != tt.expected {
				t.Errorf("containsIgnoreCase(%q, %q) = %v, want %v", tt.s, tt.substr, result, tt.expected)
			}
		})
	}
}

func TestClassifyConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "nil error returns empty string",
			err:      nil,
			contains: "",
		},
		{
			name:     "timeout",
			err:      fmt.Errorf("ping: %w", context.DeadlineExceeded),
			contains: "timed out",
		},
		{
			name:     "connection refused",
			err:      &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			contains: "Connection refused by Redis",
		},
		{
			name:     "unknown host",
			err:      errors.New("dial tcp: lookup cache.internal: no such host"),
			contains: "Cannot resolve hostname",
		},
		{
			name:     "auth failure",
			err:      errors.New("NOAUTH Authentication required"),
			contains: "Authentication failed",
		},
		{
			name:     "anything else",
			err:      errors.New("boom"),
			contains: "Failed to connect to Redis at localhost:6379: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyConnectionError(tt.err, "Redis", "localhost:6379")
			if tt.contains == "" && result != "" {
				t.Errorf("ClassifyConnectionError() = %q, want empty string", result)
			}
			if tt.contains != "" && !strings.Contains(result, tt.contains) {
				t.Errorf("ClassifyConnectionError() = %q, want to contain %q", result, tt.contains)
			}
		})
	}
}

func TestClassifySQLiteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"nil error returns empty string", nil, ""},
		{"permission", errors.New("open: permission denied"), "Permission denied"},
		{"locked", errors.New("database is locked (5) (SQLITE_BUSY)"), "locked by another process"},
		{"disk full", errors.New("SQLITE_FULL: database or disk is full"), "Disk full"},
		{"corrupt", errors.New("database disk image is malformed"), "corrupted"},
		{"missing path", errors.New("unable to open database file"), "path does not exist"},
		{"read only", errors.New("attempt to write a read-only database"), "read-only"},
		{"fallback", errors.New("boom"), "Failed to initialize SQLite database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifySQLiteError(tt.err, "/data/dhikr.db")
			if tt.contains == "" && result != "" {
				t.Errorf("ClassifySQLiteError() = %q, want empty string", result)
			}
			if tt.contains != "" && !strings.Contains(result, tt.contains) {
				t.Errorf("ClassifySQLiteError() = %q, want to contain %q", result, tt.contains)
			}
		})
	}
}

func TestEnsureDataDirectory(t *testing.T) {
	sugar := zap.NewNop().Sugar()

	t.Run("creates nested directory", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "deeper", "dhikr.db")
		if err := EnsureDataDirectory(dbPath, sugar); err != nil {
			t.Fatalf("EnsureDataDirectory() error = %v", err)
		}
		info, err := os.Stat(filepath.Dir(dbPath))
		if err != nil {
			t.Fatalf("directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", filepath.Dir(dbPath))
		}
		if _, err := os.Stat(filepath.Join(filepath.Dir(dbPath), ".dhikr_write_test")); !os.IsNotExist(err) {
			t.Error("write test file was not cleaned up")
		}
	})

	t.Run("in-memory database needs no directory", func(t *testing.T) {
		if err := EnsureDataDirectory(":memory:", sugar); err != nil {
			t.Errorf("EnsureDataDirectory(:memory:) error = %v", err)
		}
	})

	t.Run("path blocked by a file", func(t *testing.T) {
		base := t.TempDir()
		blocker := filepath.Join(base, "blocker")
		if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := EnsureDataDirectory(filepath.Join(blocker, "dhikr.db"), sugar); err == nil {
			t.Error("expected error when parent path is a regular file")
		}
	})
}
