package bootstrap

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// EnsureDataDirectory creates the directory holding the SQLite database
// and verifies it is writable. In-memory databases need no directory.
func EnsureDataDirectory(sqlitePath string, sugar *zap.SugaredLogger) error {
	if sqlitePath == ":memory:" {
		return nil
	}

	absPath, err := filepath.Abs(filepath.Dir(sqlitePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path for %s: %w", sqlitePath, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w\n"+
			"  Remediation: Ensure the parent directory exists and is writable\n"+
			"  For Docker: Check volume mount permissions\n"+
			"  For bare metal: Run 'mkdir -p %s && chmod 755 %s'", absPath, err, absPath, absPath)
	}

	testFile := filepath.Join(absPath, ".dhikr_write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return fmt.Errorf("directory %s is not writable: %w\n"+
			"  Remediation: Check file system permissions\n"+
			"  For Docker: Ensure volume is mounted with write access\n"+
			"  For bare metal: Run 'chmod -R u+w %s'", absPath, err, absPath)
	}
	_ = os.Remove(testFile)

	sugar.Infow("Data directory ready", "path", absPath)
	return nil
}

// ClassifyConnectionError provides specific error messages based on the type of
// connection failure to a network backend (ClickHouse or Redis).
func ClassifyConnectionError(err error, service, addr string) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("Connection to %s at %s timed out.\n"+
			"  Possible causes:\n"+
			"  - %s is starting up (wait and retry)\n"+
			"  - Network latency or firewall blocking the connection\n"+
			"  Remediation:\n"+
			"  - Verify network connectivity: nc -zv %s", service, addr, service, addr)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
			(opErr.Err != nil && containsIgnoreCase(opErr.Err.Error(), "connection refused")) {
			return fmt.Sprintf("Connection refused by %s at %s.\n"+
				"  This usually means %s is not running.\n"+
				"  Remediation:\n"+
				"  - Start it: docker compose up -d %s\n"+
				"  - Verify the address is correct in config.yaml", service, addr, service, strings.ToLower(service))
		}
	}

	if containsIgnoreCase(errStr, "no such host") || containsIgnoreCase(errStr, "lookup") {
		return fmt.Sprintf("Cannot resolve hostname in %s address %s.\n"+
			"  Remediation:\n"+
			"  - Verify the hostname is correct\n"+
			"  - Check DNS configuration", service, addr)
	}

	if containsIgnoreCase(errStr, "authentication") || containsIgnoreCase(errStr, "password") || containsIgnoreCase(errStr, "denied") || containsIgnoreCase(errStr, "NOAUTH") {
		return fmt.Sprintf("Authentication failed for %s at %s.\n"+
			"  Remediation:\n"+
			"  - Verify the credentials in config.yaml or DHIKR_* env vars", service, addr)
	}

	return fmt.Sprintf("Failed to connect to %s at %s: %v\n"+
		"  Remediation:\n"+
		"  - Ensure %s is running and accessible\n"+
		"  - Verify network connectivity", service, addr, err, service)
}

// ClassifySQLiteError provides specific error messages based on the type of SQLite failure.
func ClassifySQLiteError(err error, dbPath string) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()
	absPath, _ := filepath.Abs(dbPath)
	parentDir := filepath.Dir(absPath)

	switch {
	case containsIgnoreCase(errStr, "permission denied") || containsIgnoreCase(errStr, "access denied"):
		return fmt.Sprintf("Permission denied accessing SQLite database at %s.\n"+
			"  Remediation:\n"+
			"  - Check file permissions: ls -la %s\n"+
			"  - Check directory permissions: ls -la %s\n"+
			"  - For Docker: Ensure volume is mounted with proper user permissions",
			absPath, absPath, parentDir)
	case containsIgnoreCase(errStr, "database is locked") || containsIgnoreCase(errStr, "SQLITE_BUSY"):
		return fmt.Sprintf("SQLite database at %s is locked by another process.\n"+
			"  Remediation:\n"+
			"  - Check for running dhikr processes: ps aux | grep dhikr\n"+
			"  - Check for lock files: ls -la %s*", absPath, absPath)
	case containsIgnoreCase(errStr, "disk full") || containsIgnoreCase(errStr, "no space") || containsIgnoreCase(errStr, "SQLITE_FULL"):
		return fmt.Sprintf("Disk full - cannot write to SQLite database at %s.\n"+
			"  Remediation:\n"+
			"  - Check available disk space: df -h %s", absPath, parentDir)
	case containsIgnoreCase(errStr, "corrupt") || containsIgnoreCase(errStr, "malformed") || containsIgnoreCase(errStr, "SQLITE_CORRUPT"):
		return fmt.Sprintf("SQLite database at %s appears to be corrupted.\n"+
			"  Remediation:\n"+
			"  - Check integrity: sqlite3 %s \"PRAGMA integrity_check;\"\n"+
			"  - Restore from backup, or delete the file to start empty (rules are re-seeded, analytics are lost)",
			absPath, absPath)
	case containsIgnoreCase(errStr, "no such file or directory") || containsIgnoreCase(errStr, "unable to open"):
		return fmt.Sprintf("Cannot open SQLite database - path does not exist: %s.\n"+
			"  Remediation:\n"+
			"  - Create the parent directory: mkdir -p %s\n"+
			"  - Verify DHIKR_SQLITE_PATH", absPath, parentDir)
	case containsIgnoreCase(errStr, "read-only"):
		return fmt.Sprintf("SQLite database location is on a read-only file system: %s.\n"+
			"  Remediation:\n"+
			"  - Move the database to a writable location via DHIKR_SQLITE_PATH", absPath)
	}

	return fmt.Sprintf("Failed to initialize SQLite database at %s: %v\n"+
		"  Remediation:\n"+
		"  - Ensure the directory %s exists and is writable", absPath, err, parentDir)
}

// containsIgnoreCase checks if a string contains a substring (case-insensitive).
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
