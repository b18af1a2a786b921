package bootstrap

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"threatintel/config"

	"go.uber.org/zap"
)

// OutputDirectories returns the directories the materializer writes into.
func OutputDirectories(cfg *config.Config) []string {
	seen := map[string]bool{}
	var dirs []string
	for _, p := range []string{cfg.Output.FrontendPath, cfg.Output.APIPath} {
		dir := filepath.Dir(p)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// EnsureOutputDirectories creates the output directories and verifies they
// are writable. This is a pre-flight check that runs before a run starts.
func EnsureOutputDirectories(cfg *config.Config, sugar *zap.SugaredLogger) error {
	for _, dir := range OutputDirectories(cfg) {
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve absolute path for %s: %w", dir, err)
		}

		if err := os.MkdirAll(absPath, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w\n"+
				"  Remediation: Ensure the parent directory exists and is writable\n"+
				"  For Docker: Check volume mount permissions\n"+
				"  For bare metal: Run 'mkdir -p %s && chmod 755 %s'", dir, err, absPath, absPath)
		}

		testFile := filepath.Join(absPath, ".threatintel_write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			return fmt.Errorf("directory %s is not writable: %w\n"+
				"  Remediation: Check file system permissions\n"+
				"  For bare metal: Run 'chmod -R u+w %s'", dir, err, absPath)
		}
		os.Remove(testFile)

		sugar.Debugw("Output directory ready", "path", absPath)
	}
	return nil
}

// ClassifyConnectionError provides specific error messages based on the type of connection failure.
func ClassifyConnectionError(err error, service, addr string) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("Connection to %s at %s timed out.\n"+
			"  Remediation:\n"+
			"  - Check that %s is running and reachable\n"+
			"  - Verify network connectivity: nc -zv %s", service, addr, service, addr)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
			(opErr.Err != nil && containsIgnoreCase(opErr.Err.Error(), "connection refused")) {
			return fmt.Sprintf("Connection refused by %s at %s.\n"+
				"  This usually means %s is not running.\n"+
				"  Remediation:\n"+
				"  - Start %s or switch cache.backend to file\n"+
				"  - Verify the address is correct in config.yaml", service, addr, service, service)
		}
	}

	if containsIgnoreCase(errStr, "no such host") || containsIgnoreCase(errStr, "lookup") {
		return fmt.Sprintf("Cannot resolve hostname in %s address %s.\n"+
			"  Remediation:\n"+
			"  - Verify the hostname is correct\n"+
			"  - Check DNS configuration", service, addr)
	}

	if containsIgnoreCase(errStr, "auth") || containsIgnoreCase(errStr, "password") {
		return fmt.Sprintf("Authentication failed for %s at %s.\n"+
			"  Remediation:\n"+
			"  - Verify the password in config.yaml or THREATINTEL_CACHE_REDIS_PASSWORD", service, addr)
	}

	return fmt.Sprintf("Failed to connect to %s at %s: %v", service, addr, err)
}

// ClassifySQLiteError provides specific error messages based on the type of SQLite failure.
func ClassifySQLiteError(err error, dbPath string) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()
	absPath, _ := filepath.Abs(dbPath)

	if containsIgnoreCase(errStr, "permission denied") || containsIgnoreCase(errStr, "access denied") {
		return fmt.Sprintf("Permission denied accessing SQLite cache at %s.\n"+
			"  Remediation:\n"+
			"  - Check file permissions: ls -la %s\n"+
			"  - Check directory permissions: ls -la %s", absPath, absPath, filepath.Dir(absPath))
	}

	if containsIgnoreCase(errStr, "database is locked") || containsIgnoreCase(errStr, "SQLITE_BUSY") {
		return fmt.Sprintf("SQLite cache at %s is locked by another process.\n"+
			"  Possible causes:\n"+
			"  - Another aggregation run is in progress\n"+
			"  - A crashed process left a stale lock", absPath)
	}

	if containsIgnoreCase(errStr, "not a database") || containsIgnoreCase(errStr, "malformed") {
		return fmt.Sprintf("SQLite cache at %s is corrupt.\n"+
			"  Remediation:\n"+
			"  - The cache holds only re-fetchable data; delete the file and rerun", absPath)
	}

	return fmt.Sprintf("Failed to open SQLite cache at %s: %v", absPath, err)
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
