package bootstrap

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"threatintel/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

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
			assert.Equal(t, tt.expected, containsIgnoreCase(tt.s, tt.substr))
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
			err:      timeoutError{},
			contains: "timed out",
		},
		{
			name:     "connection refused",
			err:      &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			contains: "Connection refused by Redis",
		},
		{
			name:     "dns failure",
			err:      errors.New("dial tcp: lookup redis.invalid: no such host"),
			contains: "Cannot resolve hostname",
		},
		{
			name:     "authentication",
			err:      errors.New("WRONGPASS invalid username-password pair"),
			contains: "Authentication failed",
		},
		{
			name:     "unclassified",
			err:      errors.New("something odd"),
			contains: "Failed to connect to Redis at localhost:6379: something odd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ClassifyConnectionError(tt.err, "Redis", "localhost:6379")
			if tt.contains == "" {
				assert.Empty(t, msg)
				return
			}
			assert.Contains(t, msg, tt.contains)
		})
	}
}

func TestClassifySQLiteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"permission", errors.New("open cache.db: permission denied"), "Permission denied"},
		{"locked", errors.New("database is locked (5) (SQLITE_BUSY)"), "locked by another process"},
		{"corrupt", errors.New("file is not a database"), "is corrupt"},
		{"other", errors.New("disk I/O error"), "Failed to open SQLite cache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, ClassifySQLiteError(tt.err, "cache.db"), tt.contains)
		})
	}

	assert.Empty(t, ClassifySQLiteError(nil, "cache.db"))
}

func TestOutputDirectories(t *testing.T) {
	cfg := &config.Config{}
	cfg.Output.FrontendPath = "out/frontend/iocs.json"
	cfg.Output.APIPath = "out/frontend/api.json"
	assert.Equal(t, []string{"out/frontend"}, OutputDirectories(cfg))

	cfg.Output.APIPath = "out/data/aggregated_iocs.json"
	assert.Equal(t, []string{"out/frontend", "out/data"}, OutputDirectories(cfg))
}

func TestEnsureOutputDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Output.FrontendPath = filepath.Join(dir, "frontend", "iocs.json")
	cfg.Output.APIPath = filepath.Join(dir, "data", "aggregated_iocs.json")

	require.NoError(t, EnsureOutputDirectories(cfg, zap.NewNop().Sugar()))

	for _, sub := range []string{"frontend", "data"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		_, err = os.Stat(filepath.Join(dir, sub, ".threatintel_write_test"))
		assert.True(t, os.IsNotExist(err), "write test file should be removed")
	}
}

func TestEnsureOutputDirectories_ParentIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	cfg := &config.Config{}
	cfg.Output.FrontendPath = filepath.Join(blocker, "iocs.json")
	cfg.Output.APIPath = filepath.Join(dir, "data", "aggregated_iocs.json")

	err := EnsureOutputDirectories(cfg, zap.NewNop().Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Remediation")
}
