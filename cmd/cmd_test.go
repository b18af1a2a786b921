package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"threatintel/core"
	"threatintel/storage"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// captureOutput redirects command output into a buffer for the test
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := out
	prevNoColor := color.NoColor
	out = buf
	color.NoColor = true
	t.Cleanup(func() {
		out = prev
		color.NoColor = prevNoColor
	})
	return buf
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.Execute()
}

func writeTestConfig(t *testing.T, feedURL string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
feeds:
  - name: Alpha
    url: %[1]s/alpha.txt
  - name: Beta
    url: %[1]s/beta.txt
cache:
  dir: %[2]s/cache
output:
  frontend_path: %[2]s/frontend/iocs.json
  api_path: %[2]s/data/aggregated_iocs.json
log:
  level: error
`, feedURL, dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path, dir
}

func newTestFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/alpha.txt":
			fmt.Fprint(w, "; alpha list\nevil.com\nbad.net\n")
		case "/beta.txt":
			fmt.Fprint(w, "evil.com 2024-01-01\n")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "threatintel", cmd.Use)

	actual := make(map[string]*cobra.Command)
	for _, sub := range cmd.Commands() {
		actual[sub.Name()] = sub
	}
	for _, expected := range []string{"aggregate", "schedule", "serve", "feeds", "cache"} {
		assert.Contains(t, actual, expected, "Missing command: %s", expected)
	}

	assert.NotNil(t, cmd.PersistentFlags().Lookup("json"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("no-color"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("quiet"))

	assert.NotNil(t, actual["aggregate"].Flags().Lookup("no-cache"))
	assert.NotNil(t, actual["aggregate"].Flags().Lookup("progress"))
	assert.NotNil(t, actual["schedule"].Flags().Lookup("cron"))
	assert.NotNil(t, actual["schedule"].Flags().Lookup("metrics-addr"))
	assert.NotNil(t, actual["serve"].Flags().Lookup("port"))
}

func TestFeedsList(t *testing.T) {
	path, _ := writeTestConfig(t, "http://127.0.0.1:8000")

	t.Run("table", func(t *testing.T) {
		buf := captureOutput(t)
		require.NoError(t, execute(t, "feeds", "list", "--config", path))
		assert.Contains(t, buf.String(), "Alpha")
		assert.Contains(t, buf.String(), "http://127.0.0.1:8000/beta.txt")
		assert.Contains(t, buf.String(), "Total: 2 feeds")
	})

	t.Run("json", func(t *testing.T) {
		buf := captureOutput(t)
		require.NoError(t, execute(t, "feeds", "list", "--config", path, "--json"))

		var got []core.FeedDescriptor
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "Alpha", got[0].Name)
	})

	t.Run("yaml", func(t *testing.T) {
		buf := captureOutput(t)
		require.NoError(t, execute(t, "feeds", "list", "--config", path, "--yaml"))

		var got struct {
			Feeds []core.FeedDescriptor `yaml:"feeds"`
		}
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got.Feeds, 2)
		assert.Equal(t, "Beta", got.Feeds[1].Name)
	})
}

func TestFeedsList_MissingConfig(t *testing.T) {
	captureOutput(t)
	err := execute(t, "feeds", "list", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestAggregateThenCache(t *testing.T) {
	srv := newTestFeedServer(t)
	path, dir := writeTestConfig(t, srv.URL)

	buf := captureOutput(t)
	require.NoError(t, execute(t, "aggregate", "--config", path, "--json"))

	var summary runSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &summary))
	assert.Equal(t, 3, summary.Stats.Total)
	assert.Equal(t, 2, summary.Stats.Unique)
	assert.Equal(t, map[string]int{"Alpha": 2, "Beta": 1}, summary.Stats.Feeds)
	assert.Len(t, summary.Outputs, 2)

	snap, err := storage.LoadSnapshot(filepath.Join(dir, "data", "aggregated_iocs.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bad.net", "evil.com"}, snap.IOCs)

	buf.Reset()
	require.NoError(t, execute(t, "cache", "stats", "--config", path, "--json"))
	var stats struct {
		Backend string `json:"backend"`
		Entries int    `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &stats))
	assert.Equal(t, "file", stats.Backend)
	assert.Equal(t, 2, stats.Entries)

	buf.Reset()
	require.NoError(t, execute(t, "cache", "clear", "--config", path))
	assert.Contains(t, buf.String(), "Feed cache cleared")

	buf.Reset()
	require.NoError(t, execute(t, "cache", "stats", "--config", path))
	assert.Contains(t, buf.String(), "Entries:")
	assert.Contains(t, buf.String(), " 0\n")
}

func TestAggregate_NoRunDeadline(t *testing.T) {
	prev := cacheTimeout
	cacheTimeout = 100 * time.Millisecond
	t.Cleanup(func() { cacheTimeout = prev })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(60 * time.Millisecond)
		fmt.Fprintf(w, "%s.example\n", r.URL.Path[1:])
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	body := fmt.Sprintf(`
feeds:
  - name: f1
    url: %[1]s/one
  - name: f2
    url: %[1]s/two
  - name: f3
    url: %[1]s/three
cache:
  dir: %[2]s/cache
output:
  frontend_path: %[2]s/frontend/iocs.json
  api_path: %[2]s/data/aggregated_iocs.json
log:
  level: error
`, srv.URL, dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	buf := captureOutput(t)
	require.NoError(t, execute(t, "aggregate", "--config", path, "--json", "--no-cache"))

	// The run takes longer than any command timeout; every feed still counts
	var summary runSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &summary))
	assert.Equal(t, map[string]int{"f1": 1, "f2": 1, "f3": 1}, summary.Stats.Feeds)
	assert.Equal(t, 3, summary.Stats.Unique)
}

func TestAggregate_Summary(t *testing.T) {
	srv := newTestFeedServer(t)
	path, _ := writeTestConfig(t, srv.URL)

	buf := captureOutput(t)
	require.NoError(t, execute(t, "aggregate", "--config", path, "--progress=false"))

	output := buf.String()
	assert.Contains(t, output, "Unique IOCs:")
	assert.Contains(t, output, "Aggregated 2 unique IOCs from 2 feeds")
}

func TestRenderRunSummary_EmptyFeed(t *testing.T) {
	buf := captureOutput(t)

	stats := core.NewRunStats()
	stats.Record("Up", 3)
	stats.Record("Down", 0)
	stats.Unique = 3
	stats.LastUpdated = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	renderRunSummary(
		&core.AggregatedResult{IOCs: core.NewIOCSet(), Stats: stats},
		[]core.FeedDescriptor{{Name: "Up"}, {Name: "Down"}},
		[]string{"out.json"},
	)

	output := buf.String()
	assert.Contains(t, output, "0 (failed or empty)")
	assert.Contains(t, output, "1/2 feeds contributed nothing")
	assert.Contains(t, output, "2024-05-01 12:00:00 UTC")
}

func TestPrintField(t *testing.T) {
	buf := captureOutput(t)
	printField("Backend", "")
	printField("Entries", "4")
	assert.Contains(t, buf.String(), "Backend:")
	assert.Contains(t, buf.String(), "(not set)")
	assert.Contains(t, buf.String(), "Entries:                  4")
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "Never", formatTime(time.Time{}))
	assert.Equal(t, "2024-01-02 03:04:05 UTC", formatTime(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
}
