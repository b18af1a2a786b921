package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"threatintel/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *core.AggregatedResult {
	stats := core.NewRunStats()
	stats.Record("a", 2)
	stats.Record("b", 2)
	stats.Unique = 3
	stats.LastUpdated = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &core.AggregatedResult{
		IOCs:  core.NewIOCSet("evil.com", "bad.net", "1.2.3.4"),
		Stats: stats,
	}
}

func TestMaterializer_WritesSamePayloadToEveryPath(t *testing.T) {
	dir := t.TempDir()
	frontend := filepath.Join(dir, "frontend", "iocs.json")
	api := filepath.Join(dir, "data", "aggregated_iocs.json")

	m := NewMaterializer(frontend, api)
	require.NoError(t, m.Save(sampleResult()))

	a, err := os.ReadFile(frontend)
	require.NoError(t, err)
	b, err := os.ReadFile(api)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(a, &raw))
	assert.ElementsMatch(t, []string{"iocs", "stats"}, keys(raw))

	stats := raw["stats"].(map[string]any)
	assert.Equal(t, float64(4), stats["total"])
	assert.Equal(t, float64(3), stats["unique"])
	assert.Equal(t, "2026-01-02T03:04:05Z", stats["last_updated"])
	assert.Equal(t, map[string]any{"a": float64(2), "b": float64(2)}, stats["feeds"])
}

func TestMaterializer_OverwritesPriorContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"iocs":["old.example","stale.example"],"stats":{}}`), 0644))

	m := NewMaterializer(path)
	require.NoError(t, m.Save(sampleResult()))

	snap, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2.3.4", "bad.net", "evil.com"}, snap.IOCs)
	require.NotNil(t, snap.Stats)
	assert.Equal(t, 3, snap.Stats.Unique)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestMaterializer_EmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	result := &core.AggregatedResult{IOCs: core.NewIOCSet(), Stats: core.NewRunStats()}

	require.NoError(t, NewMaterializer(path).Save(result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"iocs":[]`)
}

func TestMaterializer_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(blocker, "sub", "out.json")

	err := NewMaterializer(bad, good).Save(sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)

	_, statErr := os.Stat(good)
	assert.NoError(t, statErr, "later paths are still written")
}

func TestNewMaterializer_Defaults(t *testing.T) {
	assert.Equal(t, []string{DefaultFrontendPath, DefaultAPIPath}, NewMaterializer().Paths())
	assert.Equal(t, []string{"x.json"}, NewMaterializer("", "x.json").Paths())
}

func TestLoadSnapshot_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSnapshot(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{"), 0644))
	_, err = LoadSnapshot(corrupt)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{}`), 0644))
	snap, err := LoadSnapshot(empty)
	require.NoError(t, err)
	assert.NotNil(t, snap.IOCs)
	assert.Nil(t, snap.Stats)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
