package api

import (
	"strings"
	"sync/atomic"
	"time"

	"threatintel/core"
	"threatintel/storage"

	"go.uber.org/zap"
)

// View is one immutable view of the materialized output. A request that needs
// several values takes one View so they all come from the same snapshot.
type View struct {
	snapshot   *core.Snapshot
	lowered    []string
	generation uint64
	loadedAt   time.Time
}

// DataStore is the read-only data context handed to every request. The loaded
// snapshot is never mutated; Reload swaps in a new one atomically.
type DataStore struct {
	path       string
	logger     *zap.SugaredLogger
	current    atomic.Pointer[View]
	generation atomic.Uint64
}

// NewDataStore creates a store backed by the materialized file at path. It
// holds an empty snapshot until Load is called.
func NewDataStore(path string, logger *zap.SugaredLogger) *DataStore {
	d := &DataStore{path: path, logger: logger}
	d.Set(core.EmptySnapshot())
	return d
}

// Path returns the materialized file this store reads
func (d *DataStore) Path() string {
	return d.path
}

// Load reads the materialized output. On failure the store degrades to an
// empty snapshot so the service can still start; the error is returned for
// reporting only.
func (d *DataStore) Load() error {
	snap, err := storage.LoadSnapshot(d.path)
	if err != nil {
		d.logger.Warnw("Failed to load IOC data, serving empty data set", "path", d.path, "error", err)
		d.Set(core.EmptySnapshot())
		return err
	}
	d.Set(snap)
	d.logger.Infof("Loaded %d IOCs from %s", len(snap.IOCs), d.path)
	return nil
}

// Reload re-reads the materialized output. Unlike Load, a failed reload keeps
// the data currently being served.
func (d *DataStore) Reload() error {
	snap, err := storage.LoadSnapshot(d.path)
	if err != nil {
		d.logger.Errorw("Reload failed, keeping current IOC data", "path", d.path, "error", err)
		return err
	}
	d.Set(snap)
	d.logger.Infof("Reloaded %d IOCs from %s", len(snap.IOCs), d.path)
	return nil
}

// Set installs snap as the served data
func (d *DataStore) Set(snap *core.Snapshot) {
	if snap == nil {
		snap = core.EmptySnapshot()
	}
	lowered := make([]string, len(snap.IOCs))
	for i, ioc := range snap.IOCs {
		lowered[i] = strings.ToLower(ioc)
	}
	d.current.Store(&View{
		snapshot:   snap,
		lowered:    lowered,
		generation: d.generation.Add(1),
		loadedAt:   time.Now().UTC(),
	})
}

// View returns the currently served data
func (d *DataStore) View() *View {
	return d.current.Load()
}

// Snapshot returns the currently served snapshot
func (d *DataStore) Snapshot() *core.Snapshot {
	return d.View().snapshot
}

// Generation changes every time a new snapshot is installed
func (d *DataStore) Generation() uint64 {
	return d.View().generation
}

// LoadedAt returns when the current snapshot was installed
func (d *DataStore) LoadedAt() time.Time {
	return d.View().loadedAt
}

// Search runs View.Search on the currently served data
func (d *DataStore) Search(query string, limit int) []string {
	return d.View().Search(query, limit)
}

// Snapshot returns the snapshot of this view
func (v *View) Snapshot() *core.Snapshot {
	return v.snapshot
}

// Generation identifies the snapshot of this view
func (v *View) Generation() uint64 {
	return v.generation
}

// Search returns up to limit IOCs containing query, compared case
// insensitively, in stored order. query must already be lowercased.
func (v *View) Search(query string, limit int) []string {
	results := make([]string, 0, min(limit, len(v.lowered)))
	for i, lowered := range v.lowered {
		if len(results) >= limit {
			break
		}
		if strings.Contains(lowered, query) {
			results = append(results, v.snapshot.IOCs[i])
		}
	}
	return results
}
