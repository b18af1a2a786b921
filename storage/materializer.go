// Package storage persists aggregation results in the layout read by the
// static front-end and the query service.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"threatintel/core"
)

const (
	DefaultFrontendPath = "./frontend/iocs.json"
	DefaultAPIPath      = "./data/aggregated_iocs.json"
)

// Materializer writes the same {iocs, stats} payload to every configured path.
// Each write fully replaces the previous file.
type Materializer struct {
	paths []string
}

// NewMaterializer creates a materializer over paths, falling back to the
// front-end and query service defaults when none are given.
func NewMaterializer(paths ...string) *Materializer {
	var cleaned []string
	for _, p := range paths {
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		cleaned = []string{DefaultFrontendPath, DefaultAPIPath}
	}
	return &Materializer{paths: cleaned}
}

// Paths returns the output locations in write order
func (m *Materializer) Paths() []string {
	return append([]string(nil), m.paths...)
}

// Save serializes result once and writes it to every path. A failure on one
// path does not prevent writing the others; all failures are returned joined.
func (m *Materializer) Save(result *core.AggregatedResult) error {
	if len(m.paths) == 0 {
		return ErrNoOutputPaths
	}

	payload, err := json.Marshal(result.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to serialize aggregated result: %w", err)
	}

	var errs []error
	for _, path := range m.paths {
		if err := writeFileAtomic(path, payload); err != nil {
			errs = append(errs, fmt.Errorf("failed to write %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// LoadSnapshot reads a materialized file. IOCs is never nil on success.
func LoadSnapshot(path string) (*core.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSnapshot, path, err)
	}
	if snap.IOCs == nil {
		snap.IOCs = []string{}
	}
	return &snap, nil
}

// writeFileAtomic writes data next to path and renames it into place so
// readers see either the old or the new file, never a partial one.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	// CreateTemp uses 0600; the output is meant to be served
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
