package core

import "time"

// RunStats summarizes one aggregation run.
type RunStats struct {
	// Total is the sum of per-feed counts before deduplication.
	Total int `json:"total"`
	// Unique is the size of the merged set.
	Unique int `json:"unique"`
	// Feeds maps feed name to the number of tokens extracted from it.
	Feeds       map[string]int `json:"feeds"`
	LastUpdated time.Time      `json:"last_updated"`
}

// NewRunStats returns empty stats ready to be filled by a run.
func NewRunStats() RunStats {
	return RunStats{Feeds: make(map[string]int)}
}

// Record adds the count of one feed.
func (s *RunStats) Record(feed string, count int) {
	if s.Feeds == nil {
		s.Feeds = make(map[string]int)
	}
	s.Feeds[feed] = count
	s.Total += count
}

// AggregatedResult is the output of a run. It fully replaces any previously
// materialized result.
type AggregatedResult struct {
	IOCs  IOCSet
	Stats RunStats
}

// Snapshot is the persisted layout shared by the materializer, the static
// front-end and the query service.
type Snapshot struct {
	IOCs  []string  `json:"iocs"`
	Stats *RunStats `json:"stats,omitempty"`
}

// Snapshot converts the result into its persisted form with IOCs sorted.
func (r *AggregatedResult) Snapshot() Snapshot {
	stats := r.Stats
	iocs := r.IOCs.Sorted()
	if iocs == nil {
		iocs = []string{}
	}
	return Snapshot{IOCs: iocs, Stats: &stats}
}

// EmptySnapshot is served when no materialized output could be loaded.
func EmptySnapshot() *Snapshot {
	return &Snapshot{IOCs: []string{}}
}
