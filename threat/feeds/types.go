// Package feeds drives the IOC pipeline: fetch raw feed text (through the
// cache), normalize it into tokens, and merge every feed into one run result.
package feeds

import (
	"context"
	"errors"

	"threatintel/core"
)

// =============================================================================
// Fetch Results
// =============================================================================

// FetchSource records where a feed's raw text came from
type FetchSource string

const (
	SourceCache   FetchSource = "cache"
	SourceNetwork FetchSource = "network"
	SourceNone    FetchSource = "none"
)

// FetchResult is the explicit outcome of fetching one feed. A failed fetch
// carries Err and empty Data; callers decide how to degrade.
type FetchResult struct {
	Feed   string
	Data   string
	Source FetchSource
	Err    error
}

// OK reports whether the fetch produced data
func (r FetchResult) OK() bool {
	return r.Err == nil
}

// =============================================================================
// Interfaces
// =============================================================================

// Fetcher retrieves the raw text of one feed
type Fetcher interface {
	Fetch(ctx context.Context, feed core.FeedDescriptor, useCache bool) FetchResult
}

// FeedCache is the subset of the cache store the fetcher depends on
type FeedCache interface {
	Get(ctx context.Context, feedName string) (core.CacheEntry, bool)
	Put(ctx context.Context, feedName, data string) error
}

// =============================================================================
// Progress Callback
// =============================================================================

// ProgressCallback is called during a run to report progress
type ProgressCallback func(eventType string, message string, progress int)

// Progress event types
const (
	ProgressEventStarted   = "started"
	ProgressEventProgress  = "progress"
	ProgressEventFailed    = "failed"
	ProgressEventCompleted = "completed"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrConnectionFailed = errors.New("connection to feed failed")
	ErrUnexpectedStatus = errors.New("unexpected HTTP status from feed")
	ErrReadFailed       = errors.New("failed to read feed body")
	ErrInvalidSchedule  = errors.New("invalid schedule")
)
