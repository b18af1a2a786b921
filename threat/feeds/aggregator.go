package feeds

import (
	"context"
	"fmt"
	"time"

	"threatintel/core"
	"threatintel/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// Aggregator
// =============================================================================

// Aggregator runs fetch and normalize over a feed list, one feed at a time in
// configuration order, and merges the tokens into a deduplicated set.
type Aggregator struct {
	fetcher  Fetcher
	useCache bool
	now      func() time.Time
	progress ProgressCallback
	logger   *zap.SugaredLogger
}

// AggregatorOption configures an Aggregator
type AggregatorOption func(*Aggregator)

// WithUseCache toggles cache consultation (default on)
func WithUseCache(useCache bool) AggregatorOption {
	return func(a *Aggregator) {
		a.useCache = useCache
	}
}

// WithClock sets the clock used for stats.last_updated
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithProgress registers a per-feed progress callback
func WithProgress(cb ProgressCallback) AggregatorOption {
	return func(a *Aggregator) {
		a.progress = cb
	}
}

// NewAggregator creates an aggregator over fetcher
func NewAggregator(fetcher Fetcher, logger *zap.SugaredLogger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		fetcher:  fetcher,
		useCache: true,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run aggregates feeds into a fresh result. It always completes: a feed that
// fails to fetch is recorded with a count of 0 and iteration continues.
func (a *Aggregator) Run(ctx context.Context, feeds []core.FeedDescriptor) *core.AggregatedResult {
	start := time.Now()
	runID := uuid.New().String()
	log := a.logger.With("run_id", runID)

	result := &core.AggregatedResult{
		IOCs:  core.NewIOCSet(),
		Stats: core.NewRunStats(),
	}

	log.Infof("Starting aggregation of %d feeds (cache=%t)", len(feeds), a.useCache)
	a.report(ProgressEventStarted, fmt.Sprintf("Aggregating %d feeds", len(feeds)), 0)

	failed := 0
	for i, feed := range feeds {
		fetched := a.fetcher.Fetch(ctx, feed, a.useCache)

		var iocs []string
		if fetched.OK() {
			iocs = Normalize(fetched.Data)
		} else {
			failed++
			log.Warnw("Feed contributed no IOCs", "feed", feed.Name, "reason", fetched.Err)
			a.report(ProgressEventFailed, fmt.Sprintf("%s: %v", feed.Name, fetched.Err), percent(i+1, len(feeds)))
		}

		result.Stats.Record(feed.Name, len(iocs))
		added := result.IOCs.AddAll(iocs)
		metrics.FeedIOCs.WithLabelValues(feed.Name).Set(float64(len(iocs)))

		log.Infow("Processed feed",
			"feed", feed.Name,
			"source", fetched.Source,
			"count", len(iocs),
			"new_unique", added)
		if fetched.OK() {
			a.report(ProgressEventProgress, fmt.Sprintf("%s: %d IOCs", feed.Name, len(iocs)), percent(i+1, len(feeds)))
		}
	}

	result.Stats.Unique = result.IOCs.Len()
	result.Stats.LastUpdated = a.now().UTC()

	metrics.IOCsTotal.Set(float64(result.Stats.Total))
	metrics.IOCsUnique.Set(float64(result.Stats.Unique))
	metrics.AggregationDuration.Observe(time.Since(start).Seconds())

	log.Infof("Aggregation complete: %d total, %d unique, %d/%d feeds failed in %v",
		result.Stats.Total, result.Stats.Unique, failed, len(feeds), time.Since(start))
	a.report(ProgressEventCompleted,
		fmt.Sprintf("Aggregated %d unique IOCs from %d feeds", result.Stats.Unique, len(feeds)), 100)

	return result
}

func (a *Aggregator) report(event, message string, progress int) {
	if a.progress != nil {
		a.progress(event, message, progress)
	}
}

func percent(done, total int) int {
	if total == 0 {
		return 100
	}
	return done * 100 / total
}
