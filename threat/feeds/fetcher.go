package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"threatintel/core"
	"threatintel/metrics"

	"go.uber.org/zap"
)

const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultUserAgent    = "ThreatIntelAggregator/1.0"
)

// =============================================================================
// HTTP Fetcher
// =============================================================================

// HTTPFetcher fetches feeds over plain HTTP GET, consulting the cache first.
// It makes exactly one attempt per call.
type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	cache      FeedCache
	logger     *zap.SugaredLogger
}

// FetcherOption configures an HTTPFetcher
type FetcherOption func(*HTTPFetcher)

// WithTimeout bounds each request
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if timeout > 0 {
			f.httpClient.Timeout = timeout
		}
	}
}

// WithUserAgent overrides the identifying User-Agent header
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the HTTP client entirely
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// NewHTTPFetcher creates a fetcher. cache may be nil, in which case every
// fetch goes to the network.
func NewHTTPFetcher(cache FeedCache, logger *zap.SugaredLogger, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: DefaultFetchTimeout,
		},
		userAgent: DefaultUserAgent,
		cache:     cache,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the raw text of feed. With useCache a fresh cached snapshot is
// returned without touching the network, and a successful download refreshes
// the cache.
func (f *HTTPFetcher) Fetch(ctx context.Context, feed core.FeedDescriptor, useCache bool) FetchResult {
	start := time.Now()
	defer func() {
		metrics.FeedFetchDuration.Observe(time.Since(start).Seconds())
	}()

	useCache = useCache && f.cache != nil

	if useCache {
		if entry, ok := f.cache.Get(ctx, feed.Name); ok {
			f.logger.Debugw("Using cached feed", "feed", feed.Name)
			metrics.FeedFetches.WithLabelValues(feed.Name, string(SourceCache)).Inc()
			return FetchResult{Feed: feed.Name, Data: entry.Data, Source: SourceCache}
		}
	}

	data, err := f.download(ctx, feed.URL)
	if err != nil {
		f.logger.Warnw("Feed fetch failed", "feed", feed.Name, "url", feed.URL, "error", err)
		metrics.FeedFetches.WithLabelValues(feed.Name, "error").Inc()
		return FetchResult{Feed: feed.Name, Source: SourceNone, Err: err}
	}

	if useCache {
		if err := f.cache.Put(ctx, feed.Name, data); err != nil {
			f.logger.Warnw("Failed to cache feed", "feed", feed.Name, "error", err)
		}
	}

	f.logger.Debugw("Fetched feed", "feed", feed.Name, "bytes", len(data), "duration", time.Since(start))
	metrics.FeedFetches.WithLabelValues(feed.Name, string(SourceNetwork)).Inc()
	return FetchResult{Feed: feed.Name, Data: data, Source: SourceNetwork}
}

func (f *HTTPFetcher) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	return string(body), nil
}

// Close releases idle connections
func (f *HTTPFetcher) Close() error {
	f.httpClient.CloseIdleConnections()
	return nil
}
