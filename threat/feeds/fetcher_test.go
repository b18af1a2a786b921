package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"threatintel/core"
	"threatintel/threat/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// feedServer serves body and counts requests
func feedServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newCacheStore(t *testing.T, clock *testClock) *cache.Store {
	t.Helper()
	backend, err := cache.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return cache.NewStore(backend, zaptest.NewLogger(t).Sugar(), cache.WithClock(clock.Now))
}

func TestHTTPFetcher_NetworkThenCache(t *testing.T) {
	srv, hits := feedServer(t, http.StatusOK, "evil.com\n")
	clock := &testClock{now: time.Unix(1700000000, 0)}
	store := newCacheStore(t, clock)
	fetcher := NewHTTPFetcher(store, zaptest.NewLogger(t).Sugar())
	feed := core.FeedDescriptor{Name: "test", URL: srv.URL}
	ctx := context.Background()

	first := fetcher.Fetch(ctx, feed, true)
	require.True(t, first.OK())
	assert.Equal(t, SourceNetwork, first.Source)
	assert.Equal(t, "evil.com\n", first.Data)

	second := fetcher.Fetch(ctx, feed, true)
	require.True(t, second.OK())
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, "evil.com\n", second.Data)
	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPFetcher_CacheFreshness(t *testing.T) {
	tests := []struct {
		name        string
		age         time.Duration
		wantSource  FetchSource
		wantNetwork int32
	}{
		{"ten seconds old is served from cache", 10 * time.Second, SourceCache, 0},
		{"older than ttl is refetched", time.Hour + 100*time.Millisecond, SourceNetwork, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := feedServer(t, http.StatusOK, "live.example\n")
			clock := &testClock{now: time.Unix(1700000000, 0)}
			store := newCacheStore(t, clock)
			ctx := context.Background()

			require.NoError(t, store.Put(ctx, "feed", "cached.example\n"))
			clock.now = clock.now.Add(tt.age)

			fetcher := NewHTTPFetcher(store, zaptest.NewLogger(t).Sugar())
			res := fetcher.Fetch(ctx, core.FeedDescriptor{Name: "feed", URL: srv.URL}, true)

			require.True(t, res.OK())
			assert.Equal(t, tt.wantSource, res.Source)
			assert.Equal(t, tt.wantNetwork, hits.Load())
		})
	}
}

func TestHTTPFetcher_NoCacheBypassesAndDoesNotWrite(t *testing.T) {
	srv, hits := feedServer(t, http.StatusOK, "live.example\n")
	clock := &testClock{now: time.Unix(1700000000, 0)}
	store := newCacheStore(t, clock)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "feed", "cached.example\n"))

	fetcher := NewHTTPFetcher(store, zaptest.NewLogger(t).Sugar())
	res := fetcher.Fetch(ctx, core.FeedDescriptor{Name: "feed", URL: srv.URL}, false)

	require.True(t, res.OK())
	assert.Equal(t, "live.example\n", res.Data)
	assert.Equal(t, int32(1), hits.Load())

	entry, ok := store.Get(ctx, "feed")
	require.True(t, ok)
	assert.Equal(t, "cached.example\n", entry.Data)
}

func TestHTTPFetcher_SetsUserAgent(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(nil, zaptest.NewLogger(t).Sugar())
	res := fetcher.Fetch(context.Background(), core.FeedDescriptor{Name: "ua", URL: srv.URL}, true)

	require.True(t, res.OK())
	assert.Equal(t, DefaultUserAgent, got.Load())
}

func TestHTTPFetcher_Failures(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		srv, _ := feedServer(t, http.StatusServiceUnavailable, "down")
		fetcher := NewHTTPFetcher(nil, zaptest.NewLogger(t).Sugar())

		res := fetcher.Fetch(context.Background(), core.FeedDescriptor{Name: "x", URL: srv.URL}, false)

		assert.False(t, res.OK())
		assert.ErrorIs(t, res.Err, ErrUnexpectedStatus)
		assert.Equal(t, SourceNone, res.Source)
		assert.Empty(t, res.Data)
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		fetcher := NewHTTPFetcher(nil, zaptest.NewLogger(t).Sugar())
		res := fetcher.Fetch(context.Background(), core.FeedDescriptor{Name: "x", URL: url}, false)

		assert.ErrorIs(t, res.Err, ErrConnectionFailed)
	})

	t.Run("timeout", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-block:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(block)

		fetcher := NewHTTPFetcher(nil, zaptest.NewLogger(t).Sugar(), WithTimeout(50*time.Millisecond))
		res := fetcher.Fetch(context.Background(), core.FeedDescriptor{Name: "slow", URL: srv.URL}, false)

		assert.ErrorIs(t, res.Err, ErrConnectionFailed)
	})

	t.Run("failed fetch is not cached", func(t *testing.T) {
		srv, _ := feedServer(t, http.StatusInternalServerError, "")
		clock := &testClock{now: time.Unix(1700000000, 0)}
		store := newCacheStore(t, clock)
		fetcher := NewHTTPFetcher(store, zaptest.NewLogger(t).Sugar())

		res := fetcher.Fetch(context.Background(), core.FeedDescriptor{Name: "x", URL: srv.URL}, true)
		assert.False(t, res.OK())

		_, ok := store.Get(context.Background(), "x")
		assert.False(t, ok)
	})
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (core.CacheEntry, bool) { return core.CacheEntry{}, false }

func (failingCache) Put(context.Context, string, string) error { return assert.AnError }

func TestHTTPFetcher_CacheWriteFailureDoesNotFailFetch(t *testing.T) {
	srv, _ := feedServer(t, http.StatusOK, "evil.com")
	fetcher := NewHTTPFetcher(failingCache{}, zaptest.NewLogger(t).Sugar())

	res := fetcher.Fetch(context.Background(), core.FeedDescriptor{Name: "x", URL: srv.URL}, true)

	require.True(t, res.OK())
	assert.Equal(t, "evil.com", res.Data)
}
