// Package cache keeps a time-boxed snapshot of each feed's raw text so that
// repeated runs within the TTL do not hit the network.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"threatintel/core"
	"threatintel/metrics"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by a Backend when no record exists for a key
	ErrNotFound = errors.New("cache entry not found")
	// ErrUnknownBackend is returned when the configured backend name is not supported
	ErrUnknownBackend = errors.New("unknown cache backend")
)

// Backend is a flat keyed record store. Keys are always produced by Key and
// are safe for every backend without further escaping.
type Backend interface {
	// Name identifies the backend in logs and metrics
	Name() string

	// Read returns the raw record for key or ErrNotFound
	Read(ctx context.Context, key string) ([]byte, error)

	// Write replaces the record for key
	Write(ctx context.Context, key string, data []byte) error

	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)

	// Clear removes every record owned by the cache
	Clear(ctx context.Context) error

	Close() error
}

// Key derives the storage key of a feed: lowercase hex SHA-256 of its name.
func Key(feedName string) string {
	sum := sha256.Sum256([]byte(feedName))
	return hex.EncodeToString(sum[:])
}

// Option configures a Store
type Option func(*Store)

// WithTTL overrides the freshness window (default one hour)
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces the wall clock, used by tests to age entries
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCodec sets the record encoding (default JSONCodec)
func WithCodec(codec Codec) Option {
	return func(s *Store) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// Store is the feed cache. It owns CacheEntry lifetime across runs; entries
// are only ever replaced, never evicted.
type Store struct {
	backend Backend
	codec   Codec
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.SugaredLogger
}

// Stats describes the cache contents for operators
type Stats struct {
	Backend string        `json:"backend" yaml:"backend"`
	Codec   string        `json:"codec" yaml:"codec"`
	Entries int           `json:"entries" yaml:"entries"`
	TTL     time.Duration `json:"ttl" yaml:"ttl"`
}

// NewStore creates a Store over backend
func NewStore(backend Backend, logger *zap.SugaredLogger, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		codec:   JSONCodec{},
		ttl:     core.DefaultCacheTTL,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the freshness window
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get returns the entry for feedName when it is present and younger than the
// TTL. Missing, expired and corrupt entries are all reported as absent.
func (s *Store) Get(ctx context.Context, feedName string) (core.CacheEntry, bool) {
	name := s.backend.Name()
	raw, err := s.backend.Read(ctx, Key(feedName))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warnw("Cache read failed, treating as miss", "feed", feedName, "backend", name, "error", err)
			metrics.CacheOperations.WithLabelValues(name, "corrupt").Inc()
			return core.CacheEntry{}, false
		}
		metrics.CacheOperations.WithLabelValues(name, "miss").Inc()
		return core.CacheEntry{}, false
	}

	entry, err := s.codec.Decode(raw)
	if err != nil {
		s.logger.Warnw("Cache entry corrupt, treating as miss", "feed", feedName, "backend", name, "error", err)
		metrics.CacheOperations.WithLabelValues(name, "corrupt").Inc()
		return core.CacheEntry{}, false
	}

	if !entry.Fresh(s.now(), s.ttl) {
		s.logger.Debugw("Cache entry expired", "feed", feedName, "age_seconds", entry.Age(s.now()))
		metrics.CacheOperations.WithLabelValues(name, "expired").Inc()
		return core.CacheEntry{}, false
	}

	metrics.CacheOperations.WithLabelValues(name, "hit").Inc()
	return entry, true
}

// Put stores data for feedName stamped with the current time, replacing any
// prior entry.
func (s *Store) Put(ctx context.Context, feedName, data string) error {
	name := s.backend.Name()
	raw, err := s.codec.Encode(core.NewCacheEntry(data, s.now()))
	if err != nil {
		metrics.CacheOperations.WithLabelValues(name, "write_error").Inc()
		return fmt.Errorf("failed to encode cache entry for %s: %w", feedName, err)
	}

	if err := s.backend.Write(ctx, Key(feedName), raw); err != nil {
		metrics.CacheOperations.WithLabelValues(name, "write_error").Inc()
		return fmt.Errorf("failed to write cache entry for %s: %w", feedName, err)
	}

	metrics.CacheOperations.WithLabelValues(name, "write").Inc()
	return nil
}

// Stats reports the backend and number of stored entries
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	n, err := s.backend.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return Stats{
		Backend: s.backend.Name(),
		Codec:   s.codec.Name(),
		Entries: n,
		TTL:     s.ttl,
	}, nil
}

// Clear drops every cached feed
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear %s cache: %w", s.backend.Name(), err)
	}
	s.logger.Infof("Cleared %s feed cache", s.backend.Name())
	return nil
}

// Close releases the backend
func (s *Store) Close() error {
	return s.backend.Close()
}
