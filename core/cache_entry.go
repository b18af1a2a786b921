package core

import "time"

// DefaultCacheTTL is how long a fetched feed snapshot stays valid.
const DefaultCacheTTL = time.Hour

// CacheEntry is a point-in-time snapshot of one feed's raw text.
// Timestamp is fractional epoch seconds.
type CacheEntry struct {
	Timestamp float64 `json:"timestamp" msgpack:"timestamp"`
	Data      string  `json:"data" msgpack:"data"`
}

// NewCacheEntry stamps data with now.
func NewCacheEntry(data string, now time.Time) CacheEntry {
	return CacheEntry{
		Timestamp: EpochSeconds(now),
		Data:      data,
	}
}

// EpochSeconds converts t to fractional seconds since the Unix epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Age returns the entry age in seconds relative to now.
func (e CacheEntry) Age(now time.Time) float64 {
	return EpochSeconds(now) - e.Timestamp
}

// Fresh reports whether now - timestamp < ttl.
func (e CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return e.Age(now) < ttl.Seconds()
}
