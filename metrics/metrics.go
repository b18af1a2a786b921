package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatintel_cache_operations_total",
			Help: "Total number of feed cache operations by backend and outcome",
		},
		[]string{"backend", "op"},
	)

	FeedFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatintel_feed_fetches_total",
			Help: "Total number of feed fetches by source (cache, network, error)",
		},
		[]string{"feed", "source"},
	)

	FeedFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threatintel_feed_fetch_duration_seconds",
			Help:    "Time taken to fetch one feed",
			Buckets: prometheus.DefBuckets,
		},
	)

	FeedIOCs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "threatintel_feed_iocs",
			Help: "Number of IOCs extracted from each feed in the last run",
		},
		[]string{"feed"},
	)

	IOCsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "threatintel_iocs_total",
			Help: "Sum of per-feed IOC counts in the last run, before deduplication",
		},
	)

	IOCsUnique = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "threatintel_iocs_unique",
			Help: "Number of unique IOCs in the last run",
		},
	)

	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threatintel_aggregation_duration_seconds",
			Help:    "Time taken by a full aggregation run",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatintel_api_requests_total",
			Help: "Total number of query service requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
