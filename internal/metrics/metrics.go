// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shortlink"

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Shorten outcomes.
const (
	ShortenCreated  = "created"
	ShortenExisting = "existing"
	ShortenFailed   = "failed"
)

var (
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by result.",
	}, []string{"result"})

	CacheWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_write_failures_total",
		Help:      "Cache writes and invalidations that failed and were ignored.",
	})

	Shortens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shorten_total",
		Help:      "Shorten requests by outcome.",
	}, []string{"outcome"})

	AllocationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "allocation_retries_total",
		Help:      "Short code allocation attempts that had to be retried.",
	})

	IncrementFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_increment_failures_total",
		Help:      "Background access count increments that failed.",
	})

	PurgedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "purged_records_total",
		Help:      "Records removed by the expiry purge.",
	})

	ResolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "resolve_duration_seconds",
		Help:      "Time to resolve a short code, by cache path.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"path"})
)
