package cache

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "The total number of cache hits by key namespace",
		},
		[]string{"namespace"},
	)

	cacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "The total number of cache misses by key namespace",
		},
		[]string{"namespace"},
	)

	upstreamFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_fetches_total",
			Help: "The total number of upstream fetches triggered by cache misses",
		},
		[]string{"namespace"},
	)

	backgroundRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_background_refreshes_total",
			Help: "The total number of half-life background refreshes by outcome",
		},
		[]string{"outcome"},
	)

	invalidatedPatternsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidated_patterns_total",
			Help: "The total number of invalidation patterns issued by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(cacheHitsTotal)
	prometheus.MustRegister(cacheMissesTotal)
	prometheus.MustRegister(upstreamFetchesTotal)
	prometheus.MustRegister(backgroundRefreshesTotal)
	prometheus.MustRegister(invalidatedPatternsTotal)
}

// keyNamespace extracts the leading key segment for metric labels.
func keyNamespace(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
