package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal          prometheus.Counter
	cacheMissesTotal        prometheus.Counter
	cacheSharesTotal        prometheus.Counter
	cacheStaleFallbackTotal prometheus.Counter

	metricsOnce sync.Once
)

// InitMetrics registers the cache Prometheus metrics. Call once at startup if
// metrics are wanted; the cache works without them.
func InitMetrics() {
	metricsOnce.Do(func() {
		cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "awscfg_credential_cache_hits_total",
			Help: "Credential requests served from the cache without a refresh",
		})
		cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "awscfg_credential_cache_misses_total",
			Help: "Credential requests that needed a refresh",
		})
		cacheSharesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "awscfg_credential_cache_shares_total",
			Help: "Credential requests coalesced onto an in-flight refresh",
		})
		cacheStaleFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "awscfg_credential_cache_stale_fallback_total",
			Help: "Failed refreshes answered with a stale but unexpired entry",
		})
	})
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
