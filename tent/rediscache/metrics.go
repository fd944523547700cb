package rediscache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var redisCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tentrss_redis_cache_hits",
	Help: "Number of redis cache hits for entity resolutions",
})

var redisCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tentrss_redis_cache_misses",
	Help: "Number of redis cache misses for entity resolutions",
})
