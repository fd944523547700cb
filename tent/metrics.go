package tent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("tent")

var resolutionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tentrss_resolve",
	Help: "Tent entity resolutions",
}, []string{"resolver", "status"})

var resolutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "tentrss_resolve_duration",
	Help:    "Time to resolve an entity to its posts",
	Buckets: prometheus.ExponentialBucketsRange(0.001, 30, 20),
}, []string{"resolver", "status"})

var candidateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tentrss_candidate_rejections",
	Help: "Profile links and API roots skipped during resolution",
}, []string{"stage"})

var cacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tentrss_cache_hits",
	Help: "Number of cache hits for entity resolutions",
})

var cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tentrss_cache_misses",
	Help: "Number of cache misses for entity resolutions",
})

var cacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tentrss_cache_errors",
	Help: "Cache backend failures, by operation",
}, []string{"op"})
