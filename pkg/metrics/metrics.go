package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "jobs_total",
			Help:      "Finished generation jobs by terminal status and error label",
		},
		[]string{"status", "label"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quizgen",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each generation stage in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	ParseStrategyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "parse_strategy_total",
			Help:      "Output parser outcomes by winning strategy",
		},
		[]string{"strategy"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	VectorCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "vector_cache_total",
			Help:      "Dense index cache hits and misses per passage set",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	LockAcquireTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "lock_acquire_total",
			Help:      "Job lock acquisition attempts by outcome",
		},
		[]string{"result"}, // "acquired" / "held" / "degraded"
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			JobsTotal,
			StageDuration,
			ParseStrategyTotal,
			EmbeddingRequestsTotal,
			VectorCacheTotal,
			LockAcquireTotal,
		)
	})
}
