package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Compute worker metrics
	ComputeJobs        *prometheus.CounterVec // result: "completed", "empty", "failed"
	ComputeJobDuration prometheus.Histogram

	// Embedding client metrics
	EmbeddingCalls *prometheus.CounterVec // status: "success", "failure"

	// Read path metrics
	CacheReads *prometheus.CounterVec // outcome: "fresh", "stale", "missing"
}

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	return &Metrics{
		ComputeJobs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "peerlink_compute_jobs_total",
			Help: "Total number of recommendation compute jobs by result",
		}, []string{"result"}),

		ComputeJobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "peerlink_compute_job_duration_seconds",
			Help:    "Recommendation compute job duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // backfill can dominate
		}),

		EmbeddingCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "peerlink_embedding_calls_total",
			Help: "Total number of embedding service calls by status",
		}, []string{"status"}),

		CacheReads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "peerlink_recommendation_cache_reads_total",
			Help: "Recommendation cache read outcomes",
		}, []string{"outcome"}),
	}
}
