// Package observability provides the Prometheus collectors and OpenTelemetry tracer shared by the application.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animeverse_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by key family and result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animeverse_cache_lookups_total",
		Help: "Cache-aside lookups by key family and result",
	}, []string{"family", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "animeverse_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostViews counts detail page views that incremented a post's view counter.
	PostViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "animeverse_post_views_total",
		Help: "Total number of post detail views recorded",
	})

	// ImageOptimizations counts image post-processing runs by bucket and result.
	ImageOptimizations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animeverse_image_optimizations_total",
		Help: "Image optimization runs by bucket and result",
	}, []string{"bucket", "result"})

	// ImageOptimizationDuration records how long a single image optimization takes.
	ImageOptimizationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "animeverse_image_optimization_duration_seconds",
		Help:    "Duration of image optimization runs",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"bucket"})

	// NewsletterSignups counts newsletter subscribe attempts by result.
	NewsletterSignups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "animeverse_newsletter_signups_total",
		Help: "Newsletter subscribe attempts by result",
	}, []string{"result"})

	// CommentsSubmitted counts comments accepted from the public site.
	CommentsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "animeverse_comments_submitted_total",
		Help: "Total number of comments submitted",
	})

	// ContactMessages counts contact messages accepted from the public site.
	ContactMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "animeverse_contact_messages_total",
		Help: "Total number of contact messages received",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
