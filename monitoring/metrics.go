package monitoring

import "github.com/prometheus/client_golang/prometheus"

var (
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	TimelinePagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timeline_pages_total",
			Help: "Total number of timeline pages served",
		},
	)

	ImageCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "image_cache_hits_total",
			Help: "Image resolutions served from the in-memory cache",
		},
	)

	ImageCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "image_cache_misses_total",
			Help: "Image resolutions that had to hit the blob store",
		},
	)

	UploadsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "uploads_in_flight",
			Help: "Number of photo uploads currently running",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HttpRequestsTotal,
		HttpRequestDuration,
		ActiveConnections,
		TimelinePagesTotal,
		ImageCacheHits,
		ImageCacheMisses,
		UploadsInFlight,
	)
}
