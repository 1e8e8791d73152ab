package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapes_total",
			Help: "Total number of scrape operations.",
		},
		[]string{"mode", "status"}, // mode: incremental, destructive; status: success, failure
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_duration_seconds",
			Help:    "Duration of scrape operations.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)

	ImagesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "images_persisted_total",
			Help: "Total number of images stored.",
		},
	)

	ReferencesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_references_skipped_total",
			Help: "Image references dropped during a scrape.",
		},
		[]string{"reason"}, // fetch, decode, storage
	)

	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_render_duration_seconds",
			Help:    "Duration of on-demand image transforms.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cache"}, // hit, miss
	)
)
