package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tipjar_indexer_build_info",
			Help: "Build information of the tipjar indexer",
		},
		[]string{"version", "commit", "date"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tipjar_indexer_events_published_total",
			Help: "Total number of program events accepted by the sink",
		},
		[]string{"event"},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tipjar_indexer_events_dropped_total",
			Help: "Total number of program events dropped by the sink",
		},
		[]string{"event", "reason"},
	)

	StoreWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tipjar_indexer_store_writes_total",
			Help: "Total number of history store writes",
		},
		[]string{"event", "status"},
	)

	StoreWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tipjar_indexer_store_write_duration_seconds",
			Help:    "Duration of history store writes",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4.1s
		},
	)
)
