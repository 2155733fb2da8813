// Package metrics declares the Prometheus collectors shared by the schedule
// pipeline and the HTTP service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "prayer_companion"

var (
	ScheduleFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "schedule_fetches_total", Help: "Timings API fetches by result"},
		[]string{"result"},
	)
	FetchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "schedule_fetch_duration_seconds",
		Help:      "Timings API fetch latency",
		Buckets:   prometheus.DefBuckets,
	})
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "schedule_cache_lookups_total", Help: "Schedule cache lookups by outcome"},
		[]string{"outcome"},
	)
	ActiveTickers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: namespace, Name: "active_tickers", Help: "Running one-second tickers"},
		[]string{"kind"},
	)
	Announcements = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "announcements_total", Help: "Next-prayer descriptors handed to the notifier"},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
