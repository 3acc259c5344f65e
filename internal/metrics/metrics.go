// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classlog",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "classlog",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	ReportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classlog",
		Name:      "reports_generated_total",
		Help:      "Reports aggregated by report type.",
	}, []string{"type"})

	ReportExports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classlog",
		Name:      "report_exports_total",
		Help:      "Report exports by format and result.",
	}, []string{"format", "result"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classlog",
		Name:      "cache_lookups_total",
		Help:      "Collection cache lookups by collection and outcome.",
	}, []string{"collection", "outcome"})
)
