// Package metrics exposes Prometheus collectors for the termquery API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation outcomes.
const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusError    = "error"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "termquery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "termquery_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// OperationsTotal counts query operations (date_range, field_exists, index) by outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "termquery_operations_total",
			Help: "Total number of query operations",
		},
		[]string{"operation", "status"},
	)
	// DictionaryReloads counts model file reloads by outcome.
	DictionaryReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "termquery_dictionary_reloads_total",
			Help: "Total number of dictionary model reloads",
		},
		[]string{"status"},
	)
)
