// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minisite_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minisite_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Reservation metrics
	ReservationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minisite_reservations_created_total",
			Help: "Total number of slug reservations created or extended",
		},
	)
	ReservationConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minisite_reservation_conflicts_total",
			Help: "Total number of reservation attempts rejected as unavailable",
		},
	)

	// Activation metrics
	ActivationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minisite_activations_total",
			Help: "Total number of successful subscription activations",
		},
	)
	ActivationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minisite_activation_failures_total",
			Help: "Total number of failed subscription activations (rolled back)",
		},
	)
)
