package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bankui_backend_requests_total",
			Help: "Total number of requests to the transaction and account services",
		},
		[]string{"operation", "outcome"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bankui_backend_request_duration_seconds",
			Help:    "Duration of requests to the transaction and account services",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bankui_logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	TopupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bankui_topups_total",
			Help: "Top-up submissions by outcome",
		},
		[]string{"outcome"},
	)
)
