// Package observability provides Prometheus metrics and Sentry crash
// reporting for the latchkey server.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// AuthDecisions counts authentication middleware outcomes per scheme.
	AuthDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "latchkey_auth_decisions_total",
			Help: "Authentication decisions",
		},
		[]string{"scheme", "outcome"},
	)

	// RequestDuration records HTTP request duration in seconds by method
	// and status class.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "latchkey_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	// TokensIssued counts credentials handed out per scheme.
	TokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "latchkey_tokens_issued_total",
			Help: "Tokens issued",
		},
		[]string{"scheme"},
	)
)

func init() {
	prometheus.MustRegister(
		AuthDecisions,
		RequestDuration,
		TokensIssued,
	)
}
