// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "devdate"

// Enrichment outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Enrichment triggers.
const (
	TriggerLogin  = "login"
	TriggerManual = "manual"
)

// HTTP metrics.
var (
	// RequestsTotal counts handled requests by route pattern, method and status code.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests handled",
		},
		[]string{"route", "method", "status"},
	)

	// RequestDuration measures request latency in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"route", "method"},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected with 429",
		},
	)
)

// Domain metrics.
var (
	// EnrichmentsTotal counts GitHub enrichment attempts by trigger and outcome.
	EnrichmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "GitHub profile enrichment attempts",
		},
		[]string{"trigger", "outcome"},
	)

	// LoginsTotal counts code exchanges by outcome.
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Code exchange attempts",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RateLimitedTotal,
		EnrichmentsTotal,
		LoginsTotal,
	)
}

// ObserveEnrichment records the outcome of one enrichment attempt.
func ObserveEnrichment(trigger string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	EnrichmentsTotal.WithLabelValues(trigger, outcome).Inc()
}
