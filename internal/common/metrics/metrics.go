// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ApplicationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_applications_submitted_total",
			Help: "Total number of loan applications accepted by the gate",
		},
		[]string{"loan_purpose"},
	)

	ApplicationsRefused = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_applications_refused_total",
			Help: "Total number of submissions refused while a block window was active",
		},
		[]string{"status"},
	)

	ApplicationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_application_decisions_total",
			Help: "Eligibility decisions by outcome",
		},
		[]string{"status"},
	)

	VerificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_verification_attempts_total",
			Help: "SMS code submissions by result",
		},
		[]string{"result"},
	)

	SMSSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_sms_sent_total",
			Help: "Verification SMS deliveries by reason and outcome",
		},
		[]string{"reason", "outcome"},
	)

	Resets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_resets_total",
			Help: "Reset flow steps reached",
		},
		[]string{"step"},
	)

	TrackingEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_tracking_events_total",
			Help: "Analytics events sent by outcome",
		},
		[]string{"event", "outcome"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnel_http_request_duration_seconds",
			Help:    "Duration of funnel HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "funnel_http_requests_active",
			Help: "Number of in-flight funnel HTTP requests",
		},
	)
)
