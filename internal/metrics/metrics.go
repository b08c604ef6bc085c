package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dashboard outcomes.
const (
	OutcomeRedirect = "redirect"
	OutcomeRender   = "render"
	OutcomeInvalid  = "invalid"
)

// Validation outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
)

var (
	DashboardRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growlogin_dashboard_requests_total",
			Help: "Dashboard submissions by outcome",
		},
		[]string{"outcome"},
	)

	DroppedRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "growlogin_dashboard_dropped_records_total",
			Help: "Malformed key|value lines skipped while parsing dashboard bodies",
		},
	)

	ValidateRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growlogin_validate_requests_total",
			Help: "Credential validation requests by outcome",
		},
		[]string{"outcome"},
	)

	PassthroughRedirects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "growlogin_passthrough_redirects_total",
			Help: "Requests redirected to the upstream player API",
		},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "growlogin_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
