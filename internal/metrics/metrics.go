package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	accessGrantedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argus_access_granted_total",
		Help: "Total number of access decisions that ended in a grant",
	})
	accessDeniedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argus_access_denied_total",
		Help: "Total number of access decisions that ended in a denial",
	})
	authFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argus_auth_failures_total",
		Help: "Total number of failed authentication attempts",
	})
	auditWriteErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argus_audit_write_errors_total",
		Help: "Total number of audit events that could not be persisted",
	})
	rateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argus_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		accessGrantedTotal,
		accessDeniedTotal,
		authFailuresTotal,
		auditWriteErrorsTotal,
		rateLimitedTotal,
	)
}

// IncAccessGranted increments the granted decisions counter.
func IncAccessGranted() { accessGrantedTotal.Inc() }

// IncAccessDenied increments the denied decisions counter.
func IncAccessDenied() { accessDeniedTotal.Inc() }

// IncAuthFailure increments the failed authentication counter.
func IncAuthFailure() { authFailuresTotal.Inc() }

// IncAuditWriteError increments the audit write failure counter.
func IncAuditWriteError() { auditWriteErrorsTotal.Inc() }

// IncRateLimited increments the rate limited requests counter.
func IncRateLimited() { rateLimitedTotal.Inc() }
