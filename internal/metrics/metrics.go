// Package metrics defines the Prometheus collectors of the auth service.
// They are registered with the default registry and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AuthFailuresTotal counts rejected authentications by internal reason.
	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Rejected authentications by reason.",
		},
		[]string{"reason"},
	)

	// TokensIssuedTotal counts issued tokens by type (access, refresh).
	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Issued tokens by type.",
		},
		[]string{"type"},
	)

	// PermissionChecksTotal counts permission guard outcomes.
	PermissionChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_permission_checks_total",
			Help: "Permission checks by permission and outcome.",
		},
		[]string{"permission", "outcome"},
	)

	IntegrityFaultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_integrity_faults_total",
			Help: "Users referencing a role that does not exist.",
		},
	)

	// RateLimitedTotal counts requests rejected by the rate guard per route.
	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected with 429 by route.",
		},
		[]string{"route"},
	)

	// TranslateCacheTotal counts translation cache lookups by result (hit, miss, error).
	TranslateCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translate_cache_total",
			Help: "Translation cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		AuthFailuresTotal,
		TokensIssuedTotal,
		PermissionChecksTotal,
		IntegrityFaultsTotal,
		RateLimitedTotal,
		TranslateCacheTotal,
	)
}
