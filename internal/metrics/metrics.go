// Package metrics exposes Prometheus counters for the request pipeline.
// Fail-open paths (swallowed log writes, ban-store lookup failures) tick a
// counter here so silent failures stay observable.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlockedRequests counts requests short-circuited by the IP ban check.
	BlockedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "inkwell",
		Subsystem: "pipeline",
		Name:      "blocked_requests_total",
		Help:      "Requests rejected with 403 because the client IP is banned.",
	})

	// UnauthorizedAttempts counts unauthenticated requests to protected paths.
	UnauthorizedAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "inkwell",
		Subsystem: "pipeline",
		Name:      "unauthorized_attempts_total",
		Help:      "Unauthenticated requests to protected paths rejected with 401.",
	})

	// BanCheckFailures counts ban-store lookups that failed and let the
	// request through.
	BanCheckFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "inkwell",
		Subsystem: "pipeline",
		Name:      "ban_check_failures_total",
		Help:      "Ban-store lookup errors resolved by failing open.",
	})

	// AuditLogDrops counts audit-log writes that failed and were discarded.
	AuditLogDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "inkwell",
		Subsystem: "audit",
		Name:      "log_drops_total",
		Help:      "Audit log rows dropped because the write failed.",
	})

	// TrafficLogDrops counts traffic-log writes that failed and were discarded.
	TrafficLogDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "inkwell",
		Subsystem: "traffic",
		Name:      "log_drops_total",
		Help:      "Traffic log rows dropped because the write failed.",
	})
)
