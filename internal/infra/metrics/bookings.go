package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		BookingsCreated,
		BookingsExpired,
		SweepExpired,
		PaymentChecks,
		PortalLogins,
	)
}

var (
	BookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Reservations created in the external calendar.",
		},
	)

	BookingsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_expired_total",
			Help: "Reservations deleted after the payment window elapsed.",
		},
	)

	SweepExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_sweep_expired_total",
			Help: "Stale bookings expired by the periodic sweep after timer loss.",
		},
	)

	// Payment-portal checks grouped by tier and result.
	// tier: fast|slow; result: found|not_found|error
	PaymentChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_checks_total",
			Help: "Merchant-portal payment checks by tier and result.",
		},
		[]string{"tier", "result"},
	)

	// Browser-automation logins by result.
	PortalLogins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_logins_total",
			Help: "Browser-driven portal authentications by result.",
		},
		[]string{"result"},
	)
)
