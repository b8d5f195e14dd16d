package bookings

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// opTotal counts lifecycle operations by name and outcome ("ok",
// "rejected", "error"). Guard rejections are business outcomes, not
// failures, and get their own label value.
var opTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "culture_pass",
	Subsystem: "bookings",
	Name:      "operations_total",
	Help:      "Booking lifecycle operations by outcome.",
}, []string{"op", "outcome"})

// expiredTotal counts bookings auto-cancelled by the expiry sweep.
var expiredTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "culture_pass",
	Subsystem: "bookings",
	Name:      "expired_total",
	Help:      "Bookings cancelled by the expiry sweeper.",
})

func observe(op string, err error) {
	switch {
	case err == nil:
		opTotal.WithLabelValues(op, "ok").Inc()
	case isDomainError(err):
		opTotal.WithLabelValues(op, "rejected").Inc()
	default:
		opTotal.WithLabelValues(op, "error").Inc()
	}
}
