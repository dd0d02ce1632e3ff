// Package metrics exposes the three saga-level counters named in
// spec §6, wired through prometheus/client_golang's promauto helpers
// the way the rest of the ecosystem's services register counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_total",
		Help: "Total number of orders persisted by CreateOrder (duplicate idempotent replays excluded).",
	})

	PaymentsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Total number of orders that ended CANCELLED due to a payment failure.",
	})

	SeatReservationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seat_reservations_failed",
		Help: "Total number of Seating.ReserveSeats calls that failed.",
	})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
