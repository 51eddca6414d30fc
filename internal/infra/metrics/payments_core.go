package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentEventsTotal,
		paymentsRevenueTotal,
	)
}

var (
	paymentEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_events_total",
			Help: "Reconciled payment callbacks by outcome (success/failed/duplicate_success/duplicate_failed).",
		},
		[]string{"outcome"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of successful payments in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncPaymentEvent(outcome string) {
	paymentEventsTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddPaymentRevenue(currency string, amountMinor int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amountMinor))
}
