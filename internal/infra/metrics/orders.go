package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersCreatedTotal,
		ordersDeliveredTotal,
		promoUsesAppliedTotal,
	)
}

var (
	ordersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created, labeled by product kind.",
		},
		[]string{"kind"},
	)

	ordersDeliveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_delivered_total",
			Help: "Orders whose content was delivered to the buyer.",
		},
	)

	promoUsesAppliedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promo_uses_applied_total",
			Help: "Promo/referral uses settled after the order reached paid.",
		},
	)
)

func IncOrderCreated(kind string) {
	ordersCreatedTotal.WithLabelValues(norm(kind)).Inc()
}

func IncOrderDelivered() { ordersDeliveredTotal.Inc() }

func IncPromoApplied() { promoUsesAppliedTotal.Inc() }
