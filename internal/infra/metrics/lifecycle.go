package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		lifecycleTransitionsTotal,
		lifecycleRejectionsTotal,
		lifecycleForcedResetsTotal,
	)
}

var (
	lifecycleTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_total",
			Help: "Applied user lifecycle transitions, labeled by source and target state.",
		},
		[]string{"from", "to"},
	)

	lifecycleRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_rejections_total",
			Help: "Transition attempts rejected as illegal, labeled by source and target state.",
		},
		[]string{"from", "to"},
	)

	lifecycleForcedResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lifecycle_forced_resets_total",
			Help: "Sessions force-reset to idle to recover from an ambiguous state.",
		},
	)
)

func IncTransition(from, to string) {
	lifecycleTransitionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}

func IncRejectedTransition(from, to string) {
	lifecycleRejectionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}

func IncForcedReset() {
	lifecycleForcedResetsTotal.Inc()
}
