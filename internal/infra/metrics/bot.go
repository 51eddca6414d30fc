package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		botUpdatesTotal,
		adminCommandsTotal,
	)
}

var (
	botUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Incoming Telegram updates by kind (command/callback/payment/text).",
		},
		[]string{"kind"},
	)

	adminCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_admin_commands_total",
			Help: "Admin command invocations, labeled by command and authorization outcome.",
		},
		[]string{"command", "status"},
	)
)

func IncBotUpdate(kind string) {
	botUpdatesTotal.WithLabelValues(norm(kind)).Inc()
}

func IncAdminCommand(command, status string) {
	adminCommandsTotal.WithLabelValues(norm(command), norm(status)).Inc()
}
