package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-forecast-store/internal/infra/metrics"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

func (r *RealBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":  r.handleStartCommand,
		"menu":   r.handleMenuCommand,
		"ref":    r.handleRefCommand,
		"cancel": r.handleCancelCommand,
		"help":   r.handleHelpCommand,

		"stats": r.adminOnly(r.handleStatsCommand),
	}
}

func (r *RealBotAdapter) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		if _, isAdmin := r.adminIDs[message.From.ID]; !isAdmin {
			metrics.IncAdminCommand("/"+message.Command(), "unauthorized")
			return r.SendMessage(ctx, message.From.ID, "This command is not available.")
		}
		metrics.IncAdminCommand("/"+message.Command(), "authorized")
		return next(ctx, message)
	}
}

func (r *RealBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	payload := strings.TrimSpace(message.CommandArguments())
	if err := r.storefront.Start(ctx, message.From.ID, payload); err != nil {
		r.log.Error().Err(err).Int64("user_id", message.From.ID).Msg("start failed")
		return r.SendMessage(ctx, message.From.ID, "Something went wrong, please try again.")
	}
	return r.sendMainMenu(ctx, message.From.ID, "Choose a forecast:")
}

func (r *RealBotAdapter) handleMenuCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.sendMainMenu(ctx, message.From.ID, "Choose a forecast:")
}

func (r *RealBotAdapter) handleRefCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.storefront.ReferralInfo(ctx, message.From.ID)
}

func (r *RealBotAdapter) handleCancelCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.storefront.Cancel(ctx, message.From.ID)
}

func (r *RealBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	reply := "Commands:\n/start - open the store\n/menu - pick a forecast\n/ref - your referral code\n/cancel - abandon the current order"
	return r.SendMessage(ctx, message.From.ID, reply)
}

func (r *RealBotAdapter) handleStatsCommand(ctx context.Context, message *tgbotapi.Message) error {
	users, err := r.stats.CountUsers(ctx)
	if err != nil {
		return r.SendMessage(ctx, message.From.ID, "Failed to load stats.")
	}
	totals, err := r.stats.SalesTotals(ctx)
	if err != nil {
		return r.SendMessage(ctx, message.From.ID, "Failed to load stats.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Users: %d\n", users)
	if len(totals) == 0 {
		b.WriteString("No paid orders yet.")
	} else {
		b.WriteString("Paid orders:\n")
		for _, t := range totals {
			fmt.Fprintf(&b, "%s: %d orders, %d\n", t.ProductID, t.PaidCount, t.TotalAmount)
		}
	}
	return r.SendMessage(ctx, message.From.ID, b.String())
}
