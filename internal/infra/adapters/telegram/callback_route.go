package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-forecast-store/internal/domain"
)

var zodiacSigns = []string{
	"aries", "taurus", "gemini", "cancer",
	"leo", "virgo", "libra", "scorpio",
	"sagittarius", "capricorn", "aquarius", "pisces",
}

type cbHandler func(ctx context.Context, userID int64, data string) error

// Exact-match callbacks.
func (r *RealBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		"cmd:menu": func(ctx context.Context, id int64, _ string) error {
			return r.sendMainMenu(ctx, id, "Choose a forecast:")
		},
		"cmd:month": func(ctx context.Context, id int64, _ string) error {
			return r.sendSignMenu(ctx, id, "month")
		},
		"cmd:year": func(ctx context.Context, id int64, _ string) error {
			return r.sendSignMenu(ctx, id, "year")
		},
		"cmd:ref": func(ctx context.Context, id int64, _ string) error {
			return r.storefront.ReferralInfo(ctx, id)
		},
		"cmd:cancel": func(ctx context.Context, id int64, _ string) error {
			return r.storefront.Cancel(ctx, id)
		},
	}
}

// Prefix-match callbacks.
func (r *RealBotAdapter) cbPrefixRoutes() []struct {
	Prefix string
	Fn     cbHandler
} {
	return []struct {
		Prefix string
		Fn     cbHandler
	}{
		{
			Prefix: "buy:",
			Fn: func(ctx context.Context, id int64, data string) error {
				productID := strings.TrimPrefix(data, "buy:")
				order, err := r.storefront.BeginPurchase(ctx, id, productID)
				if err != nil {
					r.log.Error().Err(err).Int64("user_id", id).Str("product_id", productID).Msg("purchase failed")
					return r.SendMessage(ctx, id, "Could not start the order, please try again.")
				}
				return r.sendCheckoutPrompt(ctx, id, order.ID, order.AmountMinor, order.Currency)
			},
		},
		{
			Prefix: "promo:",
			Fn: func(ctx context.Context, id int64, _ string) error {
				return r.SendMessage(ctx, id, "Send your promo code as a message.")
			},
		},
		{
			Prefix: "pay:",
			Fn: func(ctx context.Context, id int64, data string) error {
				orderID := strings.TrimPrefix(data, "pay:")
				if err := r.storefront.Checkout(ctx, id, orderID); err != nil {
					if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrOwnershipMismatch) {
						return r.SendMessage(ctx, id, "Order not found. Start over from the menu.")
					}
					r.log.Error().Err(err).Int64("user_id", id).Str("order_id", orderID).Msg("checkout failed")
					return r.SendMessage(ctx, id, "Could not issue the invoice, please try again.")
				}
				return nil
			},
		},
	}
}

func (r *RealBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	// Stop the telegram spinner when we return.
	defer func() { _, _ = r.bot.Request(tgbotapi.NewCallback(query.ID, "")) }()

	userID := query.From.ID
	data := strings.TrimSpace(query.Data)

	if fn, ok := r.cbRoutes()[data]; ok {
		return fn(ctx, userID, data)
	}
	for _, pr := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return pr.Fn(ctx, userID, data)
		}
	}
	return fmt.Errorf("unknown callback data %q", data)
}

// ---- menus ----

func (r *RealBotAdapter) sendButtons(ctx context.Context, tgID int64, text string, rows [][]tgbotapi.InlineKeyboardButton) error {
	msg := tgbotapi.NewMessage(tgID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealBotAdapter) sendMainMenu(ctx context.Context, tgID int64, intro string) error {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData("Forecast for this month", "cmd:month")},
		{tgbotapi.NewInlineKeyboardButtonData("Forecast for the year", "cmd:year")},
		{tgbotapi.NewInlineKeyboardButtonData("My referral code", "cmd:ref")},
	}
	return r.sendButtons(ctx, tgID, intro, rows)
}

// sendSignMenu lists the zodiac signs for the chosen period; the button data
// carries the full product id.
func (r *RealBotAdapter) sendSignMenu(ctx context.Context, tgID int64, kind string) error {
	now := time.Now()
	var period string
	if kind == "month" {
		period = now.Format("2006-01")
	} else {
		period = now.Format("2006")
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(zodiacSigns)/2+1)
	for i := 0; i < len(zodiacSigns); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(
				signLabel(zodiacSigns[i]),
				fmt.Sprintf("buy:%s:%s:%s", kind, period, zodiacSigns[i]),
			),
		}
		if i+1 < len(zodiacSigns) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				signLabel(zodiacSigns[i+1]),
				fmt.Sprintf("buy:%s:%s:%s", kind, period, zodiacSigns[i+1]),
			))
		}
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Back", "cmd:menu"),
	})
	return r.sendButtons(ctx, tgID, "Pick your sign:", rows)
}

func signLabel(sign string) string {
	if sign == "" {
		return sign
	}
	return strings.ToUpper(sign[:1]) + sign[1:]
}

func (r *RealBotAdapter) sendCheckoutPrompt(ctx context.Context, tgID int64, orderID string, amountMinor int64, currency string) error {
	text := fmt.Sprintf("Your order is ready: %d.%02d %s.", amountMinor/100, amountMinor%100, currency)
	rows := [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData("Pay now", "pay:"+orderID)},
		{tgbotapi.NewInlineKeyboardButtonData("I have a promo code", "promo:"+orderID)},
		{tgbotapi.NewInlineKeyboardButtonData("Cancel", "cmd:cancel")},
	}
	return r.sendButtons(ctx, tgID, text, rows)
}
