package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-forecast-store/internal/application"
	"telegram-forecast-store/internal/config"
	"telegram-forecast-store/internal/domain/model"
	"telegram-forecast-store/internal/domain/ports/adapter"
	"telegram-forecast-store/internal/infra/logging"
	"telegram-forecast-store/internal/infra/metrics"
	"telegram-forecast-store/internal/usecase"
)

var _ adapter.TelegramBotAdapter = (*RealBotAdapter)(nil)

// RealBotAdapter polls Telegram for updates and routes them into the
// storefront. It also implements the outbound adapter port, so the storefront
// answers through the same client it was called from.
type RealBotAdapter struct {
	bot        *tgbotapi.BotAPI
	cfg        *config.BotConfig
	storefront *application.Storefront
	lifecycle  usecase.LifecycleUseCase
	stats      usecase.StatsUseCase
	log        *zerolog.Logger

	adminIDs      map[int64]struct{}
	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealBotAdapter(cfg *config.BotConfig, lifecycle usecase.LifecycleUseCase, stats usecase.StatsUseCase, logger *zerolog.Logger) (*RealBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if lifecycle == nil {
		return nil, errors.New("lifecycle use case is nil")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	adminMap := map[int64]struct{}{}
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}

	return &RealBotAdapter{
		bot:           bot,
		cfg:           cfg,
		lifecycle:     lifecycle,
		stats:         stats,
		log:           logger,
		adminIDs:      adminMap,
		updateWorkers: workers,
	}, nil
}

// Bind attaches the storefront after construction. The storefront needs this
// adapter as its outbound port, so the two are wired in two steps.
func (r *RealBotAdapter) Bind(sf *application.Storefront) { r.storefront = sf }

func (r *RealBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := r.handleUpdate(ctx, up); err != nil {
						r.log.Error().Err(err).Int("worker", id).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (r *RealBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

// ---- adapter port ----

func (r *RealBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	msg := tgbotapi.NewMessage(tgID, text)
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealBotAdapter) SendInvoice(ctx context.Context, tgID int64, inv adapter.Invoice) error {
	cfgInv := tgbotapi.NewInvoice(
		tgID,
		inv.Title,
		inv.Description,
		inv.Payload,
		r.cfg.PaymentToken,
		"", // start parameter, unused for chat invoices
		inv.Currency,
		[]tgbotapi.LabeledPrice{{Label: inv.Title, Amount: int(inv.AmountMinor)}},
	)
	_, err := r.bot.Send(cfgInv)
	return err
}

func (r *RealBotAdapter) SendDocument(ctx context.Context, tgID int64, path string) error {
	doc := tgbotapi.NewDocument(tgID, tgbotapi.FilePath(path))
	_, err := r.bot.Send(doc)
	return err
}

// ---- inbound routing ----

func (r *RealBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	// Each update gets its own trace id so log lines from concurrent workers
	// can be stitched back together.
	ctx = logging.WithTraceID(ctx, uuid.NewString())

	// The provider asks for approval before charging; the charge itself is
	// verified against the order when the success callback lands, so the
	// pre-checkout is always approved.
	if update.PreCheckoutQuery != nil {
		metrics.IncBotUpdate("pre_checkout")
		_, err := r.bot.Request(tgbotapi.PreCheckoutConfig{
			PreCheckoutQueryID: update.PreCheckoutQuery.ID,
			OK:                 true,
		})
		return err
	}

	if update.CallbackQuery != nil {
		metrics.IncBotUpdate("callback")
		if update.CallbackQuery.From != nil {
			ctx = logging.WithTgID(ctx, update.CallbackQuery.From.ID)
		}
		return r.handleQuery(ctx, update.CallbackQuery)
	}

	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	msg := update.Message
	userID := msg.From.ID
	ctx = logging.WithTgID(ctx, userID)

	if sp := msg.SuccessfulPayment; sp != nil {
		metrics.IncBotUpdate("payment")
		raw, _ := json.Marshal(sp)
		return r.storefront.ConfirmPayment(ctx, userID, adapter.SuccessfulPayment{
			Payload:      sp.InvoicePayload,
			ProviderTxID: sp.TelegramPaymentChargeID,
			AmountMinor:  int64(sp.TotalAmount),
			Currency:     sp.Currency,
			RawPayload:   string(raw),
		})
	}

	if msg.IsCommand() {
		metrics.IncBotUpdate("command")
		if fn, ok := r.commandRoutes()[msg.Command()]; ok {
			return fn(ctx, msg)
		}
		return r.SendMessage(ctx, userID, "Unknown command. Try /help.")
	}

	metrics.IncBotUpdate("text")
	return r.routeText(ctx, userID, msg.Text)
}

// routeText dispatches free text by the user's lifecycle state: mid-order it
// is a promo code, after delivery it is a review, otherwise it just reopens
// the menu.
func (r *RealBotAdapter) routeText(ctx context.Context, userID int64, text string) error {
	state, err := r.lifecycle.State(ctx, userID)
	if err != nil {
		return err
	}
	switch state {
	case model.StateOrderInitiated, model.StatePaymentPending:
		code := strings.ToUpper(strings.TrimSpace(text))
		if code == "" {
			return nil
		}
		return r.storefront.EnterPromoCode(ctx, userID, code)
	case model.StateReviewPending:
		return r.storefront.LeaveReview(ctx, userID)
	default:
		return r.sendMainMenu(ctx, userID, "Choose a forecast:")
	}
}
