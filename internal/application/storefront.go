package application

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-forecast-store/internal/domain"
	"telegram-forecast-store/internal/domain/model"
	"telegram-forecast-store/internal/domain/ports/adapter"
	"telegram-forecast-store/internal/domain/ports/repository"
	"telegram-forecast-store/internal/infra/logging"
	"telegram-forecast-store/internal/usecase"
)

// refPayloadPrefix marks a /start deep-link payload carrying a referral code.
const refPayloadPrefix = "ref_"

// Storefront orchestrates the purchase flow: pricing feeds order creation,
// the provider callback feeds reconciliation, and the lifecycle service gates
// every step. All chat I/O goes through the bot adapter; all decisions are
// made here.
type Storefront struct {
	pricing   usecase.PricingUseCase
	orders    usecase.OrderUseCase
	lifecycle usecase.LifecycleUseCase
	reconcile usecase.ReconcileUseCase
	promo     usecase.PromoUseCase
	intents   repository.PromoIntentRepository
	bot       adapter.TelegramBotAdapter

	currency string
	mediaDir string
	log      *zerolog.Logger
}

func NewStorefront(
	pricing usecase.PricingUseCase,
	orders usecase.OrderUseCase,
	lifecycle usecase.LifecycleUseCase,
	reconcile usecase.ReconcileUseCase,
	promo usecase.PromoUseCase,
	intents repository.PromoIntentRepository,
	bot adapter.TelegramBotAdapter,
	currency string,
	mediaDir string,
	logger *zerolog.Logger,
) *Storefront {
	return &Storefront{
		pricing:   pricing,
		orders:    orders,
		lifecycle: lifecycle,
		reconcile: reconcile,
		promo:     promo,
		intents:   intents,
		bot:       bot,
		currency:  currency,
		mediaDir:  mediaDir,
		log:       logger,
	}
}

// Start handles first contact. A deep-link payload of the form ref_<code>
// parks a promo intent in Redis; it converts to a promo use when an order
// exists to attach it to.
func (s *Storefront) Start(ctx context.Context, userID int64, payload string) error {
	if _, err := s.lifecycle.Get(ctx, userID); err != nil {
		return err
	}

	if code, ok := strings.CutPrefix(payload, refPayloadPrefix); ok && code != "" {
		applied, err := s.promo.HasApplied(ctx, userID)
		if err != nil {
			return err
		}
		if !applied {
			if err := s.intents.Set(ctx, userID, &repository.PromoIntent{PromoCode: code}); err != nil {
				return err
			}
			s.log.Info().Int64("user_id", userID).Str("code", code).Msg("referral intent parked")
		}
	}
	return s.bot.SendMessage(ctx, userID, "Welcome! Pick a forecast to get started.")
}

// BeginPurchase quotes the product, creates the order and moves the user to
// order_initiated. A parked referral intent converts into a promo use here
// and immediately re-quotes the order with the discount.
func (s *Storefront) BeginPurchase(ctx context.Context, userID int64, productID string) (*model.Order, error) {
	amount, err := s.pricing.Quote(productKind(productID), time.Time{}, false)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.Create(ctx, userID, productID, amount, s.currency)
	if err != nil {
		return nil, err
	}

	if _, err := s.lifecycle.SetOrderInitiated(ctx, userID, order.ID); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			if rerr := s.resetSession(ctx, userID); rerr != nil {
				return nil, rerr
			}
			if _, err := s.lifecycle.SetOrderInitiated(ctx, userID, order.ID); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	if err := s.convertIntent(ctx, userID, order.ID, productID); err != nil {
		// The order stands; the discount just did not attach.
		s.log.Warn().Err(err).Int64("user_id", userID).Str("order_id", order.ID).Msg("promo intent conversion failed")
	}

	return s.orders.Get(ctx, order.ID)
}

// convertIntent turns a parked referral intent into a pending promo use and
// re-quotes the order with the discount. The intent is cleared either way;
// it was only ever valid for this session.
func (s *Storefront) convertIntent(ctx context.Context, userID int64, orderID, productID string) error {
	intent, err := s.intents.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	defer func() { _ = s.intents.Clear(ctx, userID) }()

	if _, err := s.promo.BeginUse(ctx, orderID, userID); err != nil {
		return err
	}
	if _, err := s.promo.ResolveUse(ctx, orderID, intent.PromoCode); err != nil {
		_ = s.promo.DiscardUse(ctx, orderID)
		return err
	}
	return s.requoteWithPromo(ctx, orderID, productID)
}

// EnterPromoCode attaches a manually entered code to the user's current
// order and re-quotes it with the discount.
func (s *Storefront) EnterPromoCode(ctx context.Context, userID int64, code string) error {
	user, err := s.lifecycle.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.LastOrderID == nil {
		return s.bot.SendMessage(ctx, userID, "Pick a forecast first, then enter your code.")
	}
	orderID := *user.LastOrderID

	order, err := s.orders.GetOwned(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if !order.Repriceable() {
		return s.bot.SendMessage(ctx, userID, "This order is already settled; the code can be used on your next one.")
	}

	if _, err := s.promo.BeginUse(ctx, orderID, userID); err != nil {
		if errors.Is(err, domain.ErrPromoAlreadyUsed) {
			return s.bot.SendMessage(ctx, userID, "You have already used a promo code.")
		}
		return err
	}
	if _, err := s.promo.ResolveUse(ctx, orderID, code); err != nil {
		_ = s.promo.DiscardUse(ctx, orderID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return s.bot.SendMessage(ctx, userID, "That code does not exist. Check it and try again.")
		case errors.Is(err, domain.ErrSelfReferral):
			return s.bot.SendMessage(ctx, userID, "You cannot use your own referral code.")
		case errors.Is(err, domain.ErrPromoAlreadyUsed):
			return s.bot.SendMessage(ctx, userID, "You have already used a promo code.")
		}
		return err
	}

	if err := s.requoteWithPromo(ctx, orderID, order.ProductID); err != nil {
		return err
	}
	return s.bot.SendMessage(ctx, userID, "Code accepted, your discount is applied.")
}

func (s *Storefront) requoteWithPromo(ctx context.Context, orderID, productID string) error {
	amount, err := s.pricing.Quote(productKind(productID), time.Time{}, true)
	if err != nil {
		return err
	}
	return s.orders.Requote(ctx, orderID, amount)
}

// Checkout re-quotes the order one last time, issues the invoice and moves
// the user to payment_pending.
func (s *Storefront) Checkout(ctx context.Context, userID int64, orderID string) error {
	order, err := s.orders.GetOwned(ctx, userID, orderID)
	if err != nil {
		return err
	}

	// The price may have drifted since creation (a rule window opened or
	// closed). Re-quote while the order is still repriceable; once the
	// invoice is out the amount is what the provider will charge.
	applyPromo := false
	if _, err := s.promo.PendingUse(ctx, orderID); err == nil {
		applyPromo = true
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	amount, err := s.pricing.Quote(productKind(order.ProductID), time.Time{}, applyPromo)
	if err != nil {
		return err
	}
	if amount != order.AmountMinor {
		if err := s.orders.Requote(ctx, orderID, amount); err != nil && !errors.Is(err, domain.ErrOrderFinalized) {
			return err
		}
	}

	if err := s.orders.MarkInvoiceSent(ctx, orderID); err != nil {
		return err
	}
	if _, err := s.lifecycle.SetPaymentPending(ctx, userID, orderID); err != nil {
		if !errors.Is(err, domain.ErrInvalidTransition) {
			return err
		}
		if rerr := s.resetSession(ctx, userID); rerr != nil {
			return rerr
		}
		return nil
	}

	order, err = s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	return s.bot.SendInvoice(ctx, userID, adapter.Invoice{
		Title:       "Personal forecast",
		Description: order.ProductID,
		Payload:     order.ID,
		Currency:    order.Currency,
		AmountMinor: order.AmountMinor,
	})
}

// ConfirmPayment handles the provider's success callback. The callback is
// verified against the order it claims to settle before anything persists;
// reconciliation then applies it exactly once, and delivery is gated on the
// first-write MarkDelivered so content goes out once no matter how often the
// provider retries.
func (s *Storefront) ConfirmPayment(ctx context.Context, userID int64, sp adapter.SuccessfulPayment) error {
	order, err := s.orders.GetOwned(ctx, userID, sp.Payload)
	if err != nil {
		return err
	}
	ctx = logging.WithOrderID(ctx, order.ID)
	log := logging.With(ctx, s.log)
	defer logging.TraceDuration(log, "Storefront.ConfirmPayment")()

	if sp.AmountMinor != order.AmountMinor || sp.Currency != order.Currency {
		log.Warn().
			Int64("callback_amount", sp.AmountMinor).
			Int64("order_amount", order.AmountMinor).
			Msg("payment callback does not match order, rejecting")
		return fmt.Errorf("%w: callback amount/currency does not match order", domain.ErrInvalidArgument)
	}

	res, err := s.reconcile.Reconcile(ctx, order.ID, sp.ProviderTxID, model.PaymentEventSuccess, sp.AmountMinor, sp.Currency, sp.RawPayload)
	if err != nil {
		return err
	}
	if !res.Applied {
		// Replayed callback. The delivered flag, not the ledger, decides
		// whether anything is left to do: a paid order whose delivery was
		// interrupted resumes here on the provider's retry.
		if order.Status != model.OrderStatusPaid || order.DeliveredAt != nil {
			log.Info().Str("reason", res.Reason).Msg("payment callback replay ignored")
			return nil
		}
		log.Info().Msg("resuming delivery of paid order on replayed callback")
	}

	// The order is durably paid; move the user's cursor. A callback landing
	// while the user is in an unrelated state resets the session and retries
	// once, so the paid order is never stranded.
	if _, err := s.lifecycle.SetPaid(ctx, userID, order.ID); err != nil {
		if !errors.Is(err, domain.ErrInvalidTransition) {
			return err
		}
		if rerr := s.resetSession(ctx, userID); rerr != nil {
			return rerr
		}
		if _, err := s.lifecycle.SetOrderInitiated(ctx, userID, order.ID); err != nil {
			return err
		}
		if _, err := s.lifecycle.SetPaymentPending(ctx, userID, order.ID); err != nil {
			return err
		}
		if _, err := s.lifecycle.SetPaid(ctx, userID, order.ID); err != nil {
			return err
		}
	}

	if _, err := s.promo.ApplyUse(ctx, order.ID); err != nil {
		// The payment stands; the referral credit can be replayed later.
		log.Error().Err(err).Msg("promo settle failed")
	}

	return s.deliver(ctx, userID, order)
}

func (s *Storefront) deliver(ctx context.Context, userID int64, order *model.Order) error {
	first, err := s.orders.MarkDelivered(ctx, order.ID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	if err := s.bot.SendDocument(ctx, userID, s.mediaPath(order.ProductID)); err != nil {
		return err
	}
	if _, err := s.lifecycle.SetDelivered(ctx, userID, order.ID); err != nil {
		return err
	}
	if _, err := s.lifecycle.SetReviewPending(ctx, userID, order.ID); err != nil {
		return err
	}
	return s.bot.SendMessage(ctx, userID, "Your forecast is ready. How did you like it?")
}

// FailPayment records a provider failure callback for the user's order.
func (s *Storefront) FailPayment(ctx context.Context, userID int64, orderID, providerTxID, rawPayload string) error {
	order, err := s.orders.GetOwned(ctx, userID, orderID)
	if err != nil {
		return err
	}
	res, err := s.reconcile.Reconcile(ctx, order.ID, providerTxID, model.PaymentEventFailed, order.AmountMinor, order.Currency, rawPayload)
	if err != nil {
		return err
	}
	if !res.Applied {
		return nil
	}
	return s.bot.SendMessage(ctx, userID, "The payment did not go through. You can try again from the menu.")
}

// LeaveReview closes the review step and frees the user for the next
// purchase.
func (s *Storefront) LeaveReview(ctx context.Context, userID int64) error {
	if _, err := s.lifecycle.SetReviewed(ctx, userID, usecase.KeepOrder()); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return s.bot.SendMessage(ctx, userID, "There is nothing to review right now.")
		}
		return err
	}
	if _, err := s.lifecycle.ForceIdle(ctx, userID); err != nil {
		return err
	}
	return s.bot.SendMessage(ctx, userID, "Thank you for the review!")
}

// Cancel abandons the current session: any un-settled promo use is dropped
// and the user returns to idle.
func (s *Storefront) Cancel(ctx context.Context, userID int64) error {
	user, err := s.lifecycle.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.LastOrderID != nil {
		if _, err := s.promo.PendingUse(ctx, *user.LastOrderID); err == nil {
			_ = s.promo.DiscardUse(ctx, *user.LastOrderID)
		}
	}
	_ = s.intents.Clear(ctx, userID)
	if _, err := s.lifecycle.ForceIdle(ctx, userID); err != nil {
		return err
	}
	return s.bot.SendMessage(ctx, userID, "Session cancelled.")
}

// ReferralInfo sends the user their code and deep link.
func (s *Storefront) ReferralInfo(ctx context.Context, userID int64) error {
	code, err := s.promo.GetOrCreateCode(ctx, userID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Your referral code: %s\nPaid referrals so far: %d", code.Code, code.PaidReferrals)
	if link := s.promo.ReferralLink(code.Code); link != "" {
		text += "\nShare this link: " + link
	}
	return s.bot.SendMessage(ctx, userID, text)
}

// resetSession is the mandated recovery for a mid-flow invalid transition:
// force-idle and tell the user, never proceed anyway.
func (s *Storefront) resetSession(ctx context.Context, userID int64) error {
	if _, err := s.lifecycle.ForceIdle(ctx, userID); err != nil {
		return err
	}
	return s.bot.SendMessage(ctx, userID, "Your session was reset. Please retry the last action.")
}

func (s *Storefront) mediaPath(productID string) string {
	return filepath.Join(s.mediaDir, strings.ReplaceAll(productID, ":", "_")+".pdf")
}

func productKind(productID string) string {
	if i := strings.IndexByte(productID, ':'); i > 0 {
		return productID[:i]
	}
	return productID
}
