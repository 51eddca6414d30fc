package telegram

import (
	"context"
	"log"
	"time"

	"telegram-forecast-store/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter implements adapter.TelegramBotAdapter for local/dev runs.
// It logs instead of talking to Telegram.
type NoopBotAdapter struct{}

func NewNoopBotAdapter() *NoopBotAdapter { return &NoopBotAdapter{} }

func (b *NoopBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	log.Printf("[noop-telegram] to user %d: %s\n", tgID, text)
	return nil
}

func (b *NoopBotAdapter) SendInvoice(ctx context.Context, tgID int64, inv adapter.Invoice) error {
	log.Printf("[noop-telegram] invoice to user %d: %s %d %s payload=%s\n", tgID, inv.Title, inv.AmountMinor, inv.Currency, inv.Payload)
	return nil
}

func (b *NoopBotAdapter) SendDocument(ctx context.Context, tgID int64, path string) error {
	log.Printf("[noop-telegram] document to user %d: %s\n", tgID, path)
	return nil
}
