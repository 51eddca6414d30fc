package adapter

import "context"

// Invoice carries everything the payment provider needs to charge an order.
// Payload is echoed back in the success update and must round-trip the order
// identity.
type Invoice struct {
	Title       string
	Description string
	Payload     string
	Currency    string
	AmountMinor int64
}

// SuccessfulPayment is the provider's success callback as relayed by the
// chat platform.
type SuccessfulPayment struct {
	Payload      string // invoice payload we issued
	ProviderTxID string // telegram payment charge id, the global dedup key
	AmountMinor  int64
	Currency     string
	RawPayload   string // provider update as JSON, kept verbatim for audit
}

type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, telegramID int64, text string) error
	SendInvoice(ctx context.Context, telegramID int64, inv Invoice) error
	SendDocument(ctx context.Context, telegramID int64, path string) error
}
