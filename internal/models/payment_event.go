package models

import "time"

// PaymentEvent is a row in the append-only ledger table. It is never
// updated or deleted after insert: simultaneously the audit log and the
// idempotency key store keyed by ProviderEventID.
type PaymentEvent struct {
	ID               string    `json:"id"`
	SubscriptionID   *string   `json:"subscription_id,omitempty"`
	ProviderEventID  string    `json:"provider_event_id"`
	EventType        string    `json:"event_type"`
	ProviderPaymentID string   `json:"provider_payment_id,omitempty"`
	AmountMinorUnits int64     `json:"amount_minor_units,omitempty"`
	Currency         string    `json:"currency,omitempty"`
	RawPayload       []byte    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}
