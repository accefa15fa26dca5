package paymentprovider

import "time"

// EventType names the provider webhook event kinds the subscription state
// machine (spec §4.6) reacts to. Unrecognized values are still accepted —
// the handler appends them to the ledger and otherwise ignores them.
type EventType string

const (
	EventSubscriptionActivated EventType = "subscription.activated"
	EventSubscriptionCharged   EventType = "subscription.charged"
	EventSubscriptionCompleted EventType = "subscription.completed"
	EventSubscriptionCancelled EventType = "subscription.cancelled"
	EventSubscriptionPending   EventType = "subscription.pending"
	EventSubscriptionHalted    EventType = "subscription.halted"
	EventSubscriptionPaused    EventType = "subscription.paused"
	EventSubscriptionResumed   EventType = "subscription.resumed"
	EventPaymentFailed         EventType = "payment.failed"
)

// WebhookEvent is the parsed shape of a provider webhook body. Amount is
// kept as the provider's decimal string and converted to minor units by
// the caller, since JSON numbers would lose precision on currencies with
// more than two decimal places.
type WebhookEvent struct {
	ID    string    `json:"id"`
	Event EventType `json:"event"`
	Object struct {
		ID             string `json:"id"`
		SubscriptionID string `json:"subscription_id"`
		Status         string `json:"status"`
		Amount         struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"amount"`
		CapturedAt time.Time         `json:"captured_at"`
		Metadata   map[string]string `json:"metadata"`
	} `json:"object"`
}
