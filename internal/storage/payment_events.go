package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hostplane/controlplane/internal/models"
)

// InsertPaymentEvent appends a row to the payment_events ledger inside the
// caller's transaction. provider_event_id is unique, so a replayed webhook
// delivery raises a unique violation rather than double-applying; the
// caller should treat that as "already processed", not an error.
func (tx *Tx) InsertPaymentEvent(ctx context.Context, ev *models.PaymentEvent) (*models.PaymentEvent, error) {
	const op = "storage.Tx.InsertPaymentEvent"

	query := `INSERT INTO payment_events
			      (id, subscription_id, provider_event_id, event_type, provider_payment_id,
			       amount_minor_units, currency, raw_payload)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
			  RETURNING id, subscription_id, provider_event_id, event_type, provider_payment_id,
			            amount_minor_units, currency, raw_payload, created_at`
	out := &models.PaymentEvent{}
	err := tx.QueryRowContext(ctx, query,
		uuid.New().String(), ev.SubscriptionID, ev.ProviderEventID, ev.EventType, ev.ProviderPaymentID,
		ev.AmountMinorUnits, ev.Currency, string(ev.RawPayload),
	).Scan(&out.ID, &out.SubscriptionID, &out.ProviderEventID, &out.EventType, &out.ProviderPaymentID,
		&out.AmountMinorUnits, &out.Currency, &out.RawPayload, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// HasProcessedEvent reports whether providerEventID has already been
// recorded, letting the webhook handler short-circuit a replayed delivery
// before it attempts the insert (and the unique-violation path).
func (tx *Tx) HasProcessedEvent(ctx context.Context, providerEventID string) (bool, error) {
	const op = "storage.Tx.HasProcessedEvent"

	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_events WHERE provider_event_id = $1)`, providerEventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
