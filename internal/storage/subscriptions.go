package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/models"
)

// GetSubscriptionForUserForUpdate locks and returns userID's current
// subscription row (the most recently created one — a user may have
// several terminal rows from past cancel/resubscribe cycles, but at most
// one live at a time), so the webhook state machine and the lifecycle
// manager can read-then-write without racing a concurrent delivery or
// mutation for the same user. Returns apperr.NotFound if the user has
// never had a subscription.
func (tx *Tx) GetSubscriptionForUserForUpdate(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.Tx.GetSubscriptionForUserForUpdate"

	query := `SELECT id, user_id, provider_subscription_id, state, plan_id, period_start, period_end,
			         cancelled_at, created_at, updated_at
			  FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1 FOR UPDATE`
	sub, err := scanSubscription(tx.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "no subscription for user")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// CreateSubscription inserts the first subscription row for a user, in
// models.SubStatePending.
func (tx *Tx) CreateSubscription(ctx context.Context, userID, planID string) (*models.Subscription, error) {
	const op = "storage.Tx.CreateSubscription"

	query := `INSERT INTO subscriptions (id, user_id, state, plan_id)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id, user_id, provider_subscription_id, state, plan_id, period_start, period_end,
			            cancelled_at, created_at, updated_at`
	sub, err := scanSubscription(tx.QueryRowContext(ctx, query, uuid.New().String(), userID, models.SubStatePending, planID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.Conflict, "user already has a non-terminal subscription", err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// UpdateSubscriptionState applies a state transition produced by the
// webhook state machine. providerSubscriptionID is set once the payment
// provider has echoed one back; pass nil to leave it unchanged.
func (tx *Tx) UpdateSubscriptionState(ctx context.Context, sub *models.Subscription) error {
	const op = "storage.Tx.UpdateSubscriptionState"

	query := `UPDATE subscriptions
			  SET provider_subscription_id = COALESCE($1, provider_subscription_id),
			      state = $2,
			      period_start = $3,
			      period_end = $4,
			      cancelled_at = $5,
			      updated_at = now()
			  WHERE id = $6`
	_, err := tx.ExecContext(ctx, query,
		sub.ProviderSubscriptionID, sub.State, sub.PeriodStart, sub.PeriodEnd, sub.CancelledAt, sub.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSubscriptionForUser returns the user's most recent subscription
// without locking, for entitlement checks outside a mutating transaction
// (the proxy and read-only HTTP handlers).
func (s *Storage) GetSubscriptionForUser(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionForUser"
	defer s.logSlowQuery(op, time.Now())

	query := `SELECT id, user_id, provider_subscription_id, state, plan_id, period_start, period_end,
			         cancelled_at, created_at, updated_at
			  FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "no subscription for user")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// GetSubscriptionByProviderIDForUpdate locks and returns the subscription
// whose provider_subscription_id matches providerSubID, the lookup the
// webhook state machine uses at §4.6 step 3. Returns apperr.NotFound if no
// subscription has been issued that provider id yet (the caller is
// expected to log and commit without further work in that case).
func (tx *Tx) GetSubscriptionByProviderIDForUpdate(ctx context.Context, providerSubID string) (*models.Subscription, error) {
	const op = "storage.Tx.GetSubscriptionByProviderIDForUpdate"

	query := `SELECT id, user_id, provider_subscription_id, state, plan_id, period_start, period_end,
			         cancelled_at, created_at, updated_at
			  FROM subscriptions WHERE provider_subscription_id = $1 FOR UPDATE`
	sub, err := scanSubscription(tx.QueryRowContext(ctx, query, providerSubID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "no subscription for provider id")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var providerSubID sql.NullString
	var periodStart, periodEnd, cancelledAt sql.NullTime
	if err := row.Scan(&sub.ID, &sub.UserID, &providerSubID, &sub.State, &sub.PlanID,
		&periodStart, &periodEnd, &cancelledAt, &sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if providerSubID.Valid {
		sub.ProviderSubscriptionID = &providerSubID.String
	}
	if periodStart.Valid {
		sub.PeriodStart = &periodStart.Time
	}
	if periodEnd.Valid {
		sub.PeriodEnd = &periodEnd.Time
	}
	if cancelledAt.Valid {
		sub.CancelledAt = &cancelledAt.Time
	}
	return sub, nil
}
