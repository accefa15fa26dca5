// Package subscription implements the event-driven subscription state
// machine: checkout, status, cancellation, and the webhook processing
// algorithm, adapted from the teacher's service-over-repository shape
// onto the provider-agnostic event table of spec §4.6.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/lib/sl"
	"github.com/hostplane/controlplane/internal/models"
	"github.com/hostplane/controlplane/internal/paymentprovider"
	"github.com/hostplane/controlplane/internal/storage"
)

// Catalog is the fixed set of purchasable plans. Runtime catalog changes
// are out of scope, so this is a single flat price loaded from config.
type Catalog struct {
	PlanIDs          []string
	AmountMinorUnits int64
	Currency         string
}

func (c Catalog) valid(planID string) bool {
	return slices.Contains(c.PlanIDs, planID)
}

// Service implements checkout, status, cancellation and webhook
// processing for subscriptions.
type Service struct {
	repo        Repository
	provider    CheckoutClient
	publisher   SideEffectPublisher
	entitlement EntitlementInvalidator
	catalog     Catalog
	log         *slog.Logger
}

// New builds a Service. The entitlement cache invalidator is wired in
// separately via SetEntitlementInvalidator, since the cache decorator
// itself wraps this Service as its uncached Checker — the two can't be
// constructed in either order without one of them starting out nil.
func New(repo Repository, provider CheckoutClient, publisher SideEffectPublisher, catalog Catalog, log *slog.Logger) *Service {
	return &Service{repo: repo, provider: provider, publisher: publisher, catalog: catalog, log: log}
}

// SetEntitlementInvalidator wires in the cache decorator that sits in
// front of this Service so ProcessWebhook can evict a transitioned user's
// cached entitlement flag. Leaving it unset means a transition only
// becomes visible to the proxy once the cache's own ttl expires.
func (s *Service) SetEntitlementInvalidator(entitlement EntitlementInvalidator) {
	s.entitlement = entitlement
}

// Status is the read model returned by GetStatus.
type Status struct {
	State         string
	PlanID        string
	PeriodStart   *time.Time
	PeriodEnd     *time.Time
	IsActive      bool
	DaysRemaining int
}

// Checkout creates a pending subscription row and a checkout session with
// the payment provider. Returns the subscription id and the provider's
// redirect URL.
func (s *Service) Checkout(ctx context.Context, userID, planID, returnURL string) (subscriptionID, checkoutURL string, err error) {
	const op = "subscription.Service.Checkout"

	if !s.catalog.valid(planID) {
		return "", "", apperr.New(apperr.Validation, "unknown plan id")
	}

	var sub *models.Subscription
	err = s.repo.WithTx(ctx, func(tx *storage.Tx) error {
		created, txErr := tx.CreateSubscription(ctx, userID, planID)
		if txErr != nil {
			return txErr
		}
		sub = created
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.provider.CreateCheckout(ctx, paymentprovider.CheckoutRequest{
		PlanID:           planID,
		AmountMinorUnits: s.catalog.AmountMinorUnits,
		Currency:         s.catalog.Currency,
		SubscriptionID:   sub.ID,
		ReturnURL:        returnURL,
	})
	if err != nil {
		return "", "", apperr.Wrap(apperr.ProviderDown, "payment provider unavailable", err)
	}
	return sub.ID, resp.Confirmation.ConfirmationURL, nil
}

// GetStatus returns userID's current subscription as a read model.
// Entitlement uses the exact definition of spec §3: state active and
// period_end in the future.
func (s *Service) GetStatus(ctx context.Context, userID string) (*Status, error) {
	const op = "subscription.Service.GetStatus"

	sub, err := s.repo.GetSubscriptionForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st := &Status{
		State:       sub.State,
		PlanID:      sub.PlanID,
		PeriodStart: sub.PeriodStart,
		PeriodEnd:   sub.PeriodEnd,
		IsActive:    sub.IsEntitled(time.Now()),
	}
	if sub.PeriodEnd != nil && st.IsActive {
		st.DaysRemaining = int(time.Until(*sub.PeriodEnd).Hours() / 24)
	}
	return st, nil
}

// IsEntitled reports whether userID currently has an active, unexpired
// subscription. It is the uncached Checker behind the entitlement cache
// the reverse proxy reads through; the workspace lifecycle manager reads
// the subscription row inside its own transaction instead. A
// user with no subscription row at all is simply not entitled, not an
// error.
func (s *Service) IsEntitled(ctx context.Context, userID string) (bool, error) {
	const op = "subscription.Service.IsEntitled"

	sub, err := s.repo.GetSubscriptionForUser(ctx, userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return sub.IsEntitled(time.Now()), nil
}

// Cancel records cancellation intent on userID's current subscription.
// The row stays entitled until PeriodEnd; settlement and the actual
// retirement of the subscription on the provider's side are out of
// scope here — the provider's subscription.cancelled webhook is what
// ultimately drives the container-stop side effect via ProcessWebhook.
func (s *Service) Cancel(ctx context.Context, userID, reason string) (endDate *time.Time, err error) {
	const op = "subscription.Service.Cancel"

	err = s.repo.WithTx(ctx, func(tx *storage.Tx) error {
		sub, txErr := tx.GetSubscriptionForUserForUpdate(ctx, userID)
		if txErr != nil {
			return txErr
		}
		if sub.IsTerminal() {
			return apperr.New(apperr.Conflict, "subscription already terminal")
		}
		now := time.Now()
		sub.CancelledAt = &now
		endDate = sub.PeriodEnd
		return tx.UpdateSubscriptionState(ctx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription cancellation recorded", slog.String("user_id", userID), slog.String("reason", reason))
	return endDate, nil
}

// transition describes the effect of one webhook event type on a
// subscription row, per the event->effect table of spec §4.6.
type transition struct {
	from     []string // empty = any non-terminal state accepted
	toState  string   // "" = no state change
	setDates bool
	terminal bool
}

var transitionTable = map[paymentprovider.EventType]transition{
	paymentprovider.EventSubscriptionActivated: {from: []string{models.SubStatePending}, toState: models.SubStateActive, setDates: true},
	paymentprovider.EventSubscriptionCharged:   {from: []string{models.SubStateActive, models.SubStatePastDue}, toState: models.SubStateActive, setDates: true},
	paymentprovider.EventSubscriptionCompleted: {toState: models.SubStateExpired, terminal: true},
	paymentprovider.EventSubscriptionCancelled: {toState: models.SubStateCancelled, terminal: true},
	paymentprovider.EventSubscriptionPending:   {from: []string{models.SubStateActive}, toState: models.SubStatePastDue},
	paymentprovider.EventSubscriptionHalted:    {from: []string{models.SubStateActive}, toState: models.SubStatePastDue},
	paymentprovider.EventSubscriptionPaused:    {from: []string{models.SubStateActive}, toState: models.SubStatePastDue},
	paymentprovider.EventSubscriptionResumed:   {from: []string{models.SubStatePastDue}, toState: models.SubStateActive},
	paymentprovider.EventPaymentFailed:         {},
}

// allowed reports whether t may apply to sub. Terminal transitions are
// sticky/priority: they apply from any non-terminal state. A terminal
// subscription never transitions again.
func allowed(sub *models.Subscription, t transition) bool {
	if sub.IsTerminal() {
		return false
	}
	if t.toState == "" || t.terminal || len(t.from) == 0 {
		return true
	}
	return slices.Contains(t.from, sub.State)
}

// ProcessWebhook runs the algorithm of spec §4.6 steps 2-6 against an
// already signature-verified event. rawPayload is stored verbatim in the
// ledger for audit. On any transition that changes subscription state it
// evicts the owner's cached entitlement flag so the proxy stops trusting a
// stale "entitled" read before the cache TTL would otherwise expire.
// Returns true plus the owning user id if a terminal transition fired, so
// the caller can publish the container-stop side effect outside this
// transaction.
func (s *Service) ProcessWebhook(ctx context.Context, ev *paymentprovider.WebhookEvent, rawPayload []byte) (fireStopSideEffect bool, ownerID string, err error) {
	const op = "subscription.Service.ProcessWebhook"

	var transitioned bool
	err = s.repo.WithTx(ctx, func(tx *storage.Tx) error {
		duplicate, dupErr := tx.HasProcessedEvent(ctx, ev.ID)
		if dupErr != nil {
			return dupErr
		}
		if duplicate {
			s.log.Info("duplicate webhook event, skipping", slog.String("provider_event_id", ev.ID))
			return nil
		}

		paymentEvent := &models.PaymentEvent{
			ProviderEventID:   ev.ID,
			EventType:         string(ev.Event),
			ProviderPaymentID: ev.Object.ID,
			AmountMinorUnits:  amountMinorUnits(ev.Object.Amount.Value),
			Currency:          ev.Object.Amount.Currency,
			RawPayload:        rawPayload,
		}

		sub, subErr := tx.GetSubscriptionByProviderIDForUpdate(ctx, ev.Object.SubscriptionID)
		if subErr != nil {
			if apperr.KindOf(subErr) == apperr.NotFound {
				s.log.Warn("webhook for unknown subscription", slog.String("provider_subscription_id", ev.Object.SubscriptionID))
				_, insErr := tx.InsertPaymentEvent(ctx, paymentEvent)
				return insErr
			}
			return subErr
		}
		paymentEvent.SubscriptionID = &sub.ID
		if _, insErr := tx.InsertPaymentEvent(ctx, paymentEvent); insErr != nil {
			return insErr
		}

		t, known := transitionTable[ev.Event]
		if !known {
			s.log.Info("unrecognized webhook event type, recorded only", slog.String("event_type", string(ev.Event)))
			return nil
		}
		if !allowed(sub, t) {
			s.log.Info("webhook transition rejected", slog.String("from_state", sub.State), slog.String("event_type", string(ev.Event)))
			return nil
		}

		if t.toState != "" {
			sub.State = t.toState
			transitioned = true
			ownerID = sub.UserID
		}
		if t.setDates {
			sub.PeriodStart = &ev.Object.CapturedAt
			end := ev.Object.CapturedAt.AddDate(0, 1, 0)
			sub.PeriodEnd = &end
		}
		if t.terminal {
			now := time.Now()
			sub.CancelledAt = &now
			fireStopSideEffect = true
			transitioned = true
			ownerID = sub.UserID
		}
		if ev.Object.ID != "" && sub.ProviderSubscriptionID == nil {
			sub.ProviderSubscriptionID = &ev.Object.ID
		}
		return tx.UpdateSubscriptionState(ctx, sub)
	})
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", op, err)
	}
	if transitioned && s.entitlement != nil {
		if invErr := s.entitlement.Invalidate(ctx, ownerID); invErr != nil {
			s.log.Warn("failed to invalidate cached entitlement after webhook transition", sl.Err(invErr), slog.String("owner_id", ownerID))
		}
	}
	return fireStopSideEffect, ownerID, nil
}

// PublishStopSideEffect fans out the container-stop job for ownerID,
// logging but never failing the caller on a publish error (§4.6 step 6).
func (s *Service) PublishStopSideEffect(ownerID string) {
	if err := s.publisher.PublishWorkspaceStop(ownerID); err != nil {
		s.log.Error("failed to publish workspace stop side effect", sl.Err(err), slog.String("owner_id", ownerID))
	}
}

// amountMinorUnits parses a decimal provider amount string ("19.99") into
// integer minor units, tolerating a missing or malformed value by
// returning 0 rather than failing the whole webhook over an audit field.
func amountMinorUnits(value string) int64 {
	var whole, frac int64
	if _, err := fmt.Sscanf(value, "%d.%d", &whole, &frac); err != nil {
		return 0
	}
	return whole*100 + frac
}
