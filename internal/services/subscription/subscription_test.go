package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hostplane/controlplane/internal/models"
	"github.com/hostplane/controlplane/internal/paymentprovider"
)

func TestCatalog_valid(t *testing.T) {
	c := Catalog{PlanIDs: []string{"basic", "pro"}}
	assert.True(t, c.valid("basic"))
	assert.True(t, c.valid("pro"))
	assert.False(t, c.valid("enterprise"))
	assert.False(t, c.valid(""))
}

func TestAllowed(t *testing.T) {
	cases := []struct {
		name  string
		state string
		event paymentprovider.EventType
		want  bool
	}{
		{"activate pending", models.SubStatePending, paymentprovider.EventSubscriptionActivated, true},
		{"activate active rejected", models.SubStateActive, paymentprovider.EventSubscriptionActivated, false},
		{"charge active", models.SubStateActive, paymentprovider.EventSubscriptionCharged, true},
		{"charge past due", models.SubStatePastDue, paymentprovider.EventSubscriptionCharged, true},
		{"charge pending rejected", models.SubStatePending, paymentprovider.EventSubscriptionCharged, false},
		{"complete from active", models.SubStateActive, paymentprovider.EventSubscriptionCompleted, true},
		{"cancel from pending", models.SubStatePending, paymentprovider.EventSubscriptionCancelled, true},
		{"cancel sticky over terminal", models.SubStateCancelled, paymentprovider.EventSubscriptionCancelled, false},
		{"pending-event from active", models.SubStateActive, paymentprovider.EventSubscriptionPending, true},
		{"pending-event from pending rejected", models.SubStatePending, paymentprovider.EventSubscriptionPending, false},
		{"resume from past due", models.SubStatePastDue, paymentprovider.EventSubscriptionResumed, true},
		{"resume from active rejected", models.SubStateActive, paymentprovider.EventSubscriptionResumed, false},
		{"payment failed always recorded only", models.SubStateActive, paymentprovider.EventPaymentFailed, true},
		{"event on expired subscription rejected", models.SubStateExpired, paymentprovider.EventSubscriptionActivated, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := &models.Subscription{State: tc.state}
			tr := transitionTable[tc.event]
			assert.Equal(t, tc.want, allowed(sub, tr))
		})
	}
}

func TestAmountMinorUnits(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"19.99", 1999},
		{"5.00", 500},
		{"0.01", 1},
		{"", 0},
		{"not-a-number", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, amountMinorUnits(tc.in), tc.in)
	}
}
