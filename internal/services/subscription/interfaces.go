package subscription

import (
	"context"

	"github.com/hostplane/controlplane/internal/models"
	"github.com/hostplane/controlplane/internal/paymentprovider"
	"github.com/hostplane/controlplane/internal/storage"
)

// Repository is the persistence surface the state machine depends on,
// implemented by internal/storage.
type Repository interface {
	WithTx(ctx context.Context, fn func(tx *storage.Tx) error) error
	GetSubscriptionForUser(ctx context.Context, userID string) (*models.Subscription, error)
}

// CheckoutClient creates a checkout session with the external payment
// provider, implemented by *paymentprovider.Client.
type CheckoutClient interface {
	CreateCheckout(ctx context.Context, req paymentprovider.CheckoutRequest) (*paymentprovider.CheckoutResponse, error)
}

// SideEffectPublisher fans out the container-stop job triggered by a
// terminal transition (§4.6 step 6), outside the webhook transaction.
type SideEffectPublisher interface {
	PublishWorkspaceStop(ownerID string) error
}

// EntitlementInvalidator evicts the proxy's cached entitlement flag for a
// user, implemented by *entitlement.CachedChecker.
type EntitlementInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}
