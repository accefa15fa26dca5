// Package entitlement wraps the subscription service's entitlement check
// with a short-lived Redis cache, keeping the reverse proxy's per-request
// hot path off the Postgres connection pool. Workspace lifecycle mutations
// never read through this cache — they check the subscription row directly
// inside their own transaction, since a stale "entitled" there could start
// a container for an owner whose subscription just lapsed.
package entitlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/hostplane/controlplane/internal/cache"
	"github.com/hostplane/controlplane/internal/lib/sl"
)

// ttl bounds how long a cached entitlement flag survives. The webhook
// handler's state machine invalidates the key directly on any transition,
// so this only bounds staleness between a transition and its own
// invalidation call failing.
const ttl = 30 * time.Second

// Checker is the uncached entitlement surface this decorator wraps.
// *subscription.Service satisfies it.
type Checker interface {
	IsEntitled(ctx context.Context, userID string) (bool, error)
}

// CachedChecker decorates a Checker with a Redis-backed cache.
type CachedChecker struct {
	inner Checker
	cache *cache.Cache
	log   *slog.Logger
}

// New builds a CachedChecker.
func New(inner Checker, c *cache.Cache, log *slog.Logger) *CachedChecker {
	return &CachedChecker{inner: inner, cache: c, log: log}
}

// IsEntitled returns userID's cached entitlement flag, falling through to
// inner and populating the cache on a miss. A cache read/write failure
// never fails the check — it just costs the round trip to Postgres.
func (c *CachedChecker) IsEntitled(ctx context.Context, userID string) (bool, error) {
	key := cache.EntitlementKey(userID)

	var entitled bool
	hit, err := c.cache.Get(ctx, key, &entitled)
	if err != nil {
		c.log.Warn("entitlement cache read failed", sl.Err(err))
	} else if hit {
		return entitled, nil
	}

	entitled, err = c.inner.IsEntitled(ctx, userID)
	if err != nil {
		return false, err
	}

	if err := c.cache.Set(ctx, key, entitled, ttl); err != nil {
		c.log.Warn("entitlement cache write failed", sl.Err(err))
	}
	return entitled, nil
}

// Invalidate evicts userID's cached entitlement flag. Called by
// subscription.Service.ProcessWebhook after every webhook-driven state
// transition commits, bounding staleness to the gap between commit and
// this call rather than the full cache ttl.
func (c *CachedChecker) Invalidate(ctx context.Context, userID string) error {
	return c.cache.Invalidate(ctx, cache.EntitlementKey(userID))
}
