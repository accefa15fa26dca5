package workspace

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ownerLimiters bounds lifecycle-operation throughput per owner (spec
// §4.5's "10 per 5 min" default), the same golang.org/x/time/rate the
// teacher uses for its single global limiter
// (internal/http/middlewarectx/limit.go), generalized from one limiter to
// one per key so a noisy owner cannot exhaust another's budget.
type ownerLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perWindow int
	window    time.Duration
}

func newOwnerLimiters(perWindow int, window time.Duration) *ownerLimiters {
	return &ownerLimiters{
		limiters:  make(map[string]*rate.Limiter),
		perWindow: perWindow,
		window:    window,
	}
}

// allow reports whether ownerID may perform one more lifecycle operation
// right now, creating that owner's limiter lazily on first use.
func (o *ownerLimiters) allow(ownerID string) bool {
	o.mu.Lock()
	lim, ok := o.limiters[ownerID]
	if !ok {
		// Burst equals the window budget so an owner can spend it all at
		// once; the refill rate spreads replenishment across the window.
		lim = rate.NewLimiter(rate.Limit(float64(o.perWindow)/o.window.Seconds()), o.perWindow)
		o.limiters[ownerID] = lim
	}
	o.mu.Unlock()
	return lim.Allow()
}
