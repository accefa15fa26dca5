package middlewarectx

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/response"
)

// KeyFunc extracts the rate-limit bucket key from a request: the
// authenticated user id for API/lifecycle groups, the remote address for
// the unauthenticated auth group.
type KeyFunc func(r *http.Request) string

// ByRemoteAddr keys the limiter on r.RemoteAddr, for routes with no
// authenticated identity yet (register, login).
func ByRemoteAddr(r *http.Request) string { return r.RemoteAddr }

// ByUserID keys the limiter on the user id Auth already placed in context,
// falling back to the remote address if somehow absent.
func ByUserID(r *http.Request) string {
	if userID, ok := UserIDFrom(r.Context()); ok {
		return userID
	}
	return r.RemoteAddr
}

// keyedLimiters is a registry of per-key token-bucket limiters, generalized
// from the teacher's single process-wide rate.Limiter to one bucket per
// key so one tenant's traffic cannot exhaust another's quota.
type keyedLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	perWindow int
	window    time.Duration
}

func newKeyedLimiters(perWindow int, window time.Duration) *keyedLimiters {
	return &keyedLimiters{limiters: make(map[string]*rate.Limiter), perWindow: perWindow, window: window}
}

func (k *keyedLimiters) allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(k.window/time.Duration(k.perWindow)), k.perWindow)
		k.limiters[key] = l
	}
	return l.Allow()
}

// RateLimit builds a middleware enforcing perWindow requests per window,
// bucketed by keyFn.
func RateLimit(perWindow int, window time.Duration, keyFn KeyFunc) func(http.Handler) http.Handler {
	limiters := newKeyedLimiters(perWindow, window)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(keyFn(r)) {
				response.Error(w, r, apperr.New(apperr.RateLimited, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
