// Package token issues and verifies the bearer tokens handed to API
// clients. The token is opaque to the client: it carries user_id,
// issued_at and expires_at internally (as JWT registered claims, MAC'd with
// HS256) but the service never documents or relies on the client being
// able to read it. Verify collapses every failure mode — malformed token,
// bad signature, expired token — into a single apperr.AuthFailed so the
// client learns nothing about which check failed.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hostplane/controlplane/internal/apperr"
)

// DefaultTTL is the bearer token lifetime used when config leaves it unset.
const DefaultTTL = 24 * time.Hour

type claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Maker issues and verifies opaque bearer tokens signed with a
// process-wide secret.
type Maker struct {
	secret []byte
	ttl    time.Duration
}

// New builds a Maker. ttl <= 0 falls back to DefaultTTL.
func New(secret string, ttl time.Duration) *Maker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Maker{secret: []byte(secret), ttl: ttl}
}

// Issue mints a token for userID valid for m.ttl.
func (m *Maker) Issue(userID string) (tokenStr string, expiresAt time.Time, err error) {
	const op = "token.Issue"
	now := time.Now()
	expiresAt = now.Add(m.ttl)

	c := claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates tokenStr, returning the user id it carries.
// Any failure — malformed, bad signature, expired — is reported as the
// same apperr.AuthFailed so clients cannot distinguish failure causes.
func (m *Maker) Verify(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(_ *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return "", apperr.Wrap(apperr.AuthFailed, "invalid or expired token", err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.UserID == "" {
		return "", apperr.New(apperr.AuthFailed, "invalid or expired token")
	}
	return c.UserID, nil
}
