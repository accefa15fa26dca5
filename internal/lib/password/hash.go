// Package password implements password policy enforcement plus bcrypt
// hashing and verification.
//
// Hash produces a bcrypt digest at the configured work factor. Compare
// checks a digest against a candidate password. ValidatePolicy rejects
// passwords that don't meet the minimum complexity bar before either is
// ever called.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinCost is the lowest bcrypt work factor the service will accept from
// configuration; the spec requires an adaptive cost of at least 10.
const MinCost = 10

// Hash returns the bcrypt digest of password at the given cost. A cost
// below MinCost is raised to MinCost.
func Hash(password string, cost int) (string, error) {
	const op = "password.Hash"
	if cost < MinCost {
		cost = MinCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(digest), nil
}

// Compare reports whether password matches digest. It returns a plain error
// rather than exposing bcrypt's internal error values; callers should map
// any non-nil return to apperr.AuthFailed.
func Compare(digest, password string) error {
	const op = "password.Compare"
	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
