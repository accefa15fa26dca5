// Package auth implements account registration, login and account lookup
// for the control plane, grounded on the teacher's
// service-over-repository shape.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/lib/password"
	"github.com/hostplane/controlplane/internal/models"
)

// Repository is the persistence surface Service depends on.
type Repository interface {
	CreateUser(ctx context.Context, email, passwordDigest string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// TokenIssuer mints opaque bearer tokens. *token.Maker
// satisfies it.
type TokenIssuer interface {
	Issue(userID string) (tokenStr string, expiresAt time.Time, err error)
}

// Service implements registration, login and account lookup.
type Service struct {
	users    Repository
	tokens   TokenIssuer
	hashCost int
}

// New builds a Service. hashCost is the bcrypt work factor from
// configuration (floored to password.MinCost).
func New(users Repository, tokens TokenIssuer, hashCost int) *Service {
	return &Service{users: users, tokens: tokens, hashCost: hashCost}
}

// Register creates a new account after enforcing the password complexity
// policy, returning the created user with PasswordDigest never populated
// to the caller beyond what models.User already omits from JSON.
func (s *Service) Register(ctx context.Context, email, rawPassword string) (*models.User, error) {
	const op = "auth.Service.Register"

	if err := password.ValidatePolicy(rawPassword); err != nil {
		return nil, err
	}
	digest, err := password.Hash(rawPassword, s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err := s.users.CreateUser(ctx, email, digest)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Login verifies email/password and issues a bearer token. Any failure —
// unknown email or wrong password — is reported as the same
// apperr.AuthFailed so a client cannot enumerate registered emails.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (tokenStr string, expiresAt time.Time, user *models.User, err error) {
	const op = "auth.Service.Login"

	user, err = s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return "", time.Time{}, nil, apperr.New(apperr.AuthFailed, "invalid email or password")
		}
		return "", time.Time{}, nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.Compare(user.PasswordDigest, rawPassword); err != nil {
		return "", time.Time{}, nil, apperr.New(apperr.AuthFailed, "invalid email or password")
	}

	tokenStr, expiresAt, err = s.tokens.Issue(user.ID)
	if err != nil {
		return "", time.Time{}, nil, fmt.Errorf("%s: %w", op, err)
	}
	return tokenStr, expiresAt, user, nil
}

// Me returns the account identified by userID, for the bearer-authenticated
// GET /api/auth/me route.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetUser(ctx, userID)
}
