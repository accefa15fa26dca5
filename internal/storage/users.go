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

// CreateUser inserts a new account and returns its generated id.
func (s *Storage) CreateUser(ctx context.Context, email, passwordDigest string) (*models.User, error) {
	const op = "storage.CreateUser"
	defer s.logSlowQuery(op, time.Now())

	query := `INSERT INTO users (id, email, password_digest)
			  VALUES ($1, $2, $3)
			  RETURNING id, email, password_digest, created_at, updated_at`
	u := &models.User{}
	err := s.DB.QueryRowContext(ctx, query, uuid.New().String(), email, passwordDigest).Scan(
		&u.ID, &u.Email, &u.PasswordDigest, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.Conflict, "an account with this email already exists", err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByEmail returns the account registered under email, or
// apperr.NotFound if none exists.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	defer s.logSlowQuery(op, time.Now())

	query := `SELECT id, email, password_digest, created_at, updated_at
			  FROM users WHERE email = $1`
	u := &models.User{}
	err := s.DB.QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.PasswordDigest, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "no account with that email")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUser returns the account identified by id, or apperr.NotFound.
func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUser"
	defer s.logSlowQuery(op, time.Now())

	query := `SELECT id, email, password_digest, created_at, updated_at
			  FROM users WHERE id = $1`
	u := &models.User{}
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.PasswordDigest, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
