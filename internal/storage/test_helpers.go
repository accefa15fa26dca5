package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// newTestStorage starts a disposable postgres container, applies the
// schema and returns a Storage against it. Cleanup of the container and
// the pool is registered with t.Cleanup.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("controlplane_test"),
		postgres.WithUsername("controlplane"),
		postgres.WithPassword("controlplane"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var s *Storage
	for i := 0; i < 10; i++ {
		s, err = New(dsn, 5, 0, nil)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to connect after retries")
	t.Cleanup(func() {
		require.NoError(t, s.DB.Close())
	})

	applySchema(t, s)
	return s
}

func applySchema(t *testing.T, s *Storage) {
	t.Helper()
	_, err := s.DB.Exec(`
		CREATE TABLE users (
			id              UUID PRIMARY KEY,
			email           TEXT NOT NULL UNIQUE,
			password_digest TEXT NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE workspaces (
			id               UUID PRIMARY KEY,
			owner_id         UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name             TEXT NOT NULL,
			engine_handle    TEXT,
			runtime_state    TEXT NOT NULL,
			proxy_credential TEXT NOT NULL,
			cpu_quota        DOUBLE PRECISION NOT NULL,
			memory_bytes     BIGINT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_started_at  TIMESTAMPTZ,
			UNIQUE (owner_id, name)
		);

		CREATE TABLE subscriptions (
			id                       UUID PRIMARY KEY,
			user_id                  UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			provider_subscription_id TEXT,
			state                    TEXT NOT NULL,
			plan_id                  TEXT NOT NULL,
			period_start             TIMESTAMPTZ,
			period_end               TIMESTAMPTZ,
			cancelled_at             TIMESTAMPTZ,
			created_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at               TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE payment_events (
			id                  UUID PRIMARY KEY,
			subscription_id     UUID REFERENCES subscriptions(id) ON DELETE SET NULL,
			provider_event_id   TEXT NOT NULL UNIQUE,
			event_type          TEXT NOT NULL,
			provider_payment_id TEXT,
			amount_minor_units  BIGINT,
			currency            TEXT,
			raw_payload         JSONB NOT NULL,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	require.NoError(t, err, "failed to apply schema")
}

// createTestUser inserts a user through CreateUser and returns its id, so
// repository tests can set up an owner fixture in one line.
func createTestUser(t *testing.T, s *Storage, email string) string {
	t.Helper()
	u, err := s.CreateUser(context.Background(), email, "digest")
	require.NoError(t, err)
	return u.ID
}
