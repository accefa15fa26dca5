package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/models"
)

func TestStorage_CreateAndGetWorkspace(t *testing.T) {
	s := newTestStorage(t)
	ownerID := createTestUser(t, s, "owner1@example.com")

	var created *models.Workspace
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		created, err = tx.CreateWorkspace(context.Background(), &models.Workspace{
			OwnerID:         ownerID,
			Name:            "dev-box",
			RuntimeState:    models.WorkspaceCreating,
			ProxyCredential: "secret-token",
			CPUQuota:        1,
			MemoryBytes:     512 << 20,
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, models.WorkspaceCreating, created.RuntimeState)

	got, err := s.GetWorkspace(context.Background(), created.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "dev-box", got.Name)

	_, err = s.GetWorkspace(context.Background(), created.ID, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestStorage_CreateWorkspace_DuplicateNameConflicts(t *testing.T) {
	s := newTestStorage(t)
	ownerID := createTestUser(t, s, "owner2@example.com")

	create := func() error {
		return s.WithTx(context.Background(), func(tx *Tx) error {
			_, err := tx.CreateWorkspace(context.Background(), &models.Workspace{
				OwnerID:         ownerID,
				Name:            "dup",
				RuntimeState:    models.WorkspaceCreating,
				ProxyCredential: "secret",
				CPUQuota:        1,
				MemoryBytes:     512 << 20,
			})
			return err
		})
	}
	require.NoError(t, create())
	err := create()
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestStorage_CountWorkspacesByOwnerForUpdate(t *testing.T) {
	s := newTestStorage(t)
	ownerID := createTestUser(t, s, "owner3@example.com")

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		count, err := tx.CountWorkspacesByOwnerForUpdate(context.Background(), ownerID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		_, err = tx.CreateWorkspace(context.Background(), &models.Workspace{
			OwnerID:         ownerID,
			Name:            "one",
			RuntimeState:    models.WorkspaceCreating,
			ProxyCredential: "secret",
			CPUQuota:        1,
			MemoryBytes:     512 << 20,
		})
		return err
	})
	require.NoError(t, err)

	err = s.WithTx(context.Background(), func(tx *Tx) error {
		count, err := tx.CountWorkspacesByOwnerForUpdate(context.Background(), ownerID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		return nil
	})
	require.NoError(t, err)
}

func TestStorage_ListWorkspacesByOwner(t *testing.T) {
	s := newTestStorage(t)
	ownerID := createTestUser(t, s, "owner4@example.com")

	for _, name := range []string{"a", "b"} {
		err := s.WithTx(context.Background(), func(tx *Tx) error {
			_, err := tx.CreateWorkspace(context.Background(), &models.Workspace{
				OwnerID:         ownerID,
				Name:            name,
				RuntimeState:    models.WorkspaceCreating,
				ProxyCredential: "secret",
				CPUQuota:        1,
				MemoryBytes:     512 << 20,
			})
			return err
		})
		require.NoError(t, err)
	}

	list, err := s.ListWorkspacesByOwner(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestStorage_UpdateWorkspaceState(t *testing.T) {
	s := newTestStorage(t)
	ownerID := createTestUser(t, s, "owner5@example.com")

	var created *models.Workspace
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		created, err = tx.CreateWorkspace(context.Background(), &models.Workspace{
			OwnerID:         ownerID,
			Name:            "dev-box",
			RuntimeState:    models.WorkspaceCreating,
			ProxyCredential: "secret",
			CPUQuota:        1,
			MemoryBytes:     512 << 20,
		})
		return err
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateWorkspaceState(context.Background(), created.ID, models.WorkspaceRunning))

	got, err := s.GetWorkspace(context.Background(), created.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkspaceRunning, got.RuntimeState)
	assert.NotNil(t, got.LastStartedAt)
}

func TestStorage_DeleteWorkspace(t *testing.T) {
	s := newTestStorage(t)
	ownerID := createTestUser(t, s, "owner6@example.com")

	var created *models.Workspace
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		created, err = tx.CreateWorkspace(context.Background(), &models.Workspace{
			OwnerID:         ownerID,
			Name:            "dev-box",
			RuntimeState:    models.WorkspaceCreating,
			ProxyCredential: "secret",
			CPUQuota:        1,
			MemoryBytes:     512 << 20,
		})
		return err
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteWorkspace(context.Background(), created.ID, ownerID))

	err = s.DeleteWorkspace(context.Background(), created.ID, ownerID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
