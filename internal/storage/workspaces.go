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

// CreateWorkspace inserts a new workspace row in the RuntimeState ws carries.
// Callers holding the per-owner lock (see CountWorkspacesByOwnerForUpdate)
// should run this inside the same transaction.
func (tx *Tx) CreateWorkspace(ctx context.Context, ws *models.Workspace) (*models.Workspace, error) {
	const op = "storage.Tx.CreateWorkspace"

	query := `INSERT INTO workspaces (id, owner_id, name, runtime_state, proxy_credential, cpu_quota, memory_bytes)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id, owner_id, name, runtime_state, proxy_credential, cpu_quota, memory_bytes,
			            created_at, updated_at`
	out := &models.Workspace{}
	err := tx.QueryRowContext(ctx, query,
		uuid.New().String(), ws.OwnerID, ws.Name, ws.RuntimeState, ws.ProxyCredential, ws.CPUQuota, ws.MemoryBytes,
	).Scan(&out.ID, &out.OwnerID, &out.Name, &out.RuntimeState, &out.ProxyCredential,
		&out.CPUQuota, &out.MemoryBytes, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.Conflict, "a workspace with this name already exists", err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// CountWorkspacesByOwnerForUpdate returns how many workspaces ownerID
// currently has, taking a row-level lock on each of that owner's workspace
// rows so a concurrent create for the same owner blocks until this
// transaction commits. Call inside the transaction that will insert the
// new row, before checking it against the per-owner cap.
func (tx *Tx) CountWorkspacesByOwnerForUpdate(ctx context.Context, ownerID string) (int, error) {
	const op = "storage.Tx.CountWorkspacesByOwnerForUpdate"

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM workspaces WHERE owner_id = $1 FOR UPDATE`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	count := 0
	for rows.Next() {
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// GetWorkspaceForUpdate returns and locks the workspace row, so lifecycle
// operations on the same workspace (start, stop, delete) serialize instead
// of interleaving. Call inside the transaction that will mutate the row.
func (tx *Tx) GetWorkspaceForUpdate(ctx context.Context, id, ownerID string) (*models.Workspace, error) {
	const op = "storage.Tx.GetWorkspaceForUpdate"

	query := `SELECT id, owner_id, name, engine_handle, runtime_state, proxy_credential, cpu_quota,
			         memory_bytes, created_at, updated_at, last_started_at
			  FROM workspaces WHERE id = $1 AND owner_id = $2 FOR UPDATE`
	ws, err := scanWorkspace(tx.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "workspace not found")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ws, nil
}

// GetWorkspace returns the workspace identified by id, scoped to ownerID so
// one tenant can never address another's workspace by guessing an id.
func (s *Storage) GetWorkspace(ctx context.Context, id, ownerID string) (*models.Workspace, error) {
	const op = "storage.GetWorkspace"
	defer s.logSlowQuery(op, time.Now())

	query := `SELECT id, owner_id, name, engine_handle, runtime_state, proxy_credential, cpu_quota,
			         memory_bytes, created_at, updated_at, last_started_at
			  FROM workspaces WHERE id = $1 AND owner_id = $2`
	ws, err := scanWorkspace(s.DB.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "workspace not found")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ws, nil
}

// GetWorkspaceByCredential looks up the workspace whose proxy_credential
// matches credential, for the reverse proxy's per-request auth (§4.7 step
// 2). The column carries a unique index, so this is a constant-time
// lookup; callers must never log credential in full, only a prefix.
func (s *Storage) GetWorkspaceByCredential(ctx context.Context, credential string) (*models.Workspace, error) {
	const op = "storage.GetWorkspaceByCredential"
	defer s.logSlowQuery(op, time.Now())

	query := `SELECT id, owner_id, name, engine_handle, runtime_state, proxy_credential, cpu_quota,
			         memory_bytes, created_at, updated_at, last_started_at
			  FROM workspaces WHERE proxy_credential = $1`
	ws, err := scanWorkspace(s.DB.QueryRowContext(ctx, query, credential))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.AuthFailed, "no workspace for credential")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ws, nil
}

// ListWorkspacesByOwner returns every workspace ownerID owns, most
// recently created first.
func (s *Storage) ListWorkspacesByOwner(ctx context.Context, ownerID string) ([]*models.Workspace, error) {
	const op = "storage.ListWorkspacesByOwner"
	defer s.logSlowQuery(op, time.Now())

	query := `SELECT id, owner_id, name, engine_handle, runtime_state, proxy_credential, cpu_quota,
			         memory_bytes, created_at, updated_at, last_started_at
			  FROM workspaces WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

const updateWorkspaceStateQuery = `UPDATE workspaces
			  SET runtime_state = $1,
			      updated_at = now(),
			      last_started_at = CASE WHEN $1 = $2 THEN now() ELSE last_started_at END
			  WHERE id = $3`

// UpdateWorkspaceState sets runtime_state and, when transitioning into
// WorkspaceRunning, stamps last_started_at.
func (s *Storage) UpdateWorkspaceState(ctx context.Context, id, state string) error {
	const op = "storage.UpdateWorkspaceState"
	defer s.logSlowQuery(op, time.Now())

	if _, err := s.DB.ExecContext(ctx, updateWorkspaceStateQuery, state, models.WorkspaceRunning, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateWorkspaceState is the transaction-scoped counterpart of
// (*Storage).UpdateWorkspaceState, used by the lifecycle manager once it
// already holds the row lock from GetWorkspaceForUpdate.
func (tx *Tx) UpdateWorkspaceState(ctx context.Context, id, state string) error {
	const op = "storage.Tx.UpdateWorkspaceState"

	if _, err := tx.ExecContext(ctx, updateWorkspaceStateQuery, state, models.WorkspaceRunning, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const setWorkspaceEngineHandleQuery = `UPDATE workspaces SET engine_handle = $1, updated_at = now() WHERE id = $2`

// SetWorkspaceEngineHandle records the container engine's handle for id, or
// clears it when handle is nil (after a successful remove).
func (s *Storage) SetWorkspaceEngineHandle(ctx context.Context, id string, handle *string) error {
	const op = "storage.SetWorkspaceEngineHandle"
	defer s.logSlowQuery(op, time.Now())

	if _, err := s.DB.ExecContext(ctx, setWorkspaceEngineHandleQuery, handle, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetWorkspaceEngineHandle is the transaction-scoped counterpart of
// (*Storage).SetWorkspaceEngineHandle.
func (tx *Tx) SetWorkspaceEngineHandle(ctx context.Context, id string, handle *string) error {
	const op = "storage.Tx.SetWorkspaceEngineHandle"

	if _, err := tx.ExecContext(ctx, setWorkspaceEngineHandleQuery, handle, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const deleteWorkspaceQuery = `DELETE FROM workspaces WHERE id = $1 AND owner_id = $2`

// DeleteWorkspace removes the workspace row. The caller is responsible for
// having already torn down the backing container.
func (s *Storage) DeleteWorkspace(ctx context.Context, id, ownerID string) error {
	const op = "storage.DeleteWorkspace"
	defer s.logSlowQuery(op, time.Now())

	result, err := s.DB.ExecContext(ctx, deleteWorkspaceQuery, id, ownerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return checkRowsAffected(op, result)
}

// DeleteWorkspace is the transaction-scoped counterpart of
// (*Storage).DeleteWorkspace, used by the lifecycle manager once it
// already holds the row lock from GetWorkspaceForUpdate.
func (tx *Tx) DeleteWorkspace(ctx context.Context, id, ownerID string) error {
	const op = "storage.Tx.DeleteWorkspace"

	result, err := tx.ExecContext(ctx, deleteWorkspaceQuery, id, ownerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return checkRowsAffected(op, result)
}

func checkRowsAffected(op string, result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return apperr.New(apperr.NotFound, "workspace not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(row rowScanner) (*models.Workspace, error) {
	ws := &models.Workspace{}
	var engineHandle sql.NullString
	var lastStartedAt sql.NullTime
	if err := row.Scan(&ws.ID, &ws.OwnerID, &ws.Name, &engineHandle, &ws.RuntimeState,
		&ws.ProxyCredential, &ws.CPUQuota, &ws.MemoryBytes, &ws.CreatedAt, &ws.UpdatedAt, &lastStartedAt,
	); err != nil {
		return nil, err
	}
	if engineHandle.Valid {
		ws.EngineHandle = &engineHandle.String
	}
	if lastStartedAt.Valid {
		ws.LastStartedAt = &lastStartedAt.Time
	}
	return ws, nil
}
