// Package workspace implements the workspace lifecycle manager (C5): a
// state machine over a workspace record plus a backing container, built
// the way the teacher structures its service-over-repository packages
// (internal/services/subscription), generalized from a single global
// limiter to one rate limiter per owner.
package workspace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/engine"
	"github.com/hostplane/controlplane/internal/lib/sl"
	"github.com/hostplane/controlplane/internal/models"
	"github.com/hostplane/controlplane/internal/storage"
)

// Limits bounds the configuration the service enforces beyond the hard
// per-request bounds already in internal/engine.
type Limits struct {
	MinMemoryBytes       int64
	MaxMemoryBytes       int64
	MaxWorkspacesPerUser int
	StopGraceTimeout     time.Duration
}

// Service is the workspace lifecycle manager.
type Service struct {
	repo       Repository
	engine     EngineClient
	limits     Limits
	ownerRate  *ownerLimiters
	log        *slog.Logger
}

// New builds a Service. perWindow/window configure the per-owner lifecycle
// rate limit (spec §4.5 default: 10 per 5 minutes).
func New(repo Repository, engineClient EngineClient, limits Limits, perWindow int, window time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		engine:    engineClient,
		limits:    limits,
		ownerRate: newOwnerLimiters(perWindow, window),
		log:       log,
	}
}

// Create inserts a new workspace for ownerID in models.WorkspaceStopped
// with a freshly generated proxy credential. The entitlement check and the
// per-owner create cap are both evaluated inside the same transaction as
// the insert: per spec §9, the definitive gate is the subscription row's
// state at the moment of this transaction, not an earlier pre-check.
func (s *Service) Create(ctx context.Context, ownerID, name string, cpuQuota float64, memoryBytes int64) (*models.Workspace, error) {
	if !s.ownerRate.allow(ownerID) {
		return nil, apperr.New(apperr.RateLimited, "too many lifecycle operations, try again later")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	rl := engine.Limits{CPUQuota: cpuQuota, MemoryBytes: memoryBytes}
	if err := rl.Validate(s.limits.MinMemoryBytes, s.limits.MaxMemoryBytes); err != nil {
		return nil, apperr.Wrap(apperr.InvalidLimits, err.Error(), err)
	}

	credential, err := newProxyCredential()
	if err != nil {
		return nil, fmt.Errorf("workspace.Create: %w", err)
	}

	var created *models.Workspace
	err = s.repo.WithTx(ctx, func(tx *storage.Tx) error {
		sub, err := tx.GetSubscriptionForUserForUpdate(ctx, ownerID)
		if err != nil {
			if ae, ok := apperr.As(err); ok && ae.Kind == apperr.NotFound {
				return apperr.New(apperr.Unentitled, "no active subscription")
			}
			return err
		}
		if !sub.IsEntitled(time.Now()) {
			return apperr.New(apperr.Unentitled, "subscription is not active")
		}

		count, err := tx.CountWorkspacesByOwnerForUpdate(ctx, ownerID)
		if err != nil {
			return err
		}
		if count >= s.limits.MaxWorkspacesPerUser {
			return apperr.New(apperr.LimitReached, "workspace limit reached")
		}

		ws := &models.Workspace{
			OwnerID:         ownerID,
			Name:            name,
			RuntimeState:    models.WorkspaceStopped,
			ProxyCredential: credential,
			CPUQuota:        cpuQuota,
			MemoryBytes:     memoryBytes,
		}
		created, err = tx.CreateWorkspace(ctx, ws)
		if err != nil {
			if ae, ok := apperr.As(err); ok && ae.Kind == apperr.Conflict {
				return apperr.Wrap(apperr.NameConflict, ae.Message, ae)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Get returns ownerID's workspace identified by id.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*models.Workspace, error) {
	return s.repo.GetWorkspace(ctx, id, ownerID)
}

// List returns every workspace ownerID owns. Callers surfacing this to the
// owner-facing list endpoint must drop ProxyCredential; spec §6 exposes it
// only from the single-workspace read/create responses.
func (s *Service) List(ctx context.Context, ownerID string) ([]*models.Workspace, error) {
	return s.repo.ListWorkspacesByOwner(ctx, ownerID)
}

// Start brings the workspace up: if no engine handle exists yet it creates
// the backing container first (transitioning through models.WorkspaceCreating),
// then starts it. Starting an already-running workspace is a no-op success.
// Requires an active entitlement at the moment of the mutating transaction.
func (s *Service) Start(ctx context.Context, ownerID, id string) (*models.Workspace, error) {
	if !s.ownerRate.allow(ownerID) {
		return nil, apperr.New(apperr.RateLimited, "too many lifecycle operations, try again later")
	}

	var ws *models.Workspace
	var engineFailed bool
	err := s.repo.WithTx(ctx, func(tx *storage.Tx) error {
		locked, err := tx.GetWorkspaceForUpdate(ctx, id, ownerID)
		if err != nil {
			return err
		}
		sub, err := tx.GetSubscriptionForUserForUpdate(ctx, ownerID)
		if err != nil {
			if ae, ok := apperr.As(err); ok && ae.Kind == apperr.NotFound {
				return apperr.New(apperr.Unentitled, "no active subscription")
			}
			return err
		}
		if !sub.IsEntitled(time.Now()) {
			return apperr.New(apperr.Unentitled, "subscription is not active")
		}

		if locked.RuntimeState == models.WorkspaceRunning {
			ws = locked
			return nil
		}

		if locked.EngineHandle == nil {
			if err := tx.UpdateWorkspaceState(ctx, id, models.WorkspaceCreating); err != nil {
				return err
			}
			if err := s.engine.EnsureNetwork(ctx); err != nil {
				engineFailed = true
				return apperr.Wrap(apperr.EngineError, "could not prepare internal network", err)
			}
			handle, err := s.engine.CreateWorkspaceContainer(ctx, id, engine.Limits{
				CPUQuota:    locked.CPUQuota,
				MemoryBytes: locked.MemoryBytes,
			})
			if err != nil {
				engineFailed = true
				return mapEngineErr(err)
			}
			if err := tx.SetWorkspaceEngineHandle(ctx, id, &handle); err != nil {
				return err
			}
			locked.EngineHandle = &handle
			if err := tx.UpdateWorkspaceState(ctx, id, models.WorkspaceStopped); err != nil {
				return err
			}
		}

		if err := s.engine.Start(ctx, *locked.EngineHandle); err != nil {
			engineFailed = true
			return mapEngineErr(err)
		}
		if err := tx.UpdateWorkspaceState(ctx, id, models.WorkspaceRunning); err != nil {
			return err
		}

		fresh, err := tx.GetWorkspaceForUpdate(ctx, id, ownerID)
		if err != nil {
			return err
		}
		ws = fresh
		return nil
	})
	if err != nil {
		if engineFailed {
			// WithTx already rolled back whatever state writes happened inside
			// the closure, so the error transition has to be persisted on its
			// own connection, after the failed transaction is gone.
			if updErr := s.repo.UpdateWorkspaceState(ctx, id, models.WorkspaceError); updErr != nil {
				s.log.Error("failed to persist error state after engine failure", sl.Err(updErr))
			}
		}
		return nil, err
	}
	return ws, nil
}

// Stop stops the backing container and moves the workspace to
// models.WorkspaceStopped. Stopping an already-stopped workspace is a
// no-op success.
func (s *Service) Stop(ctx context.Context, ownerID, id string) (*models.Workspace, error) {
	if !s.ownerRate.allow(ownerID) {
		return nil, apperr.New(apperr.RateLimited, "too many lifecycle operations, try again later")
	}

	var ws *models.Workspace
	err := s.repo.WithTx(ctx, func(tx *storage.Tx) error {
		locked, err := tx.GetWorkspaceForUpdate(ctx, id, ownerID)
		if err != nil {
			return err
		}
		sub, err := tx.GetSubscriptionForUserForUpdate(ctx, ownerID)
		if err != nil {
			if ae, ok := apperr.As(err); ok && ae.Kind == apperr.NotFound {
				return apperr.New(apperr.Unentitled, "no active subscription")
			}
			return err
		}
		if !sub.IsEntitled(time.Now()) {
			return apperr.New(apperr.Unentitled, "subscription is not active")
		}

		if locked.RuntimeState != models.WorkspaceRunning {
			ws = locked
			return nil
		}
		if locked.EngineHandle != nil {
			if err := s.engine.Stop(ctx, *locked.EngineHandle, s.limits.StopGraceTimeout); err != nil {
				return mapEngineErr(err)
			}
		}
		if err := tx.UpdateWorkspaceState(ctx, id, models.WorkspaceStopped); err != nil {
			return err
		}
		fresh, err := tx.GetWorkspaceForUpdate(ctx, id, ownerID)
		if err != nil {
			return err
		}
		ws = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// Delete force-removes any backing container and deletes the workspace
// record. No entitlement check: an owner may always tear down their own
// workspace, entitled or not.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.WithTx(ctx, func(tx *storage.Tx) error {
		locked, err := tx.GetWorkspaceForUpdate(ctx, id, ownerID)
		if err != nil {
			return err
		}
		if locked.EngineHandle != nil {
			if err := s.engine.Remove(ctx, *locked.EngineHandle); err != nil {
				return mapEngineErr(err)
			}
		}
		return tx.DeleteWorkspace(ctx, id, ownerID)
	})
}

// StopAll stops every running workspace owned by ownerID, used by the
// post-commit side-effect fan-out when ownerID's subscription leaves the
// active state (spec §4.6 step 6). Best-effort: one workspace's stop
// failure does not prevent the others from being attempted.
func (s *Service) StopAll(ctx context.Context, ownerID string) error {
	workspaces, err := s.repo.ListWorkspacesByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	var firstErr error
	for _, ws := range workspaces {
		if ws.RuntimeState != models.WorkspaceRunning || ws.EngineHandle == nil {
			continue
		}
		if err := s.engine.Stop(ctx, *ws.EngineHandle, s.limits.StopGraceTimeout); err != nil {
			s.log.Error("failed to stop workspace during fan-out", sl.Err(err), slog.String("workspace_id", ws.ID))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := s.repo.UpdateWorkspaceState(ctx, ws.ID, models.WorkspaceStopped); err != nil {
			s.log.Error("failed to persist stopped state during fan-out", sl.Err(err), slog.String("workspace_id", ws.ID))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// mapEngineErr translates a sentinel error from internal/engine into the
// apperr.Kind the HTTP surface renders.
func mapEngineErr(err error) error {
	switch {
	case errors.Is(err, engine.ErrImageMissing):
		return apperr.Wrap(apperr.ImageMissing, "workspace image is not available", err)
	case errors.Is(err, engine.ErrInvalidLimits):
		return apperr.Wrap(apperr.InvalidLimits, "invalid resource limits", err)
	default:
		return apperr.Wrap(apperr.EngineError, "container engine operation failed", err)
	}
}

// newProxyCredential returns a 256-bit random value, hex-encoded (64
// characters), used as the workspace's proxy credential.
func newProxyCredential() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
