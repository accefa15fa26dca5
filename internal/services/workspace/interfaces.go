package workspace

import (
	"context"
	"time"

	"github.com/hostplane/controlplane/internal/engine"
	"github.com/hostplane/controlplane/internal/models"
	"github.com/hostplane/controlplane/internal/storage"
)

// Repository is the persistence surface the lifecycle manager needs.
// *storage.Storage satisfies it; tests substitute a fake.
type Repository interface {
	WithTx(ctx context.Context, fn func(tx *storage.Tx) error) error
	GetWorkspace(ctx context.Context, id, ownerID string) (*models.Workspace, error)
	ListWorkspacesByOwner(ctx context.Context, ownerID string) ([]*models.Workspace, error)
	UpdateWorkspaceState(ctx context.Context, id, state string) error
	SetWorkspaceEngineHandle(ctx context.Context, id string, handle *string) error
	DeleteWorkspace(ctx context.Context, id, ownerID string) error
}

// EngineClient is the slice of C4 the lifecycle manager drives. *engine.Client
// satisfies it.
type EngineClient interface {
	EnsureNetwork(ctx context.Context) error
	CreateWorkspaceContainer(ctx context.Context, workspaceID string, limits engine.Limits) (string, error)
	Start(ctx context.Context, handle string) error
	Stop(ctx context.Context, handle string, timeout time.Duration) error
	Remove(ctx context.Context, handle string) error
}
