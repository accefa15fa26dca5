package models

import "time"

// Workspace runtime states. The state tracks the lifecycle manager's view
// of the record, independent of whether a backing container exists yet.
const (
	WorkspaceStopped  = "stopped"
	WorkspaceCreating = "creating"
	WorkspaceRunning  = "running"
	WorkspaceError    = "error"
)

// Workspace is a per-tenant container plus its persisted configuration.
// ProxyCredential is exposed only to the owner: never logged, never
// forwarded downstream.
type Workspace struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Name            string     `json:"name"`
	EngineHandle    *string    `json:"-"`
	RuntimeState    string     `json:"runtime_state"`
	ProxyCredential string     `json:"proxy_credential,omitempty"`
	CPUQuota        float64    `json:"cpu_quota"`
	MemoryBytes     int64      `json:"memory_bytes"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastStartedAt   *time.Time `json:"last_started_at,omitempty"`
}
