package engine

import "errors"

// Sentinel errors the lifecycle manager (C5) maps onto apperr.EngineError,
// apperr.Validation and apperr.Internal respectively. They are returned
// wrapped ("%s: %w") so callers use errors.Is, never string matching.
var (
	// ErrEngine wraps any daemon-side failure not covered by a more
	// specific sentinel below (connection refused, context deadline, a
	// 500 from the API).
	ErrEngine = errors.New("container engine error")

	// ErrInvalidLimits is returned by CreateWorkspaceContainer when cpu or
	// memory limits fail validation that should have already been caught
	// by the caller; surfacing it here is a second line of defense.
	ErrInvalidLimits = errors.New("invalid resource limits")

	// ErrImageMissing is returned when the configured image reference is
	// not present locally and cannot be pulled.
	ErrImageMissing = errors.New("workspace image not available")
)
