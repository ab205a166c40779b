package track

import (
	"context"

	"github.com/BaSui01/trackflow/types"
)

// Session is the live logging handle of an open run. It stays usable for the
// remainder of the process even when persisting the run identity failed.
type Session interface {
	// LogMetrics records scalar metrics at the given step.
	LogMetrics(ctx context.Context, step int64, metrics types.Metrics) error

	// Finish marks the run as complete and releases provider resources.
	Finish(ctx context.Context) error
}

// RunHandle is what a provider returns when a run is opened. The identifier
// is the service-assigned one, which on resume may differ from the
// identifier that was requested.
type RunHandle struct {
	ID      string
	URL     string
	Session Session
}

// Client is the narrow capability interface to a tracking service. Exactly
// two operations are consumed by the binder, so a test double can stand in
// for a real service without any network dependency.
type Client interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// OpenNew opens a brand-new run. The service assigns the identifier.
	OpenNew(ctx context.Context, cfg types.RunConfig) (*RunHandle, error)

	// OpenExisting opens the run with the given identifier with resume
	// intent. The service owns the authoritative state: if the run was
	// deleted out-of-band it may hand back a fresh run, possibly under a
	// different identifier.
	OpenExisting(ctx context.Context, id string, cfg types.RunConfig) (*RunHandle, error)
}
