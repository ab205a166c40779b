package sinks

import (
	"context"

	"github.com/BaSui01/trackflow/types"
)

// Sink consumes scalar metrics at a given step.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Log records the metrics observed at step.
	Log(ctx context.Context, step int64, metrics types.Metrics) error

	// Close flushes and releases sink resources.
	Close() error
}
