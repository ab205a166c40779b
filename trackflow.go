// Package trackflow provides a top-level convenience entry point for binding
// tracked runs with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/trackflow"
//
//	run, err := trackflow.Open(ctx, trackflow.WithWandB("my-project"))
//	run, err := trackflow.Open(ctx, trackflow.WithMLflow("my-project"))
//	run, err := trackflow.Open(ctx, trackflow.WithOffline("my-project"))
//
// This is a thin wrapper around [quick.Open]; both produce identical results.
// Use this package when you prefer the shorter import path.
package trackflow

import (
	"context"

	"github.com/BaSui01/trackflow/quick"
)

// Option configures the run opened by [Open].
type Option = quick.Option

// Run is a bound tracked run ready to receive metrics.
type Run = quick.Run

// Open binds a tracked run with minimal configuration.
// At minimum, a provider and project must be specified via [WithWandB],
// [WithMLflow], [WithOffline], or a loaded configuration.
func Open(ctx context.Context, opts ...Option) (*Run, error) {
	return quick.Open(ctx, opts...)
}

// Re-export option shortcuts so callers never need to import quick/.

// WithConfig sets a pre-loaded configuration.
var WithConfig = quick.WithConfig

// WithConfigPath loads configuration from a YAML file.
var WithConfigPath = quick.WithConfigPath

// WithWandB selects the W&B provider. API key from WANDB_API_KEY env.
var WithWandB = quick.WithWandB

// WithMLflow selects the MLflow provider. Tracking URI from MLFLOW_TRACKING_URI env.
var WithMLflow = quick.WithMLflow

// WithOffline selects the local offline provider.
var WithOffline = quick.WithOffline

// WithClient sets a pre-built tracking client.
var WithClient = quick.WithClient

// WithStore sets a pre-built run id store.
var WithStore = quick.WithStore

// WithAPIKey overrides the API key for provider shortcuts.
var WithAPIKey = quick.WithAPIKey

// WithDir sets the working directory holding the run id record.
var WithDir = quick.WithDir

// WithoutPersistence disables the run id record entirely.
var WithoutPersistence = quick.WithoutPersistence

// WithExpectResume marks that the caller restored from a checkpoint.
var WithExpectResume = quick.WithExpectResume

// WithName sets the run display name.
var WithName = quick.WithName

// WithGroup sets the run group.
var WithGroup = quick.WithGroup

// WithTags sets the run tags.
var WithTags = quick.WithTags

// WithHyperparams sets the hyperparameter payload logged at open time.
var WithHyperparams = quick.WithHyperparams

// WithJSONLMirror also appends every metric point to a local JSONL file.
var WithJSONLMirror = quick.WithJSONLMirror

// WithConsoleMetrics also logs every metric point through the logger.
var WithConsoleMetrics = quick.WithConsoleMetrics

// WithoutJournal disables the bind history journal.
var WithoutJournal = quick.WithoutJournal

// WithLogger sets a custom zap logger.
var WithLogger = quick.WithLogger

// WithCollector attaches a Prometheus metrics collector.
var WithCollector = quick.WithCollector
