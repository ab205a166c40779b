package sinks

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/trackflow/types"
)

// ConsoleSink writes metrics to the process log, one line per step.
type ConsoleSink struct {
	logger *zap.Logger
}

// NewConsoleSink creates a console sink
func NewConsoleSink(logger *zap.Logger) *ConsoleSink {
	return &ConsoleSink{
		logger: logger.With(zap.String("component", "metrics_console")),
	}
}

func (s *ConsoleSink) Name() string { return "console" }

// Log writes one log line with all metrics as fields, keys sorted for
// stable output. When the context carries a bound run id the line is
// tagged with it, so interleaved runs stay distinguishable.
func (s *ConsoleSink) Log(ctx context.Context, step int64, metrics types.Metrics) error {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(metrics)+2)
	fields = append(fields, zap.Int64("step", step))
	if runID, ok := types.RunID(ctx); ok {
		fields = append(fields, zap.String("run_id", runID))
	}
	for _, k := range keys {
		fields = append(fields, zap.Float64(k, metrics[k]))
	}

	s.logger.Info("metrics", fields...)
	return nil
}

// Close is a no-op for the console sink
func (s *ConsoleSink) Close() error { return nil }

// Ensure ConsoleSink implements Sink
var _ Sink = (*ConsoleSink)(nil)
