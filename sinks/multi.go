package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/trackflow/internal/metrics"
	"github.com/BaSui01/trackflow/types"
)

// MultiSink fans metrics out to several sinks. One failing sink does not
// stop the others: every sink sees every point, and failures are logged and
// counted rather than short-circuiting the training loop.
type MultiSink struct {
	sinks     []Sink
	logger    *zap.Logger
	collector *metrics.Collector
}

// MultiSinkOption configures optional MultiSink collaborators.
type MultiSinkOption func(*MultiSink)

// WithCollector attaches a metrics collector.
func WithCollector(c *metrics.Collector) MultiSinkOption {
	return func(m *MultiSink) { m.collector = c }
}

// NewMultiSink creates a fan-out sink
func NewMultiSink(logger *zap.Logger, sinks []Sink, opts ...MultiSinkOption) *MultiSink {
	m := &MultiSink{
		sinks:  sinks,
		logger: logger.With(zap.String("component", "multi_sink")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MultiSink) Name() string { return "multi" }

// Log delivers the metrics to every sink. The first error is returned after
// all sinks have been attempted.
func (m *MultiSink) Log(ctx context.Context, step int64, metricsIn types.Metrics) error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Log(ctx, step, metricsIn); err != nil {
			m.logger.Warn("sink write failed",
				zap.String("sink", sink.Name()),
				zap.Int64("step", step),
				zap.Error(err),
			)
			if m.collector != nil {
				m.collector.RecordSinkError(sink.Name())
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
			continue
		}
		if m.collector != nil {
			m.collector.RecordMetricPoints(sink.Name(), len(metricsIn))
		}
	}
	return firstErr
}

// Close closes all sinks concurrently and returns the first error.
func (m *MultiSink) Close() error {
	var g errgroup.Group
	for _, sink := range m.sinks {
		g.Go(sink.Close)
	}
	return g.Wait()
}

// Ensure MultiSink implements Sink
var _ Sink = (*MultiSink)(nil)
