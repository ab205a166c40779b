package sinks

import (
	"context"

	"github.com/BaSui01/trackflow/track"
	"github.com/BaSui01/trackflow/types"
)

// SessionSink forwards metrics to a live tracking session.
type SessionSink struct {
	session track.Session
}

// NewSessionSink creates a sink backed by an open tracking session
func NewSessionSink(session track.Session) *SessionSink {
	return &SessionSink{session: session}
}

func (s *SessionSink) Name() string { return "session" }

// Log forwards the metrics to the tracking service
func (s *SessionSink) Log(ctx context.Context, step int64, metrics types.Metrics) error {
	return s.session.LogMetrics(ctx, step, metrics)
}

// Close finishes the tracking session
func (s *SessionSink) Close() error {
	return s.session.Finish(context.Background())
}

// Ensure SessionSink implements Sink
var _ Sink = (*SessionSink)(nil)
