package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BaSui01/trackflow/types"
)

// JSONLSink appends metrics to a local JSONL file, one object per step.
// The file is the local mirror of what the tracking service receives, and
// is what offline tooling (the rollout viewer, ad-hoc analysis) reads.
type JSONLSink struct {
	path   string
	file   *os.File
	mu     sync.Mutex
	closed bool
}

// NewJSONLSink creates a JSONL sink writing to path.
// Parent directories are created if they don't exist.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create metrics directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open metrics file: %w", err)
	}

	return &JSONLSink{path: path, file: file}, nil
}

func (s *JSONLSink) Name() string { return "jsonl" }

// Path returns the file the sink appends to.
func (s *JSONLSink) Path() string { return s.path }

// Log appends one types.MetricPoint per line.
func (s *JSONLSink) Log(ctx context.Context, step int64, metrics types.Metrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.NewError(types.ErrStoreClosed, "jsonl sink is closed")
	}

	point := types.MetricPoint{
		Step:      step,
		Timestamp: time.Now().UTC(),
		Metrics:   metrics,
	}

	data, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	data = append(data, '\n')

	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("append metrics: %w", err)
	}
	return nil
}

// Close syncs and closes the file
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.file.Sync(); err != nil {
		_ = s.file.Close()
		return fmt.Errorf("sync metrics file: %w", err)
	}
	return s.file.Close()
}

// Ensure JSONLSink implements Sink
var _ Sink = (*JSONLSink)(nil)
