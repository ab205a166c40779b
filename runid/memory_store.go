package runid

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
)

// MemoryStore is an in-memory implementation of Store.
// Suitable for development and testing.
type MemoryStore struct {
	records map[string]string // cleaned dir path -> token
	mu      sync.RWMutex
	closed  bool
}

// NewMemoryStore creates a new in-memory run id store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]string),
	}
}

// Read returns the stored token for dir
func (s *MemoryStore) Read(ctx context.Context, dir string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", false, ErrStoreClosed
	}

	token, ok := s.records[filepath.Clean(dir)]
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// Write stores the token for dir
func (s *MemoryStore) Write(ctx context.Context, dir string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.records[filepath.Clean(dir)] = token
	return nil
}

// Delete removes the record for dir
func (s *MemoryStore) Delete(ctx context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	delete(s.records, filepath.Clean(dir))
	return nil
}

// Ping checks if the store is healthy
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close closes the store
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
