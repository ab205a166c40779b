package runid

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore is the file-based implementation of Store. The record lives at
// <dir>/run_id.txt, holding the token followed by a trailing newline.
// Suitable for the normal case: one training process owning one directory.
type FileStore struct {
	mu     sync.Mutex
	closed bool
}

// NewFileStore creates a new file-based run id store
func NewFileStore() *FileStore {
	return &FileStore{}
}

// recordPath returns the record file path for a working directory
func recordPath(dir string) string {
	return filepath.Join(dir, RunIDFile)
}

// Read returns the token stored for dir. A missing record file or a record
// that is empty after trimming reports found=false with no error.
func (s *FileStore) Read(ctx context.Context, dir string) (string, bool, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", false, ErrStoreClosed
	}

	data, err := os.ReadFile(recordPath(dir))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read run id record: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// Write creates or overwrites the record for dir. The write is atomic:
// a temp file in the same directory is renamed over the record so a crash
// mid-write never leaves a truncated token behind.
func (s *FileStore) Write(ctx context.Context, dir string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create working directory: %w", err)
	}

	path := recordPath(dir)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, []byte(token+"\n"), 0644); err != nil {
		return fmt.Errorf("write run id record: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("commit run id record: %w", err)
	}
	return nil
}

// Delete removes the record file for dir. A missing file is not an error.
func (s *FileStore) Delete(ctx context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if err := os.Remove(recordPath(dir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete run id record: %w", err)
	}
	return nil
}

// Ping checks if the store is healthy
func (s *FileStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close closes the store
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)
