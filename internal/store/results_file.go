package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileOrderStore appends order results as newline-delimited JSON. The
// file is opened lazily on first append and flushed per record so a
// crash never loses more than the in-flight line.
type FileOrderStore struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *bufio.Writer
}

// NewFileOrderStore creates an order store appending to path.
func NewFileOrderStore(path string) *FileOrderStore {
	return &FileOrderStore{path: path}
}

func (s *FileOrderStore) ensureOpenLocked() error {
	if s.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	s.file = f
	s.w = bufio.NewWriter(f)
	return nil
}

// Append writes r as one JSON line.
func (s *FileOrderStore) Append(_ context.Context, r *OrderResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal order result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpenLocked(); err != nil {
		return err
	}
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("write order result: %w", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write order result: %w", err)
	}
	return s.w.Flush()
}

// Close flushes buffered data and closes the file.
func (s *FileOrderStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.w != nil {
		if err := s.w.Flush(); err != nil {
			firstErr = err
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.w = nil
	s.file = nil
	return firstErr
}

var _ OrderStore = (*FileOrderStore)(nil)
