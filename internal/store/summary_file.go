package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSummaryStore keeps session summaries as a single JSON array so the
// file stays directly loadable by ad-hoc analysis scripts. Each append
// reads the array back, appends, and rewrites the whole file.
type FileSummaryStore struct {
	mu   sync.Mutex
	path string
}

// NewFileSummaryStore creates a summary store writing to path.
func NewFileSummaryStore(path string) *FileSummaryStore {
	return &FileSummaryStore{path: path}
}

// Append adds s to the summary file. An absent or corrupt file is
// replaced with a fresh array rather than failing the append.
func (s *FileSummaryStore) Append(_ context.Context, summary *SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var summaries []*SessionSummary
	if data, err := os.ReadFile(s.path); err == nil {
		if err := json.Unmarshal(data, &summaries); err != nil {
			summaries = nil
		}
	}
	summaries = append(summaries, summary)

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summaries: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create summary dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write summaries: %w", err)
	}
	return nil
}

var _ SummaryStore = (*FileSummaryStore)(nil)
