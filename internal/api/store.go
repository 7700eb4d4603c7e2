package api

import (
	"errors"
	"sync"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/pipeline"
)

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("run not found")

// RunStore is the read surface the HTTP handlers need.
type RunStore interface {
	List(limit, offset int) []pipeline.Run
	Get(id string) (pipeline.Run, error)
}

// MemoryRunStore keeps runs from the current process, newest first.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs []pipeline.Run
	max  int
}

// NewMemoryRunStore creates a store retaining at most max runs
// (0 means keep 100).
func NewMemoryRunStore(max int) *MemoryRunStore {
	if max <= 0 {
		max = 100
	}
	return &MemoryRunStore{max: max}
}

// Add records a completed run, evicting the oldest past the retention cap.
func (s *MemoryRunStore) Add(run pipeline.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	if len(s.runs) > s.max {
		s.runs = s.runs[len(s.runs)-s.max:]
	}
}

// List returns runs newest first.
func (s *MemoryRunStore) List(limit, offset int) []pipeline.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pipeline.Run, 0, limit)
	for i := len(s.runs) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.runs[i])
	}
	return out
}

// Get returns the run with the given ID.
func (s *MemoryRunStore) Get(id string) (pipeline.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, run := range s.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return pipeline.Run{}, ErrNotFound
}
