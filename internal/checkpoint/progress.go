package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/hyperjump/examforge/internal/models"
)

// ProgressStore reads and writes the progress file wholesale.
type ProgressStore struct {
	path string
}

// NewProgressStore returns a store for the progress file at path.
func NewProgressStore(path string) *ProgressStore {
	return &ProgressStore{path: path}
}

// Path returns the progress file location.
func (s *ProgressStore) Path() string { return s.path }

// Load returns the stored progress. A missing file yields the initial state and
// found=false; an unreadable or corrupt file is an error.
func (s *ProgressStore) Load() (p *models.ProcessingProgress, found bool, err error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.NewProgress(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read progress: %w", err)
	}
	p = models.NewProgress()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, true, fmt.Errorf("corrupt progress file %s: %w", s.path, err)
	}
	return p, true, nil
}

// Save replaces the progress file atomically.
func (s *ProgressStore) Save(p *models.ProcessingProgress) error {
	return WriteJSONAtomic(s.path, p)
}
