package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magharvest/magharvest/internal/model"
)

// document is the on-disk shape of the definition store.
type document struct {
	Tasks []*model.ScheduledTask `json:"tasks"`
}

// Store persists scheduled definitions as a single JSON document. The whole
// definition set is written on every save; the in-memory set stays
// authoritative when the disk is unavailable.
type Store struct {
	path string
}

// NewStore creates a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the full definition set. A missing file is an empty set, not an
// error; reload reconstructs every field and leaves absent timestamps nil.
func (s *Store) Load() ([]*model.ScheduledTask, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read definition store: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse definition store: %w", err)
	}
	return doc.Tasks, nil
}

// Save writes the full definition set, creating the parent directory on
// first use. The write goes through a temporary file so a crash mid-write
// cannot leave a truncated store behind.
func (s *Store) Save(tasks []*model.ScheduledTask) error {
	data, err := json.MarshalIndent(document{Tasks: tasks}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode definition store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write definition store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace definition store: %w", err)
	}
	return nil
}
