package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cwygoda/coursedl/internal/domain"
)

// Store implements domain.ProgressStore as a single JSON document of the
// form {"done": [...], "pending": [...]}.
type Store struct {
	path string
}

// New creates a store persisting to path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the progress file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the progress file. A missing file is a first run.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, err
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return snap, true, nil
}

// Save replaces the progress file. The document is written to a temp file
// in the same directory and renamed over the old one.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	if snap.Done == nil {
		snap.Done = []string{}
	}
	if snap.Pending == nil {
		snap.Pending = []string{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
