// Package persist provides durable snapshots of resource state. The
// store treats persistence as an injected hook: it calls Load once at
// startup and Save after mutations, and keeps serving from memory if
// either fails.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Saver loads and stores a full state snapshot.
type Saver interface {
	// Load returns the last saved snapshot, or an empty map when no
	// snapshot exists yet.
	Load() (map[string]any, error)

	// Save replaces the durable snapshot.
	Save(state map[string]any) error
}

// FileSaver persists state as one JSON file, written atomically via a
// temp file and rename.
type FileSaver struct {
	path string
}

// NewFileSaver creates a saver writing to path. Parent directories are
// created on the first save.
func NewFileSaver(path string) *FileSaver {
	return &FileSaver{path: path}
}

// Path returns the snapshot file location.
func (f *FileSaver) Path() string {
	return f.path
}

func (f *FileSaver) Load() (map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}

	var state map[string]any
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", f.path, err)
	}
	return state, nil
}

func (f *FileSaver) Save(state map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
