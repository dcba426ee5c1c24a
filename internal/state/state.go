// Package state persists the delivery watermark between runs.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Watermark records the id of the newest post already relayed to the
// webhook. A zero value means no post has ever been relayed.
type Watermark struct {
	LastPostID string `json:"last_post_id"`
}

// StateError reports an unreadable or malformed state file. Callers
// fall back to an empty watermark and continue; losing the watermark
// costs at most one duplicate window, never data.
type StateError struct {
	Path string
	Err  error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state file %s: %v", e.Path, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

// Store reads and writes the watermark file.
type Store struct {
	path string
}

func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("state: path is required")
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the stored watermark. A missing file is a first run and
// yields an empty watermark with no error. An unreadable or malformed
// file yields an empty watermark plus a *StateError so the caller can
// warn and proceed.
func (s *Store) Load() (Watermark, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Watermark{}, nil
	}
	if err != nil {
		return Watermark{}, &StateError{Path: s.path, Err: err}
	}

	var wm Watermark
	if err := json.Unmarshal(data, &wm); err != nil {
		return Watermark{}, &StateError{Path: s.path, Err: err}
	}
	return wm, nil
}

// Save writes the watermark as pretty-printed JSON, creating the
// parent directory if needed.
func (s *Store) Save(wm Watermark) error {
	if strings.TrimSpace(wm.LastPostID) == "" {
		return errors.New("state: last post id is required")
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(wm, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Clear removes the state file so the next run initializes from
// scratch. Clearing an absent file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove state: %w", err)
	}
	return nil
}
