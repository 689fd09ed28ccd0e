package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultRosterFilename is looked up in the working directory when no
// roster file is given explicitly.
const DefaultRosterFilename = "agents.json"

// RosterFile tracks where the agent roster lives on disk.
type RosterFile struct {
	mu   sync.RWMutex
	path string
}

func NewRosterFile(path string) (*RosterFile, error) {
	r := &RosterFile{}
	if _, err := r.SetPath(path); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RosterFile) Path() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path
}

// SetPath stores path as an absolute, cleaned path. An empty path clears it.
func (r *RosterFile) SetPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		r.mu.Lock()
		r.path = ""
		r.mu.Unlock()
		return "", nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve roster path: %w", err)
	}

	r.mu.Lock()
	r.path = absPath
	r.mu.Unlock()
	return absPath, nil
}

// Detect returns the stored path, or dir/agents.json when that file exists.
func (r *RosterFile) Detect(dir string) (string, bool) {
	if p := r.Path(); p != "" {
		return p, true
	}
	candidate := filepath.Join(dir, DefaultRosterFilename)
	if _, err := os.Stat(candidate); err != nil {
		return "", false
	}
	if _, err := r.SetPath(candidate); err != nil {
		return "", false
	}
	return r.Path(), true
}

func (r *RosterFile) Read() ([]byte, error) {
	path := r.Path()
	if path == "" {
		return nil, fmt.Errorf("roster path is empty")
	}
	return os.ReadFile(path)
}

// Write replaces the roster file atomically.
func (r *RosterFile) Write(data []byte) error {
	path := r.Path()
	if path == "" {
		return fmt.Errorf("roster path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create roster directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
