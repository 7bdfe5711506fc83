// Package registry maintains the set of directories registered for
// indexing and their lifecycle state, persisted as a JSON file.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/radhakrish-venkat/desktop-search/internal/apperr"
	"github.com/radhakrish-venkat/desktop-search/internal/domain"
)

// Registry holds the registered directories in memory, backed by a JSON
// file on disk. Reads return a stable snapshot; the Scheduler is the sole
// writer of live status/progress fields while a task runs.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*domain.DirectoryEntry
	path    string
}

// New creates a Registry that persists to path.
func New(path string) *Registry {
	return &Registry{entries: make(map[string]*domain.DirectoryEntry), path: path}
}

// Load reads the registry file if it exists; a missing file is not an error.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read registry: %w", err)
	}

	var entries []*domain.DirectoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse registry: %w", err)
	}
	for _, e := range entries {
		r.entries[e.Path] = e
	}
	return nil
}

// Save persists the current entries to disk.
func (r *Registry) Save() error {
	r.mu.RLock()
	entries := make([]*domain.DirectoryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}
	return os.WriteFile(r.path, data, 0o644)
}

// Add validates that path exists and is a directory, registers it in
// not_indexed state, and persists. Returns apperr.ErrConflict if already
// registered, apperr.ErrInvalidInput if path is not a directory.
func (r *Registry) Add(path string) (domain.DirectoryEntry, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return domain.DirectoryEntry{}, apperr.ErrInvalidInput
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[abs]; exists {
		return domain.DirectoryEntry{}, apperr.ErrConflict
	}

	entry := &domain.DirectoryEntry{
		Path:   abs,
		Name:   filepath.Base(abs),
		Status: domain.StatusNotIndexed,
	}
	r.entries[abs] = entry
	return *entry, r.saveLocked()
}

// Remove deletes path from the registry.
func (r *Registry) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[abs]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.entries, abs)
	return r.saveLocked()
}

// Get returns a snapshot of one entry.
func (r *Registry) Get(path string) (domain.DirectoryEntry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[abs]
	if !ok {
		return domain.DirectoryEntry{}, apperr.ErrNotFound
	}
	return *e, nil
}

// List returns a stable snapshot of all registered directories.
func (r *Registry) List() []domain.DirectoryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.DirectoryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out
}

// Update mutates one entry in place via fn and persists the change. It is
// the Scheduler's mechanism for advancing status/progress while a task runs.
func (r *Registry) Update(path string, fn func(*domain.DirectoryEntry)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[abs]
	if !ok {
		return apperr.ErrNotFound
	}
	fn(e)
	return r.saveLocked()
}

func (r *Registry) saveLocked() error {
	entries := make([]*domain.DirectoryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}
	return os.WriteFile(r.path, data, 0o644)
}
