package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Artifact describes one file produced by a run
type Artifact struct {
	Name string `yaml:"name" json:"name"`
	Path string `yaml:"path" json:"path"`
	Rows int    `yaml:"rows" json:"rows"`
}

// ArtifactStore records the artifacts written during a run. It is safe for
// concurrent use by exporters running in parallel.
type ArtifactStore struct {
	artifacts map[string]Artifact
	mu        sync.RWMutex
}

func New() *ArtifactStore {
	return &ArtifactStore{
		artifacts: make(map[string]Artifact),
	}
}

// Set records a, replacing any artifact of the same name
func (s *ArtifactStore) Set(a Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[a.Name] = a
}

// GetAll returns every artifact sorted by name
func (s *ArtifactStore) GetAll() []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// WriteFile writes path through a temporary sibling file that is renamed into
// place only once fn succeeds and the file is synced and closed. On failure
// the previous contents of path are left untouched.
func WriteFile(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := fn(tmp); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
