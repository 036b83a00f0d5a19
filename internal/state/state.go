// Package state persists the small amount of client state that survives
// restarts: the last page the user looked at.
package state

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/widget"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the state file below the user's home directory.
const DefaultFile = ".config/ldash/state.yaml"

// File is the on-disk layout.
type File struct {
	LastPage string `yaml:"last_page,omitempty"`
}

// Store reads and writes the state file. A missing or unreadable file
// behaves as empty state.
type Store struct {
	mu   sync.Mutex
	path string
	data File
}

// DefaultPath returns ~/.config/ldash/state.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Base(DefaultFile)
	}
	return filepath.Join(home, DefaultFile)
}

// Open loads path. An empty path keeps state in memory only.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot read state file "+path,
			"Check file permissions, or delete the file to reset")
	}
	if err := yaml.Unmarshal(data, &s.data); err != nil {
		s.data = File{}
		return s, errors.WrapWithCode(err, errors.ErrConfig,
			"State file is not valid YAML: "+path,
			"Delete the file to reset")
	}
	return s, nil
}

// Path is the backing file, empty for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// LastPage returns the persisted page, or "" if none.
func (s *Store) LastPage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LastPage
}

// Destination picks the page to show once loading ends: the persisted
// page if it is one of names, otherwise fallback.
func (s *Store) Destination(names []string, fallback string) string {
	last := s.LastPage()
	if last == "" || last == widget.LoadingPage {
		return fallback
	}
	for _, n := range names {
		if n == last {
			return last
		}
	}
	return fallback
}

// SetLastPage records page and writes the file. The loading page is never
// stored.
func (s *Store) SetLastPage(page string) error {
	if page == "" || page == widget.LoadingPage {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.LastPage == page {
		return nil
	}
	s.data.LastPage = page
	return s.save()
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	out, err := yaml.Marshal(&s.data)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Cannot encode state", "")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot create state directory for "+s.path, "Check directory permissions")
	}

	// Write then rename so a crash never leaves a truncated file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot write state file "+s.path, "Check file permissions")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot write state file "+s.path, "Check file permissions")
	}
	return nil
}
