package store

import (
	"fmt"
	"os"
	"sync"

	"storyd/internal/common/fsutil"
)

// Story holds the main story text, persisted as a plain text file.
type Story struct {
	mu   sync.RWMutex
	path string
	text string
}

// OpenStory loads the story text from path, or starts empty when the file
// does not exist yet.
func OpenStory(path string) (*Story, error) {
	s := &Story{path: path}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read story file: %w", err)
	}
	s.text = string(raw)
	return s, nil
}

// Text returns the current story text.
func (s *Story) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Save replaces the story text and persists it.
func (s *Story) Save(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.text
	s.text = text
	if s.path == "" {
		return nil
	}
	if err := fsutil.WriteFileAtomic(s.path, []byte(text), 0o644); err != nil {
		s.text = prev
		return err
	}
	return nil
}
