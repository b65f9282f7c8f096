// Package store persists the writing project's domain records as flat JSON
// files under one data directory.
package store

import (
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"storyd/internal/common/fsutil"
	"storyd/pkg/types"
)

// Characters is the character store: an in-memory map mirrored to a JSON
// file on every mutation. An empty path keeps the store memory-only, which
// tests use.
type Characters struct {
	mu   sync.RWMutex
	path string
	byID map[uuid.UUID]types.Character
}

// OpenCharacters loads the store from path, or starts empty when the file
// does not exist yet.
func OpenCharacters(path string) (*Characters, error) {
	s := &Characters{path: path, byID: make(map[uuid.UUID]types.Character)}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read characters file: %w", err)
	}
	var records []types.Character
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode characters file: %w", err)
	}
	for _, c := range records {
		s.byID[c.ID] = c
	}
	return s, nil
}

// Create adds a character with a fresh ID and persists.
func (s *Characters) Create(in types.CharacterCreate) (types.Character, error) {
	c := types.Character{
		ID:                 uuid.New(),
		Name:               in.Name,
		Description:        in.Description,
		Traits:             in.Traits,
		Motivations:        in.Motivations,
		PhysicalAppearance: in.PhysicalAppearance,
		Status:             in.Status,
	}
	if c.Status == "" {
		c.Status = types.CharacterStatusDefault
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[c.ID] = c
	if err := s.persistLocked(); err != nil {
		delete(s.byID, c.ID)
		return types.Character{}, err
	}
	return c, nil
}

// Character returns the character with the given ID. Satisfies the prompt
// assembler's lookup interface.
func (s *Characters) Character(id uuid.UUID) (types.Character, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	return c, ok
}

// List returns all characters in unspecified order.
func (s *Characters) List() []types.Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Character, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	return out
}

// Update applies the non-nil fields of upd and persists. The second return
// is false when the ID is unknown.
func (s *Characters) Update(id uuid.UUID, upd types.CharacterUpdate) (types.Character, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return types.Character{}, false, nil
	}
	prev := c
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	if upd.Traits != nil {
		c.Traits = *upd.Traits
	}
	if upd.Motivations != nil {
		c.Motivations = *upd.Motivations
	}
	if upd.PhysicalAppearance != nil {
		c.PhysicalAppearance = *upd.PhysicalAppearance
	}
	if upd.Status != nil {
		c.Status = *upd.Status
	}
	s.byID[id] = c
	if err := s.persistLocked(); err != nil {
		s.byID[id] = prev
		return types.Character{}, false, err
	}
	return c, true, nil
}

// Delete removes the character and persists. False when the ID is unknown.
func (s *Characters) Delete(id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	delete(s.byID, id)
	if err := s.persistLocked(); err != nil {
		s.byID[id] = c
		return false, err
	}
	return true, nil
}

func (s *Characters) persistLocked() error {
	if s.path == "" {
		return nil
	}
	records := make([]types.Character, 0, len(s.byID))
	for _, c := range s.byID {
		records = append(records, c)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode characters: %w", err)
	}
	return fsutil.WriteFileAtomic(s.path, data, 0o644)
}
