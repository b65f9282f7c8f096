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

// PlotPoints is the plot-point store, same shape as Characters.
type PlotPoints struct {
	mu   sync.RWMutex
	path string
	byID map[uuid.UUID]types.PlotPoint
}

// OpenPlotPoints loads the store from path, or starts empty when the file
// does not exist yet.
func OpenPlotPoints(path string) (*PlotPoints, error) {
	s := &PlotPoints{path: path, byID: make(map[uuid.UUID]types.PlotPoint)}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plot points file: %w", err)
	}
	var records []types.PlotPoint
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode plot points file: %w", err)
	}
	for _, p := range records {
		s.byID[p.ID] = p
	}
	return s, nil
}

// Create adds a plot point with a fresh ID and persists.
func (s *PlotPoints) Create(in types.PlotPointCreate) (types.PlotPoint, error) {
	p := types.PlotPoint{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Type:        in.Type,
	}
	if p.Status == "" {
		p.Status = types.PlotStatusDefault
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = p
	if err := s.persistLocked(); err != nil {
		delete(s.byID, p.ID)
		return types.PlotPoint{}, err
	}
	return p, nil
}

// PlotPoint returns the plot point with the given ID. Satisfies the prompt
// assembler's lookup interface.
func (s *PlotPoints) PlotPoint(id uuid.UUID) (types.PlotPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	return p, ok
}

// List returns all plot points in unspecified order.
func (s *PlotPoints) List() []types.PlotPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.PlotPoint, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	return out
}

// Update applies the non-nil fields of upd and persists.
func (s *PlotPoints) Update(id uuid.UUID, upd types.PlotPointUpdate) (types.PlotPoint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return types.PlotPoint{}, false, nil
	}
	prev := p
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if upd.Type != nil {
		p.Type = *upd.Type
	}
	s.byID[id] = p
	if err := s.persistLocked(); err != nil {
		s.byID[id] = prev
		return types.PlotPoint{}, false, err
	}
	return p, true, nil
}

// Delete removes the plot point and persists.
func (s *PlotPoints) Delete(id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	delete(s.byID, id)
	if err := s.persistLocked(); err != nil {
		s.byID[id] = p
		return false, err
	}
	return true, nil
}

func (s *PlotPoints) persistLocked() error {
	if s.path == "" {
		return nil
	}
	records := make([]types.PlotPoint, 0, len(s.byID))
	for _, p := range s.byID {
		records = append(records, p)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plot points: %w", err)
	}
	return fsutil.WriteFileAtomic(s.path, data, 0o644)
}
