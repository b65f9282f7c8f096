package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"storyd/internal/infer"
)

// LoadResult reports a successful load, possibly with a non-fatal warning
// such as a device downgrade.
type LoadResult struct {
	Message string
	Warning string
}

// Load installs a model into a slot. Configuration and capability problems
// are rejected before any I/O; on adapter failure the slot keeps its prior
// state. A handle already in the slot is released as part of installing the
// new one, never left alongside it.
func (e *Engine) Load(ctx context.Context, slotName, backend, modelID, device string, contextLength int) (LoadResult, error) {
	s, err := e.slotByName(slotName)
	if err != nil {
		return LoadResult{}, err
	}
	adapter, err := e.adapters.ForBackend(backend)
	if err != nil {
		return LoadResult{}, err
	}
	resolved, warning, err := e.resolveDevice(backend, device)
	if err != nil {
		return LoadResult{}, err
	}
	ref, err := e.resolveModelRef(backend, modelID)
	if err != nil {
		return LoadResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Info().Str("slot", s.name).Str("backend", backend).Str("model", modelID).
		Str("device", resolved).Msg("loading model")
	handle, err := adapter.Load(ctx, infer.LoadSpec{
		ModelRef:      ref,
		Device:        resolved,
		ContextLength: contextLength,
	})
	if err != nil {
		log.Warn().Err(err).Str("slot", s.name).Str("model", modelID).Msg("load failed")
		loadsTotal.WithLabelValues(backend, "error").Inc()
		return LoadResult{}, err
	}

	if s.handle != nil {
		if cerr := s.handle.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("slot", s.name).Msg("closing previous handle")
		}
	}
	s.handle = handle
	s.backend = backend
	s.modelID = modelID
	s.device = resolved
	s.publishStatus()
	loadsTotal.WithLabelValues(backend, "ok").Inc()

	res := LoadResult{
		Message: fmt.Sprintf("Model %q (%s) loaded into %s slot on %s.", modelID, backend, s.name, resolved),
		Warning: warning,
	}
	if warning != "" {
		log.Warn().Str("slot", s.name).Str("model", modelID).Msg(warning)
	}
	return res, nil
}

// Unload releases the handle(s) for a slot, or for both slots with "all".
// Accelerator memory the adapter can release is released before Unload
// returns. Unloading an empty slot is a no-op.
func (e *Engine) Unload(slotName string) error {
	if slotName == SlotAll {
		e.unloadSlot(&e.primary)
		e.unloadSlot(&e.auxiliary)
		return nil
	}
	s, err := e.slotByName(slotName)
	if err != nil {
		return err
	}
	e.unloadSlot(s)
	return nil
}

func (e *Engine) unloadSlot(s *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return
	}
	if err := s.handle.Close(); err != nil {
		log.Warn().Err(err).Str("slot", s.name).Msg("closing handle during unload")
	}
	log.Info().Str("slot", s.name).Str("model", s.modelID).Msg("model unloaded")
	s.handle = nil
	s.backend = ""
	s.modelID = ""
	s.device = ""
	s.publishStatus()
}
