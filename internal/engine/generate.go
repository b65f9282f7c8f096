package engine

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"storyd/internal/infer"
	"storyd/pkg/types"
)

// Generate runs one generation against the request's slot. The slot must
// already hold a model; there is no implicit auto-load. Adapter failures
// come back as typed error values, never as faults that cross this boundary.
func (e *Engine) Generate(ctx context.Context, req types.GenerateRequest) (string, error) {
	s, err := e.slotByName(req.Slot)
	if err != nil {
		return "", err
	}

	// Holding the slot mutex for the whole call serializes generation with
	// any concurrent load or unload of the same slot. The other slot is
	// untouched and stays fully concurrent.
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return "", infer.ErrNotReady(s.name)
	}

	fullPrompt := req.Prompt
	if e.assembler != nil {
		if block := e.assembler.Assemble(req.SelectedCharacterIDs, req.SelectedPlotPointIDs); block != "" {
			fullPrompt = block + req.Prompt
		}
	}
	sampling := clampSampling(infer.Sampling{
		MaxNewTokens: req.MaxNewTokens,
		Temperature:  req.Temperature,
		TopK:         req.TopK,
		TopP:         req.TopP,
	})

	generateTotal.WithLabelValues(s.backend).Inc()
	text, err := s.handle.Generate(ctx, fullPrompt, sampling)
	if err != nil {
		generateFailures.WithLabelValues(s.backend).Inc()
		log.Warn().Err(err).Str("slot", s.name).Str("backend", s.backend).Msg("generation failed")
		return "", err
	}
	return stripPromptEcho(text, fullPrompt), nil
}

// stripPromptEcho removes a leading echo of the full prompt, which some
// backends include in their output, and trims surrounding whitespace.
func stripPromptEcho(text, fullPrompt string) string {
	if strings.HasPrefix(text, fullPrompt) {
		text = text[len(fullPrompt):]
	}
	return strings.TrimSpace(text)
}
