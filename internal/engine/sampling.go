package engine

import "storyd/internal/infer"

// Defaults applied when a request leaves a sampling field zero. They match
// the API's documented defaults.
const (
	defaultMaxNewTokens = 100
	defaultTemperature  = 0.7
	defaultTopK         = 50
	defaultTopP         = 0.95
)

// Clamp bounds, chosen to keep every backend's sampler out of degenerate
// territory: temperature strictly positive, top-k at least one candidate,
// top-p inside the open interval (0,1).
const (
	minTemperature = 0.01
	minTopP        = 0.01
	maxTopP        = 0.99
)

// clampSampling fills defaults and clamps out-of-range values instead of
// rejecting them. Clamping an already-valid triple is the identity.
func clampSampling(s infer.Sampling) infer.Sampling {
	if s.MaxNewTokens <= 0 {
		s.MaxNewTokens = defaultMaxNewTokens
	}
	if s.Temperature == 0 {
		s.Temperature = defaultTemperature
	}
	if s.TopK == 0 {
		s.TopK = defaultTopK
	}
	if s.TopP == 0 {
		s.TopP = defaultTopP
	}
	if s.Temperature < minTemperature {
		s.Temperature = minTemperature
	}
	if s.TopK < 1 {
		s.TopK = 1
	}
	if s.TopP < minTopP {
		s.TopP = minTopP
	}
	if s.TopP > maxTopP {
		s.TopP = maxTopP
	}
	return s
}
