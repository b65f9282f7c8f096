package types

import "github.com/google/uuid"

// ModelFile describes a discovered-but-not-loaded model under the models root.
// Descriptors are rebuilt on every discovery call; nothing is cached on disk.
type ModelFile struct {
	// Filename (or directory name) of the model entry.
	// example: tinyllama-1.1b-q4_k_m.gguf
	Filename string `json:"filename" example:"tinyllama-1.1b-q4_k_m.gguf"`
	// Path relative to the models root.
	// example: tinyllama-1.1b-q4_k_m.gguf
	Path string `json:"path" example:"tinyllama-1.1b-q4_k_m.gguf"`
	// Size on disk in megabytes.
	// example: 668.8
	SizeMB float64 `json:"size_mb" example:"668.8"`
	// Backends able to load this entry, in preference order.
	// example: ["gguf","hf"]
	CompatibleBackends []string `json:"compatible_backends" example:"[\"gguf\",\"hf\"]"`
	// Suggested device for this entry.
	// example: cpu
	SuggestedDevice string `json:"suggested_device" example:"cpu"`
	// Free-text description.
	Description string `json:"description,omitempty"`
}

// Character is a story character exposed to generation context.
type Character struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Traits             string    `json:"traits,omitempty"`
	Motivations        string    `json:"motivations,omitempty"`
	PhysicalAppearance string    `json:"physical_appearance,omitempty"`
	// Status is free text, e.g. "Alive", "Deceased", "Missing".
	Status string `json:"status"`
}

// PlotPoint is a planned or completed story beat.
type PlotPoint struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	// Status defaults to "Planned"; other common values are
	// "In Progress" and "Completed".
	Status string `json:"status"`
	// Type, e.g. "Major Plot Beat", "Character Arc", "Subplot".
	Type string `json:"type,omitempty"`
}

// PlotStatusDefault is the status assigned to new plot points and omitted
// from generation context because it is the overwhelmingly common case.
const PlotStatusDefault = "Planned"

// CharacterStatusDefault is the status assigned to new characters.
const CharacterStatusDefault = "Alive"
