package types

import "github.com/google/uuid"

// GenerateRequest is the payload for POST /api/story/generate.
type GenerateRequest struct {
	// Prompt text to continue.
	// example: Continue the story.
	Prompt string `json:"prompt" example:"Continue the story."`
	// Maximum number of new tokens to generate.
	// example: 100
	MaxNewTokens int `json:"max_new_tokens,omitempty" example:"100"`
	// Sampling temperature (clamped to a strictly positive floor).
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Top-K sampling: limit candidates to the top K tokens (clamped to >= 1).
	// example: 50
	TopK int `json:"top_k,omitempty" example:"50"`
	// Nucleus sampling probability (clamped into the open interval (0,1)).
	// example: 0.95
	TopP float64 `json:"top_p,omitempty" example:"0.95"`
	// Target slot: "primary" (default) or "auxiliary".
	// example: primary
	Slot string `json:"slot,omitempty" example:"primary"`
	// Ordered character IDs whose details are prepended as context.
	SelectedCharacterIDs []uuid.UUID `json:"selected_character_ids,omitempty"`
	// Ordered plot point IDs whose details are prepended as context.
	SelectedPlotPointIDs []uuid.UUID `json:"selected_plot_point_ids,omitempty"`
}

// GenerateResponse wraps generated text.
type GenerateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// LoadModelRequest is the payload for POST /api/story/load_model.
type LoadModelRequest struct {
	// Model identifier: a path relative to the models root, or a remote
	// identifier for the hf backend.
	// example: tinyllama-1.1b-q4_k_m.gguf
	ModelID string `json:"model_id" example:"tinyllama-1.1b-q4_k_m.gguf"`
	// Backend name: "hf", "exl2" or "gguf".
	// example: gguf
	Backend string `json:"backend" example:"gguf"`
	// Requested device: "cpu", "cuda" or "hip".
	// example: cpu
	Device string `json:"device,omitempty" example:"cpu"`
	// Target slot: "primary" (default) or "auxiliary".
	// example: primary
	Slot string `json:"slot,omitempty" example:"primary"`
	// Optional context length override (best effort on some backends).
	// example: 4096
	ContextLength int `json:"context_length,omitempty" example:"4096"`
}

// LoadModelResponse reports the outcome of a load.
type LoadModelResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	// Warning carries non-fatal notes such as a device downgrade.
	Warning string `json:"warning,omitempty"`
}

// UnloadModelRequest is the payload for POST /api/story/unload_model.
type UnloadModelRequest struct {
	// Slot to unload: "primary", "auxiliary" or "all".
	// example: all
	Slot string `json:"slot" example:"all"`
}

// ModelsResponse lists discovered models plus backend availability so a UI
// can gray out unusable choices.
type ModelsResponse struct {
	Models []ModelFile `json:"models"`
	// Per-backend availability resolved once at process start.
	HFAvailable   bool `json:"hf_available"`
	EXL2Available bool `json:"exl2_available"`
	GGUFAvailable bool `json:"gguf_available"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not loaded in slot "auxiliary"
	Error string `json:"error"`
	// HTTP status code.
	// example: 409
	Code int `json:"code" example:"409"`
}

// SuggestionRequest carries the shared fields of the writer's-block endpoints.
type SuggestionRequest struct {
	// The portion of the story leading up to the block.
	CurrentStoryContext  string      `json:"current_story_context"`
	SelectedCharacterIDs []uuid.UUID `json:"selected_character_ids,omitempty"`
	SelectedPlotPointIDs []uuid.UUID `json:"selected_plot_point_ids,omitempty"`
}

// CharacterIdeaRequest asks for a new character or development of an existing one.
type CharacterIdeaRequest struct {
	SuggestionRequest
	FocusOnExistingCharacterID *uuid.UUID `json:"focus_on_existing_character_id,omitempty"`
	// DesiredRole, e.g. "villain", "mentor", "comic relief".
	DesiredRole string `json:"desired_role,omitempty"`
}

// DialogueSparkerRequest asks for an opening line or conflict for a dialogue.
type DialogueSparkerRequest struct {
	SuggestionRequest
	CharactersInDialogueIDs []uuid.UUID `json:"characters_in_dialogue_ids,omitempty"`
	Topic                   string      `json:"topic,omitempty"`
}

// SettingDetailRequest asks for sensory detail about a setting.
type SettingDetailRequest struct {
	SuggestionRequest
	SettingName   string `json:"setting_name,omitempty"`
	FocusOnAspect string `json:"focus_on_aspect,omitempty"`
}

// SuggestionResponse wraps a writer's-block suggestion.
type SuggestionResponse struct {
	Suggestion string `json:"suggestion"`
}

// StoryTextRequest updates the main story text.
type StoryTextRequest struct {
	Text string `json:"text"`
}

// StoryTextResponse returns the main story text.
type StoryTextResponse struct {
	Text string `json:"text"`
}

// CharacterCreate is the payload for creating a character.
type CharacterCreate struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	Traits             string `json:"traits,omitempty"`
	Motivations        string `json:"motivations,omitempty"`
	PhysicalAppearance string `json:"physical_appearance,omitempty"`
	Status             string `json:"status,omitempty"`
}

// CharacterUpdate carries partial character updates; nil fields are untouched.
type CharacterUpdate struct {
	Name               *string `json:"name,omitempty"`
	Description        *string `json:"description,omitempty"`
	Traits             *string `json:"traits,omitempty"`
	Motivations        *string `json:"motivations,omitempty"`
	PhysicalAppearance *string `json:"physical_appearance,omitempty"`
	Status             *string `json:"status,omitempty"`
}

// PlotPointCreate is the payload for creating a plot point.
type PlotPointCreate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
	Type        string `json:"type,omitempty"`
}

// PlotPointUpdate carries partial plot point updates; nil fields are untouched.
type PlotPointUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Type        *string `json:"type,omitempty"`
}
