package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"storyd/pkg/types"
)

// Writer's-block suggestions are syntactic sugar over Generate: a fixed
// prompt template plus fixed sampling defaults, always against the auxiliary
// slot and with short token budgets so the ideas stay concise.

func (e *Engine) suggest(ctx context.Context, promptText string, maxTokens int, temperature float64, req types.SuggestionRequest) (string, error) {
	return e.Generate(ctx, types.GenerateRequest{
		Prompt:               promptText,
		MaxNewTokens:         maxTokens,
		Temperature:          temperature,
		TopK:                 50,
		TopP:                 0.95,
		Slot:                 SlotAuxiliary,
		SelectedCharacterIDs: req.SelectedCharacterIDs,
		SelectedPlotPointIDs: req.SelectedPlotPointIDs,
	})
}

// SuggestNextScene proposes an idea for the very next scene.
func (e *Engine) SuggestNextScene(ctx context.Context, req types.SuggestionRequest) (string, error) {
	p := fmt.Sprintf("Given the following story context:\n'%s'\n\n"+
		"Suggest a concise and engaging idea for the very next scene. "+
		"Focus on advancing the plot or character development. "+
		"Keep the suggestion brief, a few sentences at most.",
		req.CurrentStoryContext)
	return e.suggest(ctx, p, 50, 0.8, req)
}

// SuggestCharacterIdea proposes a new character, or a development for an
// existing one when a focus character is given.
func (e *Engine) SuggestCharacterIdea(ctx context.Context, req types.CharacterIdeaRequest) (string, error) {
	parts := []string{fmt.Sprintf("Given the story context:\n'%s'\n\n", req.CurrentStoryContext)}

	focused := false
	if req.FocusOnExistingCharacterID != nil && e.characters != nil {
		if c, ok := e.characters.Character(*req.FocusOnExistingCharacterID); ok {
			parts = append(parts,
				fmt.Sprintf("Focus on developing the character '%s' (Description: %s, Traits: %s).", c.Name, c.Description, c.Traits),
				"Suggest a new internal conflict, a surprising past event, or a new skill they could acquire.")
			focused = true
		}
	}
	if !focused {
		parts = append(parts, "Suggest a new character idea.")
		if req.DesiredRole != "" {
			parts = append(parts, fmt.Sprintf("The character should ideally serve as a %s.", req.DesiredRole))
		}
		parts = append(parts, "Provide their name, a brief description, and their potential role in the story.")
	}
	p := strings.Join(parts, " ") + " Keep the suggestion concise."
	return e.suggest(ctx, p, 70, 0.9, req.SuggestionRequest)
}

// SuggestDialogueSparker proposes an opening line or conflict to spark
// dialogue.
func (e *Engine) SuggestDialogueSparker(ctx context.Context, req types.DialogueSparkerRequest) (string, error) {
	parts := []string{fmt.Sprintf("Given the current story context:\n'%s'\n\n", req.CurrentStoryContext)}

	if names := e.characterNames(req.CharactersInDialogueIDs); len(names) > 0 {
		parts = append(parts, fmt.Sprintf("Imagine a conversation between %s.", strings.Join(names, ", ")))
	} else if len(req.CharactersInDialogueIDs) > 0 {
		parts = append(parts, "Imagine a conversation between unspecified characters.")
	} else {
		parts = append(parts, "Imagine a conversation between two characters.")
	}
	if req.Topic != "" {
		parts = append(parts, fmt.Sprintf("The dialogue should be about: '%s'.", req.Topic))
	}
	parts = append(parts, "Provide a brief opening line or a conflict that could spark dialogue.")
	p := strings.Join(parts, " ") + " Keep it very short and impactful."
	return e.suggest(ctx, p, 40, 0.9, req.SuggestionRequest)
}

// SuggestSettingDetail proposes sensory detail to enrich a setting.
func (e *Engine) SuggestSettingDetail(ctx context.Context, req types.SettingDetailRequest) (string, error) {
	parts := []string{fmt.Sprintf("Given the current story context:\n'%s'\n\n", req.CurrentStoryContext)}

	if req.SettingName != "" {
		parts = append(parts, fmt.Sprintf("Focus on the setting: '%s'.", req.SettingName))
	} else {
		parts = append(parts, "Describe details for the current setting.")
	}
	if req.FocusOnAspect != "" {
		parts = append(parts, fmt.Sprintf("Specifically, elaborate on its %s.", req.FocusOnAspect))
	}
	parts = append(parts, "Provide a few descriptive sentences about the atmosphere, objects, or sensory details.")
	p := strings.Join(parts, " ") + " Keep the description concise."
	return e.suggest(ctx, p, 60, 0.8, req.SuggestionRequest)
}

func (e *Engine) characterNames(ids []uuid.UUID) []string {
	if e.characters == nil {
		return nil
	}
	var names []string
	for _, id := range ids {
		if c, ok := e.characters.Character(id); ok {
			names = append(names, c.Name)
		}
	}
	return names
}
