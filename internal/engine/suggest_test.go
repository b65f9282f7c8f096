package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"storyd/internal/infer"
	"storyd/internal/registry"
	"storyd/pkg/types"
)

type staticCharacters map[uuid.UUID]types.Character

func (s staticCharacters) Character(id uuid.UUID) (types.Character, bool) {
	c, ok := s[id]
	return c, ok
}

func newSuggestEngine(t *testing.T, chars staticCharacters) (*Engine, *fakeAdapter) {
	t.Helper()
	adapter := &fakeAdapter{name: infer.BackendGGUF, reply: "an idea"}
	root := t.TempDir()
	createModelFile(t, root, "aux.gguf")
	eng := New(Config{
		Adapters:   &fakeResolver{adapter: adapter},
		Scanner:    registry.New(root, infer.Availability{}),
		Characters: chars,
		Hardware:   infer.Hardware{},
	})
	if _, err := eng.Load(context.Background(), SlotAuxiliary, infer.BackendGGUF, "aux.gguf", "cpu", 0); err != nil {
		t.Fatalf("load auxiliary: %v", err)
	}
	return eng, adapter
}

func TestSuggestionsRunOnAuxiliarySlot(t *testing.T) {
	adapter := &fakeAdapter{name: infer.BackendGGUF}
	root := t.TempDir()
	eng := New(Config{
		Adapters: &fakeResolver{adapter: adapter},
		Scanner:  registry.New(root, infer.Availability{}),
	})
	// Nothing in the auxiliary slot: every suggestion fails with not-ready,
	// even though the primary slot is also empty.
	_, err := eng.SuggestNextScene(context.Background(), types.SuggestionRequest{CurrentStoryContext: "a story"})
	if !infer.IsNotReady(err) {
		t.Fatalf("expected not-ready, got %v", err)
	}
	if !strings.Contains(err.Error(), SlotAuxiliary) {
		t.Fatalf("error should name the auxiliary slot: %v", err)
	}
}

func TestSuggestNextScenePrompt(t *testing.T) {
	eng, adapter := newSuggestEngine(t, nil)
	out, err := eng.SuggestNextScene(context.Background(), types.SuggestionRequest{CurrentStoryContext: "The ship sank."})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if out != "an idea" {
		t.Fatalf("got %q", out)
	}
	prompt := adapter.last.prompts[0]
	if !strings.Contains(prompt, "'The ship sank.'") {
		t.Fatalf("prompt missing story context: %q", prompt)
	}
	if !strings.Contains(prompt, "very next scene") {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
	s := adapter.last.sampling[0]
	if s.MaxNewTokens != 50 || s.Temperature != 0.8 || s.TopK != 50 || s.TopP != 0.95 {
		t.Fatalf("unexpected sampling: %+v", s)
	}
}

func TestSuggestCharacterIdeaFocus(t *testing.T) {
	id := uuid.New()
	chars := staticCharacters{id: {ID: id, Name: "Mira", Description: "a cartographer", Traits: "curious"}}
	eng, adapter := newSuggestEngine(t, chars)

	_, err := eng.SuggestCharacterIdea(context.Background(), types.CharacterIdeaRequest{
		SuggestionRequest:          types.SuggestionRequest{CurrentStoryContext: "ctx"},
		FocusOnExistingCharacterID: &id,
	})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	prompt := adapter.last.prompts[0]
	if !strings.Contains(prompt, "'ctx'\n\n") {
		t.Fatalf("story context should end with a blank line: %q", prompt)
	}
	if !strings.Contains(prompt, "developing the character 'Mira'") {
		t.Fatalf("prompt should focus on the character: %q", prompt)
	}
	if s := adapter.last.sampling[0]; s.MaxNewTokens != 70 || s.Temperature != 0.9 {
		t.Fatalf("unexpected sampling: %+v", adapter.last.sampling[0])
	}
}

func TestSuggestCharacterIdeaNewWithRole(t *testing.T) {
	eng, adapter := newSuggestEngine(t, staticCharacters{})
	unknown := uuid.New()
	_, err := eng.SuggestCharacterIdea(context.Background(), types.CharacterIdeaRequest{
		SuggestionRequest:          types.SuggestionRequest{CurrentStoryContext: "ctx"},
		FocusOnExistingCharacterID: &unknown,
		DesiredRole:                "villain",
	})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	prompt := adapter.last.prompts[0]
	// Unresolvable focus falls back to a brand-new character idea.
	if !strings.Contains(prompt, "Suggest a new character idea.") {
		t.Fatalf("expected new-character prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "serve as a villain") {
		t.Fatalf("expected desired role in prompt: %q", prompt)
	}
}

func TestSuggestDialogueSparkerNames(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	chars := staticCharacters{
		a: {ID: a, Name: "Mira"},
		b: {ID: b, Name: "Bo"},
	}
	eng, adapter := newSuggestEngine(t, chars)
	_, err := eng.SuggestDialogueSparker(context.Background(), types.DialogueSparkerRequest{
		SuggestionRequest:       types.SuggestionRequest{CurrentStoryContext: "ctx"},
		CharactersInDialogueIDs: []uuid.UUID{a, b},
		Topic:                   "the lost map",
	})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	prompt := adapter.last.prompts[0]
	if !strings.Contains(prompt, "'ctx'\n\n") {
		t.Fatalf("story context should end with a blank line: %q", prompt)
	}
	if !strings.Contains(prompt, "between Mira, Bo") {
		t.Fatalf("expected character names: %q", prompt)
	}
	if !strings.Contains(prompt, "'the lost map'") {
		t.Fatalf("expected topic: %q", prompt)
	}
	if s := adapter.last.sampling[0]; s.MaxNewTokens != 40 || s.Temperature != 0.9 {
		t.Fatalf("unexpected sampling: %+v", s)
	}
}

func TestSuggestSettingDetail(t *testing.T) {
	eng, adapter := newSuggestEngine(t, nil)
	_, err := eng.SuggestSettingDetail(context.Background(), types.SettingDetailRequest{
		SuggestionRequest: types.SuggestionRequest{CurrentStoryContext: "ctx"},
		SettingName:       "the lighthouse",
		FocusOnAspect:     "sounds",
	})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	prompt := adapter.last.prompts[0]
	if !strings.Contains(prompt, "'ctx'\n\n") {
		t.Fatalf("story context should end with a blank line: %q", prompt)
	}
	if !strings.Contains(prompt, "'the lighthouse'") || !strings.Contains(prompt, "elaborate on its sounds") {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
	if s := adapter.last.sampling[0]; s.MaxNewTokens != 60 || s.Temperature != 0.8 {
		t.Fatalf("unexpected sampling: %+v", s)
	}
}
