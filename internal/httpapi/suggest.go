package httpapi

import (
	"net/http"

	"storyd/pkg/types"
)

// The writer's-block endpoints all run on the auxiliary slot, so a long
// generation on the primary slot never stalls them.

func (s *server) handleSuggestNextScene(w http.ResponseWriter, r *http.Request) {
	var req types.SuggestionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	suggestion, err := s.deps.Engine.SuggestNextScene(r.Context(), req)
	writeSuggestion(w, suggestion, err)
}

func (s *server) handleSuggestCharacterIdea(w http.ResponseWriter, r *http.Request) {
	var req types.CharacterIdeaRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	suggestion, err := s.deps.Engine.SuggestCharacterIdea(r.Context(), req)
	writeSuggestion(w, suggestion, err)
}

func (s *server) handleSuggestDialogueSparker(w http.ResponseWriter, r *http.Request) {
	var req types.DialogueSparkerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	suggestion, err := s.deps.Engine.SuggestDialogueSparker(r.Context(), req)
	writeSuggestion(w, suggestion, err)
}

func (s *server) handleSuggestSettingDetail(w http.ResponseWriter, r *http.Request) {
	var req types.SettingDetailRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	suggestion, err := s.deps.Engine.SuggestSettingDetail(r.Context(), req)
	writeSuggestion(w, suggestion, err)
}

func writeSuggestion(w http.ResponseWriter, suggestion string, err error) {
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SuggestionResponse{Suggestion: suggestion})
}
