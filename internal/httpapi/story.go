package httpapi

import (
	"net/http"
	"strings"

	"storyd/pkg/types"
)

func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.deps.Catalog.Discover()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	avail := s.deps.Catalog.Availability()
	writeJSON(w, http.StatusOK, types.ModelsResponse{
		Models:        models,
		HFAvailable:   avail.HF,
		EXL2Available: avail.EXL2,
		GGUFAvailable: avail.GGUF,
	})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Engine.Status())
}

func (s *server) handleLoadModel(w http.ResponseWriter, r *http.Request) {
	var req types.LoadModelRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.deps.Engine.Load(r.Context(), req.Slot, req.Backend, req.ModelID, req.Device, req.ContextLength)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.LoadModelResponse{
		Message: res.Message,
		Status:  "loaded",
		Warning: res.Warning,
	})
}

func (s *server) handleUnloadModel(w http.ResponseWriter, r *http.Request) {
	var req types.UnloadModelRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.deps.Engine.Unload(req.Slot); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.LoadModelResponse{Message: "unloaded", Status: "unloaded"})
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	text, err := s.deps.Engine.Generate(r.Context(), req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.GenerateResponse{GeneratedText: text})
}

func (s *server) handleGetStoryText(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.StoryTextResponse{Text: s.deps.Story.Text()})
}

func (s *server) handlePutStoryText(w http.ResponseWriter, r *http.Request) {
	var req types.StoryTextRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.deps.Story.Save(req.Text); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.StoryTextResponse{Text: req.Text})
}
