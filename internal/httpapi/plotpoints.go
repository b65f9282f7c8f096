package httpapi

import (
	"net/http"
	"strings"

	"storyd/pkg/types"
)

func (s *server) handleListPlotPoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.PlotPoints.List())
}

func (s *server) handleCreatePlotPoint(w http.ResponseWriter, r *http.Request) {
	var req types.PlotPointCreate
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeJSONError(w, http.StatusBadRequest, "title is required")
		return
	}
	p, err := s.deps.PlotPoints.Create(req)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *server) handleGetPlotPoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, ok := s.deps.PlotPoints.PlotPoint(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "plot point not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleUpdatePlotPoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req types.PlotPointUpdate
	if !s.decodeJSON(w, r, &req) {
		return
	}
	p, found, err := s.deps.PlotPoints.Update(id, req)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeJSONError(w, http.StatusNotFound, "plot point not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleDeletePlotPoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	found, err := s.deps.PlotPoints.Delete(id)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeJSONError(w, http.StatusNotFound, "plot point not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
