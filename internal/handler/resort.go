package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roamline/roamline/internal/domain"
)

// UpsertResort handles PUT /v1/resorts/{resortID}.
func (s *Server) UpsertResort(w http.ResponseWriter, r *http.Request) {
	var resort domain.Resort
	if err := json.NewDecoder(r.Body).Decode(&resort); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid request body")
		return
	}
	resort.ID = chi.URLParam(r, "resortID")

	result, err := s.resorts.Upsert(r.Context(), resort)
	if err != nil {
		writeServiceError(w, err, "resort not found")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetResort handles GET /v1/resorts/{resortID}.
func (s *Server) GetResort(w http.ResponseWriter, r *http.Request) {
	resort, err := s.resorts.GetByID(r.Context(), chi.URLParam(r, "resortID"))
	if err != nil {
		writeServiceError(w, err, "resort not found")
		return
	}

	writeJSON(w, http.StatusOK, resort)
}
