package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roamline/roamline/internal/domain"
)

// CreateStop handles POST /v1/trips/{tripID}/stops.
func (s *Server) CreateStop(w http.ResponseWriter, r *http.Request) {
	var stop domain.TripStop
	if err := json.NewDecoder(r.Body).Decode(&stop); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid request body")
		return
	}
	stop.TripID = chi.URLParam(r, "tripID")

	created, err := s.stops.Create(r.Context(), userID(r), stop)
	if err != nil {
		writeServiceError(w, err, "trip not found")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// ListStops handles GET /v1/trips/{tripID}/stops.
func (s *Server) ListStops(w http.ResponseWriter, r *http.Request) {
	stops, err := s.stops.ListByTripID(r.Context(), userID(r), chi.URLParam(r, "tripID"))
	if err != nil {
		writeServiceError(w, err, "trip not found")
		return
	}

	writeJSON(w, http.StatusOK, stops)
}

// UpdateStop handles PUT /v1/trips/{tripID}/stops/{stopID}.
func (s *Server) UpdateStop(w http.ResponseWriter, r *http.Request) {
	var stop domain.TripStop
	if err := json.NewDecoder(r.Body).Decode(&stop); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid request body")
		return
	}
	stop.TripID = chi.URLParam(r, "tripID")
	stop.ID = chi.URLParam(r, "stopID")

	updated, err := s.stops.Update(r.Context(), userID(r), stop)
	if err != nil {
		writeServiceError(w, err, "stop not found")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// UpdateStopOrder handles PUT /v1/trips/{tripID}/stops/{stopID}/order.
// The body is {"stop_order": n}. The operation is an idempotent upsert.
func (s *Server) UpdateStopOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StopOrder int `json:"stop_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid request body")
		return
	}

	updated, err := s.stops.UpdateOrder(r.Context(), userID(r),
		chi.URLParam(r, "tripID"), chi.URLParam(r, "stopID"), body.StopOrder)
	if err != nil {
		writeServiceError(w, err, "stop not found")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteStop handles DELETE /v1/trips/{tripID}/stops/{stopID}.
func (s *Server) DeleteStop(w http.ResponseWriter, r *http.Request) {
	err := s.stops.Delete(r.Context(), userID(r), chi.URLParam(r, "tripID"), chi.URLParam(r, "stopID"))
	if err != nil {
		writeServiceError(w, err, "stop not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
