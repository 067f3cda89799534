// Package handler implements the HTTP handlers for the Roamline API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (trip.go, stop.go, resort.go, health.go) but share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roamline/roamline/internal/domain"
	"github.com/roamline/roamline/spec"
)

// TripServicer defines the business operations the trip handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type TripServicer interface {
	Create(ctx context.Context, userID string, trip domain.Trip) (domain.Trip, error)
	GetWithStops(ctx context.Context, userID, id string) (domain.Trip, error)
	ListByUser(ctx context.Context, userID string, p domain.PaginationParams) ([]domain.Trip, int64, error)
	Update(ctx context.Context, userID string, trip domain.Trip) (domain.Trip, error)
	Delete(ctx context.Context, userID, id string) error
}

// StopServicer defines the business operations the stop handlers depend on.
type StopServicer interface {
	Create(ctx context.Context, userID string, stop domain.TripStop) (domain.TripStop, error)
	ListByTripID(ctx context.Context, userID, tripID string) ([]domain.TripStop, error)
	Update(ctx context.Context, userID string, stop domain.TripStop) (domain.TripStop, error)
	UpdateOrder(ctx context.Context, userID, tripID, stopID string, order int) (domain.TripStop, error)
	Delete(ctx context.Context, userID, tripID, stopID string) error
}

// ResortServicer defines the business operations the resort handlers depend on.
type ResortServicer interface {
	Upsert(ctx context.Context, resort domain.Resort) (domain.Resort, error)
	GetByID(ctx context.Context, id string) (domain.Resort, error)
}

// Server holds the dependencies for all API endpoints.
type Server struct {
	trips   TripServicer
	stops   StopServicer
	resorts ResortServicer
}

// NewServer constructs the Server with all its dependencies.
func NewServer(trips TripServicer, stops StopServicer, resorts ResortServicer) *Server {
	return &Server{trips: trips, stops: stops, resorts: resorts}
}

// Routes registers every endpoint on a fresh chi router.
// Everything under /v1 requires the X-User-ID header; /healthz and the
// embedded OpenAPI document do not.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.Health)
	r.Head("/healthz", s.Health)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(spec.OpenAPI)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(requireUser)

		r.Route("/trips", func(r chi.Router) {
			r.Post("/", s.CreateTrip)
			r.Get("/", s.ListTrips)
			r.Route("/{tripID}", func(r chi.Router) {
				r.Get("/", s.GetTrip)
				r.Put("/", s.UpdateTrip)
				r.Delete("/", s.DeleteTrip)

				r.Route("/stops", func(r chi.Router) {
					r.Post("/", s.CreateStop)
					r.Get("/", s.ListStops)
					r.Put("/{stopID}", s.UpdateStop)
					r.Delete("/{stopID}", s.DeleteStop)
					r.Put("/{stopID}/order", s.UpdateStopOrder)
				})
			})
		})

		r.Route("/resorts", func(r chi.Router) {
			r.Put("/{resortID}", s.UpsertResort)
			r.Get("/{resortID}", s.GetResort)
		})
	})

	return r
}

// userIDKey is the context key the authenticated user id is stored under.
type userIDKey struct{}

// requireUser extracts the X-User-ID header and stores it in the request
// context, rejecting requests without one. Verifying the identity behind the
// header is the API gateway's job, not this server's.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "X-User-ID header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID)))
	})
}

// userID returns the authenticated user id stored by requireUser.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey{}).(string)
	return id
}
