package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/erauner12/listsync/internal/auth"
	"github.com/erauner12/listsync/internal/customer"
	"github.com/erauner12/listsync/internal/queue"
	"github.com/erauner12/listsync/internal/service/exportservice"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Exports is the export service as seen by the HTTP layer
type Exports interface {
	Lists() []string
	Start(shortcut string) (exportservice.RunStatus, error)
	Status(runID string) (exportservice.RunStatus, error)
	Pending(ctx context.Context, shortcut string) (int, error)
	Enqueue(ctx context.Context, shortcut string, customerID int64, email string, op queue.Operation) error
	Customer(ctx context.Context, id int64) (*customer.Customer, error)
	SaveCustomer(ctx context.Context, c *customer.Customer) error
}

// Server holds dependencies for HTTP handlers
type Server struct {
	Exports         Exports
	RateLimitConfig RateLimitInfo
}

// errorResp is the JSON body of every error response
type errorResp struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// writeError writes a JSON error carrying the request's correlation id
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, errorResp{Error: msg, CorrelationID: GetCorrelationID(r.Context())})
}

// writeServiceError maps export service errors onto status codes
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, exportservice.ErrUnknownList), errors.Is(err, exportservice.ErrUnknownRun):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, exportservice.ErrRunInProgress):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, exportservice.ErrShuttingDown):
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// Routes creates the HTTP router with all admin endpoints
func (s *Server) Routes(jwt auth.JWTCfg) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Unauthenticated
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/v1/info", s.Info)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(jwt))
		r.Use(RateLimitMiddleware(s.RateLimitConfig))

		r.Get("/v1/lists", s.ListLists)
		r.Get("/v1/lists/{shortcut}/queue", s.GetQueue)
		r.Post("/v1/lists/{shortcut}/queue", s.EnqueueChange)
		r.Post("/v1/lists/{shortcut}/exports", s.StartExport)
		r.Get("/v1/exports/{runId}", s.GetExport)

		r.Get("/v1/customers/{id}", s.GetCustomer)
		r.Put("/v1/customers/{id}", s.PutCustomer)
	})

	log.Info().Msg("HTTP routes registered")
	return r
}
