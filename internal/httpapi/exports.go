package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/erauner12/listsync/internal/queue"
	"github.com/erauner12/listsync/internal/syncx"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type listResp struct {
	Shortcut string `json:"shortcut"`
	Pending  int    `json:"pending"`
}

type enqueueReq struct {
	CustomerID any    `json:"customerId"` // number or numeric string
	Email      string `json:"email"`
	Operation  string `json:"operation"`
}

// ListLists handles GET /v1/lists
func (s *Server) ListLists(w http.ResponseWriter, r *http.Request) {
	lists := s.Exports.Lists()
	resp := make([]listResp, 0, len(lists))
	for _, shortcut := range lists {
		pending, err := s.Exports.Pending(r.Context(), shortcut)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp = append(resp, listResp{Shortcut: shortcut, Pending: pending})
	}
	writeJSON(w, http.StatusOK, map[string]any{"lists": resp})
}

// GetQueue handles GET /v1/lists/{shortcut}/queue
func (s *Server) GetQueue(w http.ResponseWriter, r *http.Request) {
	shortcut := chi.URLParam(r, "shortcut")
	pending, err := s.Exports.Pending(r.Context(), shortcut)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResp{Shortcut: shortcut, Pending: pending})
}

// EnqueueChange handles POST /v1/lists/{shortcut}/queue
func (s *Server) EnqueueChange(w http.ResponseWriter, r *http.Request) {
	shortcut := chi.URLParam(r, "shortcut")

	var req enqueueReq
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	customerID, ok := parseCustomerID(req.CustomerID)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "customerId must be a positive integer")
		return
	}

	op, err := queue.ParseOperation(strings.ToLower(req.Operation))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.Exports.Enqueue(r.Context(), shortcut, customerID, strings.TrimSpace(req.Email), op); err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Ctx(r.Context()).Info().
		Str("list", shortcut).
		Int64("customerId", customerID).
		Str("operation", string(op)).
		Msg("queued change")

	writeJSON(w, http.StatusAccepted, map[string]any{
		"list":       shortcut,
		"customerId": customerID,
		"operation":  op,
	})
}

// StartExport handles POST /v1/lists/{shortcut}/exports
// The run continues in the background; poll GET /v1/exports/{runId}.
func (s *Server) StartExport(w http.ResponseWriter, r *http.Request) {
	shortcut := chi.URLParam(r, "shortcut")

	status, err := s.Exports.Start(shortcut)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/exports/"+status.ID)
	writeJSON(w, http.StatusAccepted, status)
}

// GetExport handles GET /v1/exports/{runId}
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")
	if _, ok := syncx.ParseUUID(runID); !ok {
		writeError(w, r, http.StatusNotFound, "unknown export run")
		return
	}

	status, err := s.Exports.Status(runID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func parseCustomerID(v any) (int64, bool) {
	switch id := v.(type) {
	case json.Number:
		return syncx.ParseID(id.String())
	case string:
		return syncx.ParseID(id)
	default:
		return 0, false
	}
}
