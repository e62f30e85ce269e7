package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/erauner12/listsync/internal/customer"
	"github.com/erauner12/listsync/internal/syncx"
	"github.com/go-chi/chi/v5"
)

type customerBody struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Active           bool   `json:"active"`
	NewsletterStatus string `json:"newsletterStatus"`
}

func toBody(c *customer.Customer) customerBody {
	return customerBody{
		ID:               c.ID,
		Email:            c.Email,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		Active:           c.Active,
		NewsletterStatus: c.NewsletterStatus,
	}
}

// GetCustomer handles GET /v1/customers/{id}
func (s *Server) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := syncx.ParseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid customer id")
		return
	}

	c, err := s.Exports.Customer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if c == nil {
		writeError(w, r, http.StatusNotFound, "customer not found")
		return
	}
	writeJSON(w, http.StatusOK, toBody(c))
}

// PutCustomer handles PUT /v1/customers/{id}
// Stores the customer and queues an update for every list.
func (s *Server) PutCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := syncx.ParseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid customer id")
		return
	}

	var body customerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if body.ID != 0 && body.ID != id {
		writeError(w, r, http.StatusBadRequest, "id in body does not match path")
		return
	}

	c := &customer.Customer{
		ID:               id,
		Email:            strings.TrimSpace(body.Email),
		FirstName:        body.FirstName,
		LastName:         body.LastName,
		Active:           body.Active,
		NewsletterStatus: strings.ToLower(strings.TrimSpace(body.NewsletterStatus)),
	}
	if err := s.Exports.SaveCustomer(r.Context(), c); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBody(c))
}
