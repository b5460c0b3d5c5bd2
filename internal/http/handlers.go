package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dsjohal14/citypop/internal/scope/db"
	"github.com/rs/zerolog"
)

// Handler contains HTTP handlers for the API
type Handler struct {
	store  db.Store
	logger zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(store db.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Helper functions used across all handlers

// storeContext detaches store calls from client disconnects while keeping
// request-scoped values.
func storeContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
