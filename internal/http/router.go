package httpapi

import (
	"net/http"

	"github.com/dsjohal14/citypop/internal/libs/obs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the handlers and middleware. metrics may be nil.
func NewRouter(h *Handler, metrics *obs.Metrics) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(obs.RequestLogger(h.logger))
	r.Use(middleware.Recoverer)
	if metrics != nil {
		r.Use(metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	// Routes
	r.Get("/health", h.HandleHealth)
	r.Put("/api/population", h.HandleUpsert)
	r.Get("/api/population/{city_name}", h.HandleLookup)

	return r
}
