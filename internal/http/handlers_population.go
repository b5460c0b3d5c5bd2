package httpapi

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/dsjohal14/citypop/internal/scope/db"
	"github.com/go-chi/chi/v5"
)

// HandleUpsert stores a city's population under its lowercase key,
// replacing any previous record for that key
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	req, err := decodeUpsert(r.Body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("invalid upsert request")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	rec := db.Record{City: req.City, Population: req.Population}
	if err := h.store.Upsert(storeContext(r), rec); err != nil {
		h.logger.Error().Err(err).Str("city", req.City).Msg("failed to store population")
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	h.logger.Info().
		Str("city", req.City).
		Str("key", db.Key(req.City)).
		Int64("population", req.Population).
		Msg("population saved")

	writeJSON(w, http.StatusOK, UpsertResponse{
		Message:    "Data saved successfully",
		City:       req.City,
		Population: req.Population,
	})
}

// HandleLookup returns the record stored for a city, matched case-insensitively
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city_name")
	// chi matches on RawPath when it is set, leaving params escaped
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(city); err == nil {
			city = unescaped
		}
	}

	key := db.Key(city)
	rec, err := h.store.Get(storeContext(r), key)
	if errors.Is(err, db.ErrNotFound) {
		h.logger.Debug().Str("key", key).Msg("city not found")
		writeError(w, http.StatusNotFound, "City not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("failed to fetch population")
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, PopulationResponse{
		City:       rec.City,
		Population: rec.Population,
	})
}
