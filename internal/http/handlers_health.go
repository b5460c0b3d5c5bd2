package httpapi

import "net/http"

// HandleHealth reports process liveness and store connectivity.
// It answers 200 even when the store is down; callers read the
// elasticsearch field to tell the two apart.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "OK",
		Elasticsearch: StoreConnected,
	}

	if err := h.store.Ping(storeContext(r)); err != nil {
		h.logger.Warn().Err(err).Msg("store unreachable")
		resp.Elasticsearch = StoreUnreachable
	}

	h.logger.Debug().Str("store", resp.Elasticsearch).Msg("health check")

	writeJSON(w, http.StatusOK, resp)
}
