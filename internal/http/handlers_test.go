package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dsjohal14/citypop/internal/libs/obs"
	"github.com/dsjohal14/citypop/internal/scope/db"
	"github.com/go-chi/chi/v5"
)

// faultyStore injects errors in front of a MemoryStore
type faultyStore struct {
	*db.MemoryStore
	pingErr error
	getErr  error
	putErr  error
}

func (f *faultyStore) Ping(ctx context.Context) error {
	if f.pingErr != nil {
		return f.pingErr
	}
	return f.MemoryStore.Ping(ctx)
}

func (f *faultyStore) Get(ctx context.Context, key string) (db.Record, error) {
	if f.getErr != nil {
		return db.Record{}, f.getErr
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *faultyStore) Upsert(ctx context.Context, rec db.Record) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemoryStore.Upsert(ctx, rec)
}

func setupTestHandler(t *testing.T, store db.Store) *chi.Mux {
	t.Helper()

	obs.InitLogger("error") // Quiet logs during tests
	logger := obs.Logger("test")
	handler := NewHandler(store, logger)

	return NewRouter(handler, obs.NewMetrics())
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func upsert(t *testing.T, router http.Handler, city string, population int64) UpsertResponse {
	t.Helper()

	body, _ := json.Marshal(UpsertRequest{City: city, Population: population})
	w := doRequest(t, router, http.MethodPut, "/api/population", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("upsert %q: expected status 200, got %d: %s", city, w.Code, w.Body.String())
	}

	var resp UpsertResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func lookup(t *testing.T, router http.Handler, city string) PopulationResponse {
	t.Helper()

	w := doRequest(t, router, http.MethodGet, "/api/population/"+city, "")
	if w.Code != http.StatusOK {
		t.Fatalf("lookup %q: expected status 200, got %d: %s", city, w.Code, w.Body.String())
	}

	var resp PopulationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name     string
		store    db.Store
		expected string
	}{
		{"store reachable", db.NewMemoryStore(), StoreConnected},
		{"store unreachable", &faultyStore{MemoryStore: db.NewMemoryStore(), pingErr: errors.New("connection refused")}, StoreUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestHandler(t, tt.store)
			w := doRequest(t, router, http.MethodGet, "/health", "")

			// Always 200, even with the store down
			if w.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", w.Code)
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if resp.Status != "OK" {
				t.Errorf("expected status OK, got %v", resp.Status)
			}
			if resp.Elasticsearch != tt.expected {
				t.Errorf("expected elasticsearch %s, got %s", tt.expected, resp.Elasticsearch)
			}
		})
	}
}

func TestHandleUpsert(t *testing.T) {
	store := db.NewMemoryStore()
	router := setupTestHandler(t, store)

	resp := upsert(t, router, "Metropolis", 5000000)

	if resp.Message != "Data saved successfully" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if resp.City != "Metropolis" || resp.Population != 5000000 {
		t.Errorf("expected submitted record echoed, got %+v", resp)
	}

	rec, err := store.Get(context.Background(), "metropolis")
	if err != nil {
		t.Fatalf("record not stored under lowercase key: %v", err)
	}
	if rec.City != "Metropolis" {
		t.Errorf("expected city stored as submitted, got %q", rec.City)
	}
}

func TestHandleUpsertAcceptsUnvalidatedValues(t *testing.T) {
	router := setupTestHandler(t, db.NewMemoryStore())

	tests := []struct {
		name       string
		city       string
		population int64
	}{
		{"empty city", "", 10},
		{"negative population", "Underworld", -42},
		{"non-ascii", "Zürich", 421878},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upsert(t, router, tt.city, tt.population)
			if resp.City != tt.city || resp.Population != tt.population {
				t.Errorf("expected %q/%d echoed, got %+v", tt.city, tt.population, resp)
			}
		})
	}
}

func TestHandleUpsertCoercion(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected int64
	}{
		{"integer", `{"city":"Gotham","population":7}`, 7},
		{"numeric string", `{"city":"Gotham","population":"8"}`, 8},
		{"integral float", `{"city":"Gotham","population":9.0}`, 9},
		{"exponent", `{"city":"Gotham","population":5e6}`, 5000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestHandler(t, db.NewMemoryStore())
			w := doRequest(t, router, http.MethodPut, "/api/population", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
			}
			if got := lookup(t, router, "gotham").Population; got != tt.expected {
				t.Errorf("expected population %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestHandleUpsertValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{"city":`},
		{"missing city", `{"population":5}`},
		{"missing population", `{"city":"Gotham"}`},
		{"null population", `{"city":"Gotham","population":null}`},
		{"fractional population", `{"city":"Gotham","population":5.5}`},
		{"word population", `{"city":"Gotham","population":"many"}`},
		{"boolean population", `{"city":"Gotham","population":true}`},
		{"numeric city", `{"city":12,"population":5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := db.NewMemoryStore()
			router := setupTestHandler(t, store)

			w := doRequest(t, router, http.MethodPut, "/api/population", tt.body)
			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("expected status 422, got %d: %s", w.Code, w.Body.String())
			}

			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Detail == "" {
				t.Error("expected a detail message")
			}
			if store.Count() != 0 {
				t.Error("invalid request must not reach the store")
			}
		})
	}
}

func TestHandleLookupNotFound(t *testing.T) {
	router := setupTestHandler(t, db.NewMemoryStore())

	w := doRequest(t, router, http.MethodGet, "/api/population/Atlantis", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Detail != "City not found" {
		t.Errorf("expected detail %q, got %q", "City not found", resp.Detail)
	}
}

func TestHandleLookupCaseInsensitive(t *testing.T) {
	router := setupTestHandler(t, db.NewMemoryStore())
	upsert(t, router, "Metropolis", 5000000)

	for _, variant := range []string{"Metropolis", "METROPOLIS", "metropolis", "MetropoliS"} {
		resp := lookup(t, router, variant)
		if resp.City != "Metropolis" {
			t.Errorf("%s: expected stored city Metropolis, got %q", variant, resp.City)
		}
		if resp.Population != 5000000 {
			t.Errorf("%s: expected population 5000000, got %d", variant, resp.Population)
		}
	}
}

func TestHandleLookupEscapedPath(t *testing.T) {
	router := setupTestHandler(t, db.NewMemoryStore())
	upsert(t, router, "New York", 8336817)
	upsert(t, router, "a/b", 1)

	if got := lookup(t, router, "new%20york"); got.City != "New York" {
		t.Errorf("expected New York, got %+v", got)
	}
	if got := lookup(t, router, "A%2FB"); got.City != "a/b" {
		t.Errorf("expected a/b, got %+v", got)
	}
}

func TestLastWriteWins(t *testing.T) {
	router := setupTestHandler(t, db.NewMemoryStore())

	upsert(t, router, "Gotham", 100)
	upsert(t, router, "GOTHAM", 200)

	resp := lookup(t, router, "gotham")
	if resp.Population != 200 || resp.City != "GOTHAM" {
		t.Errorf("expected last write GOTHAM/200, got %+v", resp)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	store := db.NewMemoryStore()
	router := setupTestHandler(t, store)

	for i := 0; i < 3; i++ {
		upsert(t, router, "Smallville", 45001)
	}

	if store.Count() != 1 {
		t.Errorf("expected 1 stored record, got %d", store.Count())
	}
	if resp := lookup(t, router, "Smallville"); resp.Population != 45001 {
		t.Errorf("expected 45001, got %d", resp.Population)
	}
}

func TestStoreFaultsSurfaceAs500(t *testing.T) {
	boom := errors.New("cluster red")
	router := setupTestHandler(t, &faultyStore{MemoryStore: db.NewMemoryStore(), getErr: boom, putErr: boom})

	w := doRequest(t, router, http.MethodPut, "/api/population", `{"city":"Gotham","population":1}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("upsert: expected status 500, got %d", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/api/population/Gotham", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("lookup: expected status 500, got %d", w.Code)
	}
}

func TestUnknownRoutes(t *testing.T) {
	router := setupTestHandler(t, db.NewMemoryStore())

	if w := doRequest(t, router, http.MethodGet, "/api/cities", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	if w := doRequest(t, router, http.MethodPost, "/api/population", `{}`); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestHandler(t, db.NewMemoryStore())
	upsert(t, router, "Gotham", 1)

	w := doRequest(t, router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `route="/api/population"`) {
		t.Errorf("expected request metrics for the upsert route:\n%s", w.Body.String())
	}
}

// Black-box smoke test: upsert → lookup → update → lookup
func TestFullPipeline(t *testing.T) {
	router := setupTestHandler(t, db.NewMemoryStore())

	body, _ := json.Marshal(map[string]interface{}{"city": "Metropolis", "population": 5000000})
	req := httptest.NewRequest(http.MethodPut, "/api/population", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upsert failed: %d", w.Code)
	}

	if resp := lookup(t, router, "Metropolis"); resp != (PopulationResponse{City: "Metropolis", Population: 5000000}) {
		t.Errorf("unexpected lookup result %+v", resp)
	}

	upsert(t, router, "Metropolis", 6000000)

	if resp := lookup(t, router, "Metropolis"); resp != (PopulationResponse{City: "Metropolis", Population: 6000000}) {
		t.Errorf("unexpected lookup result after update %+v", resp)
	}
}
