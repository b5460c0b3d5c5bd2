// Package httpapi provides HTTP handlers and data transfer objects for the population API.
package httpapi

// Store connectivity values reported by the health endpoint
const (
	StoreConnected   = "connected"
	StoreUnreachable = "unreachable"
)

// HealthResponse represents the health check response.
// Status is always "OK"; Elasticsearch reports store connectivity.
type HealthResponse struct {
	Status        string `json:"status"`
	Elasticsearch string `json:"elasticsearch"`
}

// UpsertRequest represents a population upsert
type UpsertRequest struct {
	City       string `json:"city"`
	Population int64  `json:"population"`
}

// UpsertResponse echoes the submitted record
type UpsertResponse struct {
	Message    string `json:"message"`
	City       string `json:"city"`
	Population int64  `json:"population"`
}

// PopulationResponse represents a lookup result
type PopulationResponse struct {
	City       string `json:"city"`
	Population int64  `json:"population"`
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Detail string `json:"detail"`
}
