// Package db provides the document store clients that persist population records.
package db

import (
	"context"
	"errors"
	"strings"
)

// IndexName is the fixed index (or table, or key prefix) holding population records
const IndexName = "cities"

// ErrNotFound is returned by Get when no record exists under the key
var ErrNotFound = errors.New("record not found")

// Record is a stored population document
type Record struct {
	City       string `json:"city"`
	Population int64  `json:"population"`
}

// Key derives the document id for a city. Lowercasing is the only
// normalization, so names differing only in case share a record.
func Key(city string) string {
	return strings.ToLower(city)
}

// Store is the interface for document storage.
// Implementations must be safe for concurrent use.
type Store interface {
	// EnsureIndex creates the backing index if it does not exist yet
	EnsureIndex(ctx context.Context) error

	// Upsert writes rec under Key(rec.City), replacing any previous record in full
	Upsert(ctx context.Context, rec Record) error

	// Get fetches the record stored under key, or ErrNotFound
	Get(ctx context.Context, key string) (Record, error)

	// Ping reports whether the store is reachable
	Ping(ctx context.Context) error

	// Close releases the connection
	Close() error
}

// Ensure all backends implement Store
var (
	_ Store = (*ElasticStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Store = (*Instrumented)(nil)
)
