package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps records as JSONB documents in a single table
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new database connection pool
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureIndex creates the records table when it is missing
func (s *PostgresStore) EnsureIndex(ctx context.Context) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1
	)`, IndexName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check table %s: %w", IndexName, err)
	}
	if exists {
		return nil
	}

	_, err = s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+IndexName+` (
		id  TEXT PRIMARY KEY,
		doc JSONB NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", IndexName, err)
	}

	return nil
}

// Upsert inserts the record or replaces the stored document
func (s *PostgresStore) Upsert(ctx context.Context, rec Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO `+IndexName+` (id, doc) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`, Key(rec.City), doc)
	if err != nil {
		return fmt.Errorf("failed to upsert %q: %w", Key(rec.City), err)
	}

	return nil
}

// Get reads the document stored under key
func (s *PostgresStore) Get(ctx context.Context, key string) (Record, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM `+IndexName+` WHERE id = $1`, key).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to get %q: %w", key, err)
	}

	var rec Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return rec, nil
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
