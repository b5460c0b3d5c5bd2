package db

import (
	"context"
	"errors"
	"time"
)

// Observer receives the outcome of each store operation
type Observer interface {
	ObserveStore(op, result string, elapsed time.Duration)
}

// Instrumented wraps a Store and reports every call to an Observer
type Instrumented struct {
	next Store
	obs  Observer
}

// Instrument wraps next so each operation is observed
func Instrument(next Store, obs Observer) *Instrumented {
	return &Instrumented{next: next, obs: obs}
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	s.obs.ObserveStore(op, result, time.Since(start))
}

// EnsureIndex implements Store
func (s *Instrumented) EnsureIndex(ctx context.Context) error {
	start := time.Now()
	err := s.next.EnsureIndex(ctx)
	s.observe("ensure_index", start, err)
	return err
}

// Upsert implements Store
func (s *Instrumented) Upsert(ctx context.Context, rec Record) error {
	start := time.Now()
	err := s.next.Upsert(ctx, rec)
	s.observe("upsert", start, err)
	return err
}

// Get implements Store
func (s *Instrumented) Get(ctx context.Context, key string) (Record, error) {
	start := time.Now()
	rec, err := s.next.Get(ctx, key)
	s.observe("get", start, err)
	return rec, err
}

// Ping implements Store
func (s *Instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.next.Ping(ctx)
	s.observe("ping", start, err)
	return err
}

// Close implements Store
func (s *Instrumented) Close() error {
	return s.next.Close()
}
