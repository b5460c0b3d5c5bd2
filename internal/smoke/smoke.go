package smoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	httpapi "github.com/dsjohal14/citypop/internal/http"
)

// Defaults for the health polling loop
const (
	DefaultRetries  = 30
	DefaultInterval = 2 * time.Second
)

// ErrHealthTimeout is returned when the store never reports connected
var ErrHealthTimeout = errors.New("timeout waiting for health/store")

// Runner walks the API through health, upsert, lookup and update
type Runner struct {
	Client   *Client
	Out      io.Writer
	Retries  int
	Interval time.Duration
	City     string
}

// NewRunner creates a runner with the default retry policy
func NewRunner(client *Client, out io.Writer) *Runner {
	return &Runner{
		Client:   client,
		Out:      out,
		Retries:  DefaultRetries,
		Interval: DefaultInterval,
		City:     "Metropolis",
	}
}

func (r *Runner) log(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(r.Out, "[TEST] "+format+"\n", args...)
}

// Run executes every step in order and stops at the first failure
func (r *Runner) Run(ctx context.Context) error {
	if err := r.waitHealthy(ctx); err != nil {
		return err
	}

	r.log("Testing Upsert (PUT /api/population)...")
	if _, err := r.Client.Upsert(ctx, r.City, 5000000); err != nil {
		r.log("Upsert failed: %v", err)
		return fmt.Errorf("upsert: %w", err)
	}
	r.log("Upsert OK")

	r.log("Testing Get (GET /api/population/{city})...")
	if err := r.expectPopulation(ctx, 5000000); err != nil {
		r.log("Get failed: %v", err)
		return fmt.Errorf("get: %w", err)
	}
	r.log("Get OK")

	r.log("Testing Update (Upsert existing)...")
	if _, err := r.Client.Upsert(ctx, r.City, 6000000); err != nil {
		r.log("Update failed: %v", err)
		return fmt.Errorf("update: %w", err)
	}
	if err := r.expectPopulation(ctx, 6000000); err != nil {
		r.log("Update failed: %v", err)
		return fmt.Errorf("update: %w", err)
	}
	r.log("Update OK")

	r.log("ALL TESTS PASSED")
	return nil
}

// waitHealthy polls /health until the store reports connected. Transport
// errors count as a failed attempt.
func (r *Runner) waitHealthy(ctx context.Context) error {
	r.log("Testing Health Check (waiting for store)...")

	for i := 0; i < r.Retries; i++ {
		resp, err := r.Client.Health(ctx)
		switch {
		case err == nil && resp.Elasticsearch == httpapi.StoreConnected:
			r.log("Health Check OK & store connected")
			return nil
		case err == nil:
			r.log("Health OK but store not connected: %+v", resp)
		default:
			var se *StatusError
			if errors.As(err, &se) {
				r.log("Health Check Status: %d", se.Code)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.Interval):
		}
	}

	r.log("Timeout waiting for Health/store")
	return ErrHealthTimeout
}

func (r *Runner) expectPopulation(ctx context.Context, want int64) error {
	resp, err := r.Client.Lookup(ctx, r.City)
	if err != nil {
		return err
	}
	if resp.Population != want {
		return fmt.Errorf("population mismatch: got %d, want %d", resp.Population, want)
	}
	return nil
}
