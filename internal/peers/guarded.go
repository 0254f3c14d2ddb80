// Package peers supplies comparative averages across lots of the same category.
//
// Providers compose: a StoreProvider or HTTPProvider produces the numbers,
// RedisCache memoises them per category, and Guarded bounds every lookup with
// a timeout and at most one retry so a slow backend can never hold up a forecast.
package peers

import (
	"context"
	"fmt"
	"time"

	"github.com/rewired-gh/flockcast/internal/logger"
	"github.com/rewired-gh/flockcast/internal/models"
)

// Provider is the read interface every peer source implements.
// It matches forecast.PeerAverageProvider.
type Provider interface {
	PeerAverages(ctx context.Context, category models.Category) (*models.PeerAverages, error)
}

// Guarded wraps a Provider with a per-attempt timeout and one bounded retry.
type Guarded struct {
	next    Provider
	timeout time.Duration
	retries int
}

// NewGuarded wraps next. retries is capped at 1.
func NewGuarded(next Provider, timeout time.Duration, retries int) *Guarded {
	if retries < 0 {
		retries = 0
	}
	if retries > 1 {
		retries = 1
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Guarded{next: next, timeout: timeout, retries: retries}
}

// PeerAverages implements Provider.
func (g *Guarded) PeerAverages(ctx context.Context, category models.Category) (*models.PeerAverages, error) {
	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		avg, err := g.attempt(ctx, category)
		if err == nil {
			return avg, nil
		}
		lastErr = err
		logger.Debug("peer lookup attempt %d for %s failed: %v", attempt+1, category, err)
	}
	return nil, fmt.Errorf("peer lookup for %s failed: %w", category, lastErr)
}

func (g *Guarded) attempt(ctx context.Context, category models.Category) (*models.PeerAverages, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		avg *models.PeerAverages
		err error
	}
	done := make(chan result, 1)
	go func() {
		avg, err := g.next.PeerAverages(ctx, category)
		done <- result{avg, err}
	}()

	select {
	case r := <-done:
		return r.avg, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
