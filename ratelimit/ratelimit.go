// Package ratelimit provides a thin wrapper around golang.org/x/time/rate
// used to pace outbound probe requests at a fixed interval.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum interval between events.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer that allows one event per interval. A
// non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next event is allowed or the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now without blocking.
func (p *Pacer) Allow() bool {
	return p.limiter.Allow()
}
