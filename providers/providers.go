// Package providers defines the normalized contract every quote provider
// client implements, plus the per-run request budget shared by both.
// Provider-specific wire protocols live in the subpackages; they map their
// responses into the common RouteResult/SlippageResult variants at a single
// translation point each.
package providers

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/swapsight/swapsight/models"
)

var (
	// ErrSessionExpired signals that the upstream invalidated the current
	// order/session handle. It is not counted against the transient retry
	// bound; the client rotates the session and retries the failed step.
	ErrSessionExpired = errors.New("provider session expired")

	// ErrBudgetExhausted means the per-run request ceiling was hit. The
	// pipeline stops issuing probes and keeps what was written so far.
	ErrBudgetExhausted = errors.New("request budget exhausted")
)

// RouteResult is the normalized outcome of a route probe.
type RouteResult struct {
	Supported bool
	Venues    []models.Venue
}

// SlippageResult is the normalized outcome of a slippage probe. When
// Available is false, Reason says why the quote could not be produced.
type SlippageResult struct {
	Available bool
	Percent   decimal.Decimal
	Reason    string
}

// Unavailable builds an unavailable SlippageResult.
func Unavailable(reason string) SlippageResult {
	return SlippageResult{Reason: reason}
}

// Client is the normalized quote provider contract consumed by the fetch
// pipelines. Implementations are not safe for concurrent use: pipelines
// process pairs strictly sequentially.
type Client interface {
	Provider() models.Provider

	// ProbeRoute asks the provider whether it can route from -> to and
	// through which venues.
	ProbeRoute(ctx context.Context, from, to models.Token) (RouteResult, error)

	// ProbeSlippage quotes a swap of usdAmount worth of the source token
	// and returns the percentage slippage against the USD values.
	ProbeSlippage(ctx context.Context, from, to models.Token, usdAmount int64, fromPriceUSD, toPriceUSD decimal.Decimal) (SlippageResult, error)

	// ResetBudget starts a fresh request budget. Called once at run start.
	ResetBudget()
}

// Budget is a plain per-run request counter with a hard ceiling. It is owned
// by one client instance and reset at run start, never shared across runs.
type Budget struct {
	used int
	max  int
}

// NewBudget creates a budget allowing max requests. A non-positive max
// disables the ceiling.
func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

// Consume claims one request slot, or returns ErrBudgetExhausted.
func (b *Budget) Consume() error {
	if b.max > 0 && b.used >= b.max {
		return ErrBudgetExhausted
	}
	b.used++
	return nil
}

// Used returns how many requests this run has issued.
func (b *Budget) Used() int {
	return b.used
}

// Reset clears the counter for a new run.
func (b *Budget) Reset() {
	b.used = 0
}

// SleepCtx waits for d or until the context is done, whichever comes first.
// All inter-request delays go through this so runs stay cancellable.
func SleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
