// Package pipeline implements the route and slippage fetch pipelines: the
// acquisition side of the cache. Pairs are processed strictly sequentially;
// the pacing inside the provider clients and the per-session ordering of the
// order-based protocol both depend on that.
package pipeline

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/swapsight/swapsight/models"
	"github.com/swapsight/swapsight/providers"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "pipeline").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "pipeline").Logger()
}

// ErrRunInProgress is returned when a run for the same provider and
// pipeline is already active. Concurrent runs would race on
// clear-then-write, so they are mutually excluded per provider.
var ErrRunInProgress = errors.New("fetch run already in progress")

// ErrUnknownProvider is returned when no client is configured for the
// requested provider.
var ErrUnknownProvider = errors.New("no client configured for provider")

// TokenSource lists the seeded token registry.
type TokenSource interface {
	ListTokens(ctx context.Context) ([]models.Token, error)
}

// PriceSource reads the most recently observed USD price for a token.
// Implementations return pricing.ErrPriceUnavailable (possibly wrapped)
// when no price has been observed.
type PriceSource interface {
	LatestPrice(ctx context.Context, symbol string) (models.TokenPrice, error)
}

// RouteStore is the cache surface the route pipeline writes to and the
// slippage pipeline derives its pair set from.
type RouteStore interface {
	ClearRoutes(ctx context.Context, provider models.Provider) error
	UpsertRoute(ctx context.Context, record models.RouteRecord) error
	ReadRoutes(ctx context.Context, provider *models.Provider) ([]models.RouteRecord, time.Time, error)
}

// SlippageStore is the cache surface the slippage pipeline writes to.
type SlippageStore interface {
	ClearSlippage(ctx context.Context, provider models.Provider) error
	WriteSlippageBatch(ctx context.Context, records []models.SlippageRecord) error
}

// Runner owns both pipelines and serializes runs per provider and kind.
// It is the trigger entry point used by the HTTP API, the scheduler and
// the CLI.
type Runner struct {
	routes   *RouteFetch
	slippage *SlippageFetch

	mu     sync.Mutex
	active map[string]struct{}
}

// NewRunner creates a runner over the given pipelines.
func NewRunner(routes *RouteFetch, slippage *SlippageFetch) *Runner {
	return &Runner{
		routes:   routes,
		slippage: slippage,
		active:   make(map[string]struct{}),
	}
}

// RunRouteFetch triggers a route fetch run for the provider. Safe to invoke
// repeatedly; a second concurrent call for the same provider returns
// ErrRunInProgress.
func (r *Runner) RunRouteFetch(ctx context.Context, provider models.Provider) (models.FetchStats, error) {
	release, err := r.acquire("routes/" + string(provider))
	if err != nil {
		return models.FetchStats{}, err
	}
	defer release()
	return r.routes.Run(ctx, provider)
}

// RunSlippageFetch triggers a slippage fetch run for the provider.
func (r *Runner) RunSlippageFetch(ctx context.Context, provider models.Provider) (models.FetchStats, error) {
	release, err := r.acquire("slippage/" + string(provider))
	if err != nil {
		return models.FetchStats{}, err
	}
	defer release()
	return r.slippage.Run(ctx, provider)
}

// StartRouteFetch kicks off a route fetch run in the background. The lock
// is taken synchronously so callers learn about a conflicting run right
// away; the run itself detaches from the caller's lifetime.
func (r *Runner) StartRouteFetch(ctx context.Context, provider models.Provider) error {
	if _, err := clientFor(r.routes.clients, provider); err != nil {
		return err
	}
	release, err := r.acquire("routes/" + string(provider))
	if err != nil {
		return err
	}
	go func() {
		defer release()
		if _, err := r.routes.Run(ctx, provider); err != nil {
			log.Error().Err(err).
				Str("provider", string(provider)).
				Msg("background route fetch run failed")
		}
	}()
	return nil
}

// StartSlippageFetch kicks off a slippage fetch run in the background.
func (r *Runner) StartSlippageFetch(ctx context.Context, provider models.Provider) error {
	if _, err := clientFor(r.slippage.clients, provider); err != nil {
		return err
	}
	release, err := r.acquire("slippage/" + string(provider))
	if err != nil {
		return err
	}
	go func() {
		defer release()
		if _, err := r.slippage.Run(ctx, provider); err != nil {
			log.Error().Err(err).
				Str("provider", string(provider)).
				Msg("background slippage fetch run failed")
		}
	}()
	return nil
}

func (r *Runner) acquire(key string) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.active[key]; busy {
		return nil, ErrRunInProgress
	}
	r.active[key] = struct{}{}
	return func() {
		r.mu.Lock()
		delete(r.active, key)
		r.mu.Unlock()
	}, nil
}

// clientFor resolves the configured client for a provider.
func clientFor(clients map[models.Provider]providers.Client, provider models.Provider) (providers.Client, error) {
	c, ok := clients[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return c, nil
}
