package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/swapsight/swapsight/models"
	"github.com/swapsight/swapsight/pairs"
	"github.com/swapsight/swapsight/providers"
)

// RouteFetch probes every ordered token pair against one provider and
// rebuilds that provider's route cache. Stale entries are removed by the
// clear-before-run, not by per-pair deletion: a pair whose probe fails
// simply ends up without a row.
type RouteFetch struct {
	tokens  TokenSource
	store   RouteStore
	clients map[models.Provider]providers.Client
}

// NewRouteFetch creates the route pipeline.
func NewRouteFetch(tokens TokenSource, store RouteStore, clients map[models.Provider]providers.Client) *RouteFetch {
	return &RouteFetch{tokens: tokens, store: store, clients: clients}
}

// Run executes one full route fetch for the provider. Setup failures abort
// the run; per-pair failures are counted and swallowed.
func (f *RouteFetch) Run(ctx context.Context, provider models.Provider) (models.FetchStats, error) {
	started := time.Now()
	stats := models.FetchStats{Provider: provider}

	client, err := clientFor(f.clients, provider)
	if err != nil {
		return stats, err
	}
	client.ResetBudget()

	tokenList, err := f.tokens.ListTokens(ctx)
	if err != nil {
		runsTotal.WithLabelValues(string(provider), "routes", "aborted").Inc()
		return stats, fmt.Errorf("failed to read token registry: %w", err)
	}
	bySymbol := make(map[string]models.Token, len(tokenList))
	for _, t := range tokenList {
		bySymbol[t.Symbol] = t
	}

	if err := f.store.ClearRoutes(ctx, provider); err != nil {
		runsTotal.WithLabelValues(string(provider), "routes", "aborted").Inc()
		return stats, fmt.Errorf("failed to clear route cache: %w", err)
	}

	pairList := pairs.Exhaustive(tokenList)
	log.Info().
		Str("provider", string(provider)).
		Int("pairs", len(pairList)).
		Msg("route fetch run started")

	for _, pair := range pairList {
		from := bySymbol[pair.From]
		to := bySymbol[pair.To]

		result, err := client.ProbeRoute(ctx, from, to)
		if err != nil {
			if errors.Is(err, providers.ErrBudgetExhausted) {
				// Normal early termination: keep everything written so far.
				stats.BudgetExceeded = true
				log.Warn().
					Str("provider", string(provider)).
					Str("pair", pair.String()).
					Msg("request budget exhausted, stopping route run")
				break
			}
			if ctx.Err() != nil {
				runsTotal.WithLabelValues(string(provider), "routes", "aborted").Inc()
				return stats, ctx.Err()
			}
			stats.ErrorCount++
			probesTotal.WithLabelValues(string(provider), "routes", "error").Inc()
			log.Warn().Err(err).
				Str("provider", string(provider)).
				Str("pair", pair.String()).
				Msg("route probe failed")
			continue
		}

		stats.SuccessCount++
		if !result.Supported {
			probesTotal.WithLabelValues(string(provider), "routes", "unsupported").Inc()
			continue
		}
		probesTotal.WithLabelValues(string(provider), "routes", "supported").Inc()

		record := models.RouteRecord{
			Pair:      pair,
			Provider:  provider,
			Venues:    result.Venues,
			FetchedAt: time.Now().UTC(),
		}
		if err := f.store.UpsertRoute(ctx, record); err != nil {
			stats.ErrorCount++
			log.Error().Err(err).
				Str("pair", pair.String()).
				Msg("failed to upsert route record")
			continue
		}
		stats.RecordsWritten++
	}

	runDuration.WithLabelValues(string(provider), "routes").Observe(time.Since(started).Seconds())
	runsTotal.WithLabelValues(string(provider), "routes", "completed").Inc()
	log.Info().
		Str("provider", string(provider)).
		Int("success", stats.SuccessCount).
		Int("errors", stats.ErrorCount).
		Int("written", stats.RecordsWritten).
		Bool("budget_exceeded", stats.BudgetExceeded).
		Msg("route fetch run finished")

	return stats, nil
}
