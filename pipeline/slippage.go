package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/swapsight/swapsight/models"
	"github.com/swapsight/swapsight/pairs"
	"github.com/swapsight/swapsight/pricing"
	"github.com/swapsight/swapsight/providers"
)

// SlippageFetch probes percentage slippage for every cached route pair at
// each USD tier and rebuilds that provider's slippage cache under a single
// calculation timestamp. A pair whose tiers all fail is still written, so
// "probed but unavailable" stays distinguishable from "never probed".
type SlippageFetch struct {
	tokens  TokenSource
	routes  RouteStore
	store   SlippageStore
	prices  PriceSource
	clients map[models.Provider]providers.Client
}

// NewSlippageFetch creates the slippage pipeline.
func NewSlippageFetch(
	tokens TokenSource,
	routes RouteStore,
	store SlippageStore,
	prices PriceSource,
	clients map[models.Provider]providers.Client,
) *SlippageFetch {
	return &SlippageFetch{tokens: tokens, routes: routes, store: store, prices: prices, clients: clients}
}

// Run executes one full slippage calculation run for the provider. Every
// record written shares the timestamp generated here at run start.
func (f *SlippageFetch) Run(ctx context.Context, provider models.Provider) (models.FetchStats, error) {
	started := time.Now()
	calculationTimestamp := started.UTC().Truncate(time.Second)
	stats := models.FetchStats{Provider: provider}

	client, err := clientFor(f.clients, provider)
	if err != nil {
		return stats, err
	}
	client.ResetBudget()

	tokenList, err := f.tokens.ListTokens(ctx)
	if err != nil {
		runsTotal.WithLabelValues(string(provider), "slippage", "aborted").Inc()
		return stats, fmt.Errorf("failed to read token registry: %w", err)
	}
	bySymbol := make(map[string]models.Token, len(tokenList))
	for _, t := range tokenList {
		bySymbol[t.Symbol] = t
	}

	cachedRoutes, _, err := f.routes.ReadRoutes(ctx, &provider)
	if err != nil {
		runsTotal.WithLabelValues(string(provider), "slippage", "aborted").Inc()
		return stats, fmt.Errorf("failed to read route cache: %w", err)
	}
	pairList := pairs.DerivedFromRoutes(cachedRoutes)

	if err := f.store.ClearSlippage(ctx, provider); err != nil {
		runsTotal.WithLabelValues(string(provider), "slippage", "aborted").Inc()
		return stats, fmt.Errorf("failed to clear slippage cache: %w", err)
	}

	log.Info().
		Str("provider", string(provider)).
		Int("pairs", len(pairList)).
		Time("calculation_timestamp", calculationTimestamp).
		Msg("slippage fetch run started")

	for _, pair := range pairList {
		record := models.SlippageRecord{
			Pair:                 pair,
			Provider:             provider,
			Amounts:              make(map[int64]*decimal.Decimal, len(models.SlippageAmounts)),
			CalculationTimestamp: calculationTimestamp,
		}
		for _, amount := range models.SlippageAmounts {
			record.Amounts[amount] = nil
		}

		budgetHit, err := f.probePair(ctx, client, bySymbol, pair, &record)
		if err != nil {
			runsTotal.WithLabelValues(string(provider), "slippage", "aborted").Inc()
			return stats, err
		}

		if record.AllUnavailable() {
			stats.ErrorCount++
			probesTotal.WithLabelValues(string(provider), "slippage", "unavailable").Inc()
		} else {
			stats.SuccessCount++
			probesTotal.WithLabelValues(string(provider), "slippage", "ok").Inc()
		}

		if err := f.store.WriteSlippageBatch(ctx, []models.SlippageRecord{record}); err != nil {
			stats.ErrorCount++
			log.Error().Err(err).
				Str("pair", pair.String()).
				Msg("failed to write slippage record")
		} else {
			stats.RecordsWritten++
		}

		if budgetHit {
			stats.BudgetExceeded = true
			log.Warn().
				Str("provider", string(provider)).
				Str("pair", pair.String()).
				Msg("request budget exhausted, stopping slippage run")
			break
		}
	}

	runDuration.WithLabelValues(string(provider), "slippage").Observe(time.Since(started).Seconds())
	runsTotal.WithLabelValues(string(provider), "slippage", "completed").Inc()
	log.Info().
		Str("provider", string(provider)).
		Int("success", stats.SuccessCount).
		Int("errors", stats.ErrorCount).
		Bool("budget_exceeded", stats.BudgetExceeded).
		Msg("slippage fetch run finished")

	return stats, nil
}

// probePair fills the record's tiers for one pair. It returns budgetHit
// when the request ceiling stops the run; the partially filled record is
// still written by the caller. A non-nil error aborts the whole run and is
// only produced for context cancellation.
func (f *SlippageFetch) probePair(
	ctx context.Context,
	client providers.Client,
	bySymbol map[string]models.Token,
	pair models.Pair,
	record *models.SlippageRecord,
) (bool, error) {
	from, fromOK := bySymbol[pair.From]
	to, toOK := bySymbol[pair.To]
	if !fromOK || !toOK {
		log.Warn().
			Str("pair", pair.String()).
			Msg("pair references unregistered token, skipping probes")
		return false, nil
	}

	// Both prices are needed: the source price for amount conversion and
	// the destination price for the USD value of the output leg. Missing
	// prices skip the upstream entirely and are logged apart from probe
	// failures so they stay diagnosable.
	fromPrice, ok, err := f.lookupPrice(ctx, pair, pair.From)
	if err != nil || !ok {
		return false, err
	}
	toPrice, ok, err := f.lookupPrice(ctx, pair, pair.To)
	if err != nil || !ok {
		return false, err
	}

	for _, amount := range models.SlippageAmounts {
		result, err := client.ProbeSlippage(ctx, from, to, amount, fromPrice, toPrice)
		if err != nil {
			if errors.Is(err, providers.ErrBudgetExhausted) {
				return true, nil
			}
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			log.Warn().Err(err).
				Str("pair", pair.String()).
				Int64("usd_amount", amount).
				Msg("slippage probe failed")
			continue
		}
		if !result.Available {
			log.Debug().
				Str("pair", pair.String()).
				Int64("usd_amount", amount).
				Str("reason", result.Reason).
				Msg("slippage unavailable")
			continue
		}
		pct := result.Percent
		record.Amounts[amount] = &pct
	}
	return false, nil
}

// lookupPrice resolves the latest USD price for a token. A missing price is
// not an error: the pair's tiers stay null and the run continues.
func (f *SlippageFetch) lookupPrice(ctx context.Context, pair models.Pair, symbol string) (decimal.Decimal, bool, error) {
	price, err := f.prices.LatestPrice(ctx, symbol)
	if err == nil {
		return price.PriceUSD, true, nil
	}
	if ctx.Err() != nil {
		return decimal.Decimal{}, false, ctx.Err()
	}
	if errors.Is(err, pricing.ErrPriceUnavailable) {
		log.Warn().
			Str("token", symbol).
			Str("pair", pair.String()).
			Msg("no USD price observed for token, slippage unavailable")
	} else {
		log.Error().Err(err).
			Str("token", symbol).
			Str("pair", pair.String()).
			Msg("price lookup failed")
	}
	return decimal.Decimal{}, false, nil
}
