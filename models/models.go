// Package models holds the shared domain types for the swapsight backend:
// tokens, ordered pairs, providers, and the cached route/slippage records.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Provider identifies one of the external quote services.
type Provider string

const (
	ProviderOpenOcean Provider = "openocean"
	ProviderVia       Provider = "via"
)

// AllProviders lists every supported provider in a stable order.
func AllProviders() []Provider {
	return []Provider{ProviderOpenOcean, ProviderVia}
}

// ParseProvider validates a provider name coming from the API or CLI.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderOpenOcean, ProviderVia:
		return Provider(s), nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// Token is immutable reference data for one tradable token.
type Token struct {
	Symbol   string `json:"symbol" toml:"symbol"`
	Address  string `json:"address" toml:"address"`
	Decimals int    `json:"decimals" toml:"decimals"`
}

// Pair is an ordered (from, to) token combination. (A,B) and (B,A) are
// distinct pairs and may carry different route and slippage data.
type Pair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (p Pair) String() string {
	return p.From + "->" + p.To
}

// Canonical returns the direction-normalized form of the pair, with the
// lexicographically smaller symbol first.
func (p Pair) Canonical() Pair {
	if p.To < p.From {
		return Pair{From: p.To, To: p.From}
	}
	return p
}

// VenueStatus distinguishes venues that fully simulated from venues the
// provider reported but could not simulate.
type VenueStatus string

const (
	VenueFullySupported   VenueStatus = "supported"
	VenueSimulationFailed VenueStatus = "simulation_failed"
)

// Venue is one DEX or liquidity source a provider routes through.
type Venue struct {
	Name   string      `json:"name"`
	Status VenueStatus `json:"status"`
}

// RouteRecord is the cached route availability for one pair on one provider.
// At most one live record exists per (From, To, Provider).
type RouteRecord struct {
	Pair      Pair      `json:"pair"`
	Provider  Provider  `json:"provider"`
	Venues    []Venue   `json:"venues"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SlippageAmounts is the fixed ascending set of USD notionals probed for
// every pair during a slippage run.
var SlippageAmounts = []int64{1000, 10000, 50000, 100000}

// SlippageRecord is the cached slippage for one pair on one provider, one
// percentage per USD tier. A nil entry means the tier was probed but no
// quote was available. Every record written by one run shares the run's
// CalculationTimestamp.
type SlippageRecord struct {
	Pair                 Pair                        `json:"pair"`
	Provider             Provider                    `json:"provider"`
	Amounts              map[int64]*decimal.Decimal  `json:"amounts"`
	CalculationTimestamp time.Time                   `json:"calculation_timestamp"`
}

// AllUnavailable reports whether every probed tier came back empty.
func (r SlippageRecord) AllUnavailable() bool {
	for _, amount := range SlippageAmounts {
		if r.Amounts[amount] != nil {
			return false
		}
	}
	return true
}

// TokenPrice is the most recently observed USD price for a token.
type TokenPrice struct {
	Symbol    string          `json:"symbol"`
	PriceUSD  decimal.Decimal `json:"price_usd"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// FetchStats summarizes one pipeline run. Per-pair failures are counted
// here rather than propagated.
type FetchStats struct {
	Provider       Provider `json:"provider"`
	SuccessCount   int      `json:"success_count"`
	ErrorCount     int      `json:"error_count"`
	RecordsWritten int      `json:"records_written"`
	BudgetExceeded bool     `json:"budget_exceeded,omitempty"`
}
