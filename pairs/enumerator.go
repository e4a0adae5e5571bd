// Package pairs generates the sequences of ordered token pairs the fetch
// pipelines probe. Enumeration is deterministic for a given registry or
// route-cache snapshot: inputs are sorted by symbol before pairing.
package pairs

import (
	"sort"

	"github.com/swapsight/swapsight/models"
)

// FallbackPairs is probed for slippage when no routes are cached yet for a
// provider, so a slippage run is never a hard no-op.
var FallbackPairs = []models.Pair{
	{From: "USDC", To: "WETH"},
	{From: "USDC", To: "WMATIC"},
	{From: "WETH", To: "WMATIC"},
}

// Exhaustive emits all N*(N-1) ordered pairs over the registry, excluding
// self-pairs. Both directions of every combination are emitted because a
// venue may support A->B but not B->A.
func Exhaustive(tokens []models.Token) []models.Pair {
	symbols := make([]string, 0, len(tokens))
	for _, t := range tokens {
		symbols = append(symbols, t.Symbol)
	}
	sort.Strings(symbols)

	out := make([]models.Pair, 0, len(symbols)*(len(symbols)-1))
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			out = append(out, models.Pair{From: symbols[i], To: symbols[j]})
			out = append(out, models.Pair{From: symbols[j], To: symbols[i]})
		}
	}
	return out
}

// DerivedFromRoutes collects pairs that already have a cached route for the
// target provider, keeping only the canonical direction when both A->B and
// B->A are present. Falls back to FallbackPairs when the cache is empty.
func DerivedFromRoutes(routes []models.RouteRecord) []models.Pair {
	seen := make(map[models.Pair]struct{})
	for _, r := range routes {
		seen[r.Pair.Canonical()] = struct{}{}
	}
	if len(seen) == 0 {
		return append([]models.Pair(nil), FallbackPairs...)
	}

	out := make([]models.Pair, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
