package pairs

import (
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/swapsight/swapsight/models"
)

func tok(symbol string) models.Token {
	return models.Token{Symbol: symbol, Address: "0x" + symbol, Decimals: 18}
}

func TestExhaustiveCount(t *testing.T) {
	tokens := []models.Token{tok("AAVE"), tok("DAI"), tok("USDC"), tok("WETH"), tok("WMATIC")}

	got := Exhaustive(tokens)

	// 5 tokens -> 5*4 = 20 ordered pairs.
	assert.Equal(t, 20, len(got))

	seen := make(map[models.Pair]struct{})
	for _, p := range got {
		assert.True(t, p.From != p.To)
		_, dup := seen[p]
		assert.False(t, dup)
		seen[p] = struct{}{}
	}
}

func TestExhaustiveDeterministic(t *testing.T) {
	shuffled := []models.Token{tok("WETH"), tok("AAVE"), tok("USDC")}
	ordered := []models.Token{tok("AAVE"), tok("USDC"), tok("WETH")}

	a := Exhaustive(shuffled)
	b := Exhaustive(ordered)

	assert.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i], b[i])
	}
	// Sorted by symbol: the first emitted combination is AAVE/USDC.
	assert.Equal(t, models.Pair{From: "AAVE", To: "USDC"}, a[0])
	assert.Equal(t, models.Pair{From: "USDC", To: "AAVE"}, a[1])
}

func TestExhaustiveEmpty(t *testing.T) {
	assert.Equal(t, 0, len(Exhaustive(nil)))
	assert.Equal(t, 0, len(Exhaustive([]models.Token{tok("USDC")})))
}

func route(from, to string) models.RouteRecord {
	return models.RouteRecord{
		Pair:      models.Pair{From: from, To: to},
		Provider:  models.ProviderOpenOcean,
		Venues:    []models.Venue{{Name: "quickswap", Status: models.VenueFullySupported}},
		FetchedAt: time.Now(),
	}
}

func TestDerivedDeduplicatesDirection(t *testing.T) {
	routes := []models.RouteRecord{
		route("WETH", "USDC"),
		route("USDC", "WETH"),
		route("DAI", "WETH"),
	}

	got := DerivedFromRoutes(routes)

	// Both WETH->USDC and USDC->WETH collapse to the canonical USDC->WETH.
	assert.Equal(t, 2, len(got))
	assert.Equal(t, models.Pair{From: "DAI", To: "WETH"}, got[0])
	assert.Equal(t, models.Pair{From: "USDC", To: "WETH"}, got[1])
}

func TestDerivedFallback(t *testing.T) {
	got := DerivedFromRoutes(nil)
	assert.Equal(t, len(FallbackPairs), len(got))
	assert.Equal(t, FallbackPairs[0], got[0])

	// The fallback must be a copy, not the package slice itself.
	got[0] = models.Pair{From: "X", To: "Y"}
	assert.Equal(t, models.Pair{From: "USDC", To: "WETH"}, FallbackPairs[0])
}
