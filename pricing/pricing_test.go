package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"
)

func TestSlippagePercent(t *testing.T) {
	// $1000 in, $990 out must be exactly 1.0 percent.
	pct, ok := SlippagePercent(decimal.NewFromInt(1000), decimal.NewFromInt(990))
	assert.True(t, ok)
	assert.True(t, pct.Equal(decimal.NewFromFloat(1.0)))
}

func TestSlippagePercentRounding(t *testing.T) {
	from := decimal.NewFromInt(10000)
	to := decimal.RequireFromString("9966.789")
	pct, ok := SlippagePercent(from, to)
	assert.True(t, ok)
	assert.Equal(t, "0.332", pct.String())
}

func TestSlippagePercentZeroInput(t *testing.T) {
	_, ok := SlippagePercent(decimal.Zero, decimal.NewFromInt(990))
	assert.False(t, ok)

	_, ok = SlippagePercent(decimal.NewFromInt(-5), decimal.NewFromInt(990))
	assert.False(t, ok)
}

func TestUsdToBaseUnits(t *testing.T) {
	// $1000 of a $2 token with 18 decimals -> 500 * 10^18 base units.
	units, err := UsdToBaseUnits(decimal.NewFromInt(1000), decimal.NewFromInt(2), 18)
	assert.NoError(t, err)
	assert.Equal(t, "500000000000000000000", units.String())

	// $1000 of a $4 token with 6 decimals -> 250 * 10^6 base units.
	units, err = UsdToBaseUnits(decimal.NewFromInt(1000), decimal.NewFromInt(4), 6)
	assert.NoError(t, err)
	assert.Equal(t, "250000000", units.String())
}

func TestUsdToBaseUnitsFloors(t *testing.T) {
	// $10 of a $3 token with 0 decimals is 3 whole units, never 3.33.
	units, err := UsdToBaseUnits(decimal.NewFromInt(10), decimal.NewFromInt(3), 0)
	assert.NoError(t, err)
	assert.Equal(t, "3", units.String())
}

func TestUsdToBaseUnitsNoPrice(t *testing.T) {
	_, err := UsdToBaseUnits(decimal.NewFromInt(1000), decimal.Zero, 18)
	assert.True(t, err == ErrPriceUnavailable)
}

func TestBaseUnitsToUsdRoundTrip(t *testing.T) {
	price := decimal.NewFromInt(2)
	units, err := UsdToBaseUnits(decimal.NewFromInt(1000), price, 6)
	assert.NoError(t, err)
	usd := BaseUnitsToUsd(units, price, 6)
	assert.True(t, usd.Equal(decimal.NewFromInt(1000)))
}
