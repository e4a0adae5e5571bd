// Package pricing converts USD notionals into token base units and computes
// percentage slippage between the USD values of a simulated swap's legs.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable is returned when a token has no observed USD price.
// Probes for such tokens are skipped, never guessed.
var ErrPriceUnavailable = errors.New("token price unavailable")

var hundred = decimal.NewFromInt(100)

// UsdToBaseUnits converts a USD notional into integer base units of a token,
// given the token's USD price and decimal precision. The result is floored:
// quoting APIs take whole base units.
func UsdToBaseUnits(usdAmount decimal.Decimal, priceUSD decimal.Decimal, decimals int) (decimal.Decimal, error) {
	if priceUSD.IsZero() || priceUSD.IsNegative() {
		return decimal.Decimal{}, ErrPriceUnavailable
	}
	return usdAmount.Div(priceUSD).Shift(int32(decimals)).Floor(), nil
}

// BaseUnitsToUsd converts integer base units back into a USD value.
func BaseUnitsToUsd(baseUnits decimal.Decimal, priceUSD decimal.Decimal, decimals int) decimal.Decimal {
	return baseUnits.Shift(int32(-decimals)).Mul(priceUSD)
}

// SlippagePercent computes (fromUSD - toUSD) / fromUSD * 100 rounded to
// three decimals. A zero or negative input value yields no result rather
// than a division by zero.
func SlippagePercent(fromUSD, toUSD decimal.Decimal) (decimal.Decimal, bool) {
	if fromUSD.IsZero() || fromUSD.IsNegative() {
		return decimal.Decimal{}, false
	}
	return fromUSD.Sub(toUSD).Div(fromUSD).Mul(hundred).Round(3), true
}
