package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/swapsight/swapsight/models"
	"github.com/swapsight/swapsight/pricing"
)

// LatestPrice returns the most recent USD price observed for a token.
// A token with no row yet maps to pricing.ErrPriceUnavailable so callers
// can tell "not priced" apart from a database failure.
func (s *Store) LatestPrice(ctx context.Context, symbol string) (models.TokenPrice, error) {
	var price models.TokenPrice
	err := s.db.QueryRowContext(ctx, `
		SELECT symbol, price_usd, updated_at
		FROM token_prices
		WHERE symbol = $1`,
		symbol,
	).Scan(&price.Symbol, &price.PriceUSD, &price.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TokenPrice{}, fmt.Errorf("price for %s: %w", symbol, pricing.ErrPriceUnavailable)
	}
	if err != nil {
		return models.TokenPrice{}, fmt.Errorf("failed to query price for %s: %w", symbol, err)
	}
	return price, nil
}

// UpsertPrice records a USD price observation for a token.
func (s *Store) UpsertPrice(ctx context.Context, price models.TokenPrice) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token_prices (symbol, price_usd, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol) DO UPDATE
			SET price_usd = EXCLUDED.price_usd, updated_at = EXCLUDED.updated_at`,
		price.Symbol, price.PriceUSD, price.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price for %s: %w", price.Symbol, err)
	}
	return nil
}

// ListPrices returns every priced token ordered by symbol.
func (s *Store) ListPrices(ctx context.Context) ([]models.TokenPrice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, price_usd, updated_at
		FROM token_prices
		ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var out []models.TokenPrice
	for rows.Next() {
		var p models.TokenPrice
		if err := rows.Scan(&p.Symbol, &p.PriceUSD, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SeedPrices writes an initial price table. Existing observations newer
// than the seed values are left untouched.
func (s *Store) SeedPrices(ctx context.Context, prices []models.TokenPrice) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range prices {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO token_prices (symbol, price_usd, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (symbol) DO UPDATE
				SET price_usd = EXCLUDED.price_usd, updated_at = EXCLUDED.updated_at
				WHERE token_prices.updated_at < EXCLUDED.updated_at`,
			p.Symbol, p.PriceUSD, p.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to seed price for %s: %w", p.Symbol, err)
		}
	}
	return tx.Commit()
}
