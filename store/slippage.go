package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/swapsight/swapsight/models"
)

// ClearSlippage removes all slippage rows for a provider ahead of a new
// calculation run.
func (s *Store) ClearSlippage(ctx context.Context, provider models.Provider) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM slippage_cache WHERE provider = $1`, string(provider))
	if err != nil {
		return fmt.Errorf("failed to clear slippage for %s: %w", provider, err)
	}
	return nil
}

// WriteSlippageBatch inserts a batch of slippage records in one
// transaction. Null tiers are stored as SQL NULL, so a pair that was
// probed but unavailable remains distinguishable after a read.
func (s *Store) WriteSlippageBatch(ctx context.Context, records []models.SlippageRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO slippage_cache (
				from_symbol, to_symbol, provider,
				amount_1000, amount_10000, amount_50000, amount_100000,
				calculation_timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.Pair.From, r.Pair.To, string(r.Provider),
			nullTier(r.Amounts[1000]), nullTier(r.Amounts[10000]),
			nullTier(r.Amounts[50000]), nullTier(r.Amounts[100000]),
			r.CalculationTimestamp.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert slippage for %s: %w", r.Pair, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit slippage batch: %w", err)
	}
	return nil
}

// ReadLatestSlippage returns the most recent completed run per provider.
// Rows are filtered to each provider's maximum calculation timestamp, so
// records from different runs are never mixed in one response.
func (s *Store) ReadLatestSlippage(ctx context.Context, provider *models.Provider) ([]models.SlippageRecord, error) {
	query := `
		SELECT sc.from_symbol, sc.to_symbol, sc.provider,
		       sc.amount_1000, sc.amount_10000, sc.amount_50000, sc.amount_100000,
		       sc.calculation_timestamp
		FROM slippage_cache sc
		JOIN (
			SELECT provider, MAX(calculation_timestamp) AS latest
			FROM slippage_cache
			GROUP BY provider
		) runs ON sc.provider = runs.provider
		      AND sc.calculation_timestamp = runs.latest`
	var args []any
	if provider != nil {
		query += ` WHERE sc.provider = $1`
		args = append(args, string(*provider))
	}
	query += ` ORDER BY sc.provider, sc.from_symbol, sc.to_symbol`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query slippage: %w", err)
	}
	defer rows.Close()

	var out []models.SlippageRecord
	for rows.Next() {
		var (
			record   models.SlippageRecord
			provName string
			tiers    [4]decimal.NullDecimal
		)
		err := rows.Scan(
			&record.Pair.From, &record.Pair.To, &provName,
			&tiers[0], &tiers[1], &tiers[2], &tiers[3],
			&record.CalculationTimestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slippage row: %w", err)
		}
		record.Provider = models.Provider(provName)
		record.Amounts = make(map[int64]*decimal.Decimal, len(models.SlippageAmounts))
		for i, amount := range models.SlippageAmounts {
			if tiers[i].Valid {
				v := tiers[i].Decimal
				record.Amounts[amount] = &v
			} else {
				record.Amounts[amount] = nil
			}
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// LatestSlippageTimestamp reports when a provider's current slippage run
// was calculated. sql.ErrNoRows maps to a zero time.
func (s *Store) LatestSlippageTimestamp(ctx context.Context, provider models.Provider) (sql.NullTime, error) {
	var ts sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(calculation_timestamp)
		FROM slippage_cache
		WHERE provider = $1`,
		string(provider),
	).Scan(&ts)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return sql.NullTime{}, fmt.Errorf("failed to query slippage timestamp for %s: %w", provider, err)
	}
	return ts, nil
}

func nullTier(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *v, Valid: true}
}
