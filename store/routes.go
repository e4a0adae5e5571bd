package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/swapsight/swapsight/models"
)

// ClearRoutes removes all cached routes for a provider. The route pipeline
// calls this before refilling so stale pairs never linger.
func (s *Store) ClearRoutes(ctx context.Context, provider models.Provider) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM routes_cache WHERE provider = $1`, string(provider))
	if err != nil {
		return fmt.Errorf("failed to clear routes for %s: %w", provider, err)
	}
	return nil
}

// UpsertRoute writes one route record. The (from, to, provider) key makes
// re-probing a pair within a run overwrite rather than duplicate.
func (s *Store) UpsertRoute(ctx context.Context, record models.RouteRecord) error {
	venues, err := json.Marshal(record.Venues)
	if err != nil {
		return fmt.Errorf("failed to encode venues for %s: %w", record.Pair, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO routes_cache (from_symbol, to_symbol, provider, venues, fetched_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (from_symbol, to_symbol, provider) DO UPDATE
			SET venues = EXCLUDED.venues, fetched_at = EXCLUDED.fetched_at`,
		record.Pair.From, record.Pair.To, string(record.Provider), venues, record.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert route %s: %w", record.Pair, err)
	}
	return nil
}

// ReadRoutes returns cached routes, optionally filtered by provider, plus
// the most recent fetch time across the returned rows.
func (s *Store) ReadRoutes(ctx context.Context, provider *models.Provider) ([]models.RouteRecord, time.Time, error) {
	query := `
		SELECT from_symbol, to_symbol, provider, venues, fetched_at
		FROM routes_cache`
	var args []any
	if provider != nil {
		query += ` WHERE provider = $1`
		args = append(args, string(*provider))
	}
	query += ` ORDER BY from_symbol, to_symbol, provider`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var out []models.RouteRecord
	var latest time.Time
	for rows.Next() {
		var (
			record   models.RouteRecord
			provName string
			venues   []byte
		)
		if err := rows.Scan(&record.Pair.From, &record.Pair.To, &provName, &venues, &record.FetchedAt); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan route row: %w", err)
		}
		record.Provider = models.Provider(provName)
		if err := json.Unmarshal(venues, &record.Venues); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to decode venues for %s: %w", record.Pair, err)
		}
		if record.FetchedAt.After(latest) {
			latest = record.FetchedAt
		}
		out = append(out, record)
	}
	return out, latest, rows.Err()
}

// CountRoutes reports how many routes are cached for a provider.
func (s *Store) CountRoutes(ctx context.Context, provider models.Provider) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM routes_cache WHERE provider = $1`, string(provider)).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to count routes for %s: %w", provider, err)
	}
	return n, nil
}
