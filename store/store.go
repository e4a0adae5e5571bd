// Package store persists the token registry, USD price table, and the
// route and slippage caches in Postgres. Writers always clear a provider's
// rows before refilling them, so readers only ever see complete runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/swapsight/swapsight/models"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "store").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "store").Logger()
}

// Config holds the Postgres connection parameters.
type Config struct {
	Host     string `toml:"host" mapstructure:"host"`
	Port     int    `toml:"port" mapstructure:"port"`
	User     string `toml:"user" mapstructure:"user"`
	Password string `toml:"password" mapstructure:"password"`
	Database string `toml:"database" mapstructure:"database"`
	SSLMode  string `toml:"ssl_mode" mapstructure:"ssl_mode"`

	// PingAttempts bounds the connect retry loop. The database container
	// often comes up after the service does.
	PingAttempts int           `toml:"ping_attempts" mapstructure:"ping_attempts"`
	PingDelay    time.Duration `toml:"ping_delay" mapstructure:"ping_delay"`
}

// DefaultConfig returns connection defaults for local development.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         5432,
		User:         "swapsight",
		Database:     "swapsight",
		SSLMode:      "disable",
		PingAttempts: 15,
		PingDelay:    2 * time.Second,
	}
}

// Store wraps the database handle. It implements the pipeline's
// TokenSource, PriceSource, RouteStore, and SlippageStore ports.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and pings until the server answers or the
// retry budget runs out.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres handle: %w", err)
	}

	attempts := cfg.PingAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 1; ; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if i >= attempts {
			db.Close()
			return nil, fmt.Errorf("postgres unreachable after %d attempts: %w", attempts, err)
		}
		log.Warn().Err(err).
			Int("attempt", i).
			Msg("waiting for postgres to accept connections")
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(cfg.PingDelay):
		}
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to postgres")
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tokens (
		symbol   TEXT PRIMARY KEY,
		address  TEXT NOT NULL,
		decimals INT  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS token_prices (
		symbol     TEXT PRIMARY KEY REFERENCES tokens (symbol),
		price_usd  NUMERIC NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS routes_cache (
		id          BIGSERIAL PRIMARY KEY,
		from_symbol TEXT NOT NULL,
		to_symbol   TEXT NOT NULL,
		provider    TEXT NOT NULL,
		venues      JSONB NOT NULL,
		fetched_at  TIMESTAMPTZ NOT NULL,
		UNIQUE (from_symbol, to_symbol, provider)
	)`,
	`CREATE TABLE IF NOT EXISTS slippage_cache (
		id                    BIGSERIAL PRIMARY KEY,
		from_symbol           TEXT NOT NULL,
		to_symbol             TEXT NOT NULL,
		provider              TEXT NOT NULL,
		amount_1000           NUMERIC,
		amount_10000          NUMERIC,
		amount_50000          NUMERIC,
		amount_100000         NUMERIC,
		calculation_timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS slippage_cache_provider_ts
		ON slippage_cache (provider, calculation_timestamp)`,
}

// Bootstrap creates the schema when it does not exist yet. Statements are
// idempotent so this runs unconditionally at startup.
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema bootstrap failed: %w", err)
		}
	}
	log.Info().Msg("database schema verified")
	return nil
}

// SeedTokens upserts the registry into the tokens table. The registry file
// is the source of truth; re-seeding updates address and decimals in place.
func (s *Store) SeedTokens(ctx context.Context, tokens []models.Token) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tokens {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tokens (symbol, address, decimals)
			VALUES ($1, $2, $3)
			ON CONFLICT (symbol) DO UPDATE
				SET address = EXCLUDED.address, decimals = EXCLUDED.decimals`,
			t.Symbol, t.Address, t.Decimals,
		)
		if err != nil {
			return fmt.Errorf("failed to seed token %s: %w", t.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit token seed: %w", err)
	}
	log.Info().Int("tokens", len(tokens)).Msg("token registry seeded")
	return nil
}

// ListTokens returns the seeded registry ordered by symbol.
func (s *Store) ListTokens(ctx context.Context) ([]models.Token, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, address, decimals FROM tokens ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	var out []models.Token
	for rows.Next() {
		var t models.Token
		if err := rows.Scan(&t.Symbol, &t.Address, &t.Decimals); err != nil {
			return nil, fmt.Errorf("failed to scan token row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
