// Package openocean implements the connections-style provider client: one
// stateless HTTP request per probe, no session protocol.
package openocean

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/swapsight/swapsight/models"
	"github.com/swapsight/swapsight/pricing"
	"github.com/swapsight/swapsight/providers"
	"github.com/swapsight/swapsight/ratelimit"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "openocean").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "openocean").Logger()
}

// Config controls the OpenOcean client behavior.
type Config struct {
	BaseURL string
	ChainID int
	// RequestCeiling is the hard per-run request limit. <= 0 disables it.
	RequestCeiling int
	// RetryAttempts bounds transient retries per probe.
	RetryAttempts int
	// RetryDelay is the fixed delay between attempts.
	RetryDelay time.Duration
	// ProbeInterval is the mandatory pause between requests.
	ProbeInterval time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns the client defaults for the given API base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		ChainID:        137,
		RequestCeiling: 800,
		RetryAttempts:  4,
		RetryDelay:     2 * time.Second,
		ProbeInterval:  time.Second,
		Timeout:        15 * time.Second,
	}
}

// Client talks to the OpenOcean aggregator API.
type Client struct {
	httpClient *http.Client
	cfg        Config
	budget     *providers.Budget
	pacer      *ratelimit.Pacer
}

var _ providers.Client = (*Client)(nil)

// New creates an OpenOcean client.
func New(cfg Config) *Client {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 4
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		budget:     providers.NewBudget(cfg.RequestCeiling),
		pacer:      ratelimit.NewPacer(cfg.ProbeInterval),
	}
}

// Provider implements providers.Client.
func (c *Client) Provider() models.Provider {
	return models.ProviderOpenOcean
}

// ResetBudget implements providers.Client.
func (c *Client) ResetBudget() {
	c.budget.Reset()
}

// ProbeRoute queries the dex connections endpoint for the pair.
func (c *Client) ProbeRoute(ctx context.Context, from, to models.Token) (providers.RouteResult, error) {
	path := fmt.Sprintf(
		"/v4/%d/routes?inTokenAddress=%s&outTokenAddress=%s",
		c.cfg.ChainID,
		url.QueryEscape(from.Address),
		url.QueryEscape(to.Address),
	)

	body, err := c.doRequest(ctx, path)
	if err != nil {
		return providers.RouteResult{}, err
	}

	var resp routesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return providers.RouteResult{}, fmt.Errorf("failed to parse routes response: %w", err)
	}

	if resp.Code != codeOK || len(resp.Data.Dexes) == 0 {
		// Explicit "no route" from the provider is an absence, not an error.
		return providers.RouteResult{Supported: false}, nil
	}

	venues := make([]models.Venue, 0, len(resp.Data.Dexes))
	for _, dex := range resp.Data.Dexes {
		if dex.DexName == "" {
			continue
		}
		status := models.VenueFullySupported
		if dex.Simulation == "failed" {
			status = models.VenueSimulationFailed
		}
		venues = append(venues, models.Venue{Name: dex.DexName, Status: status})
	}
	if len(venues) == 0 {
		return providers.RouteResult{Supported: false}, nil
	}
	return providers.RouteResult{Supported: true, Venues: venues}, nil
}

// ProbeSlippage quotes a swap worth usdAmount of the source token and
// derives the percentage slippage from the USD values of both legs.
func (c *Client) ProbeSlippage(
	ctx context.Context,
	from, to models.Token,
	usdAmount int64,
	fromPriceUSD, toPriceUSD decimal.Decimal,
) (providers.SlippageResult, error) {
	inAmount, err := pricing.UsdToBaseUnits(decimal.NewFromInt(usdAmount), fromPriceUSD, from.Decimals)
	if err != nil {
		return providers.Unavailable("source price unavailable"), nil
	}

	path := fmt.Sprintf(
		"/v4/%d/quote?inTokenAddress=%s&outTokenAddress=%s&amount=%s",
		c.cfg.ChainID,
		url.QueryEscape(from.Address),
		url.QueryEscape(to.Address),
		url.QueryEscape(inAmount.String()),
	)

	body, err := c.doRequest(ctx, path)
	if err != nil {
		return providers.SlippageResult{}, err
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return providers.SlippageResult{}, fmt.Errorf("failed to parse quote response: %w", err)
	}

	if resp.Code != codeOK || resp.Data.OutAmount == "" {
		return providers.Unavailable("no quote for pair"), nil
	}

	outAmount, err := decimal.NewFromString(resp.Data.OutAmount)
	if err != nil {
		return providers.SlippageResult{}, fmt.Errorf("invalid outAmount %q: %w", resp.Data.OutAmount, err)
	}

	fromUSD := pricing.BaseUnitsToUsd(inAmount, fromPriceUSD, from.Decimals)
	toUSD := pricing.BaseUnitsToUsd(outAmount, toPriceUSD, to.Decimals)

	pct, ok := pricing.SlippagePercent(fromUSD, toUSD)
	if !ok {
		return providers.Unavailable("zero source value"), nil
	}
	return providers.SlippageResult{Available: true, Percent: pct}, nil
}

// doRequest performs a GET with the per-run budget, pacing and the bounded
// fixed-delay retry policy. Every attempt consumes one budget slot.
func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			if err := providers.SleepCtx(ctx, c.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
		if err := c.budget.Consume(); err != nil {
			return nil, err
		}
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.get(ctx, c.cfg.BaseURL+path)
		if err == nil {
			return body, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Str("path", path).Msg("request failed")
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.cfg.RetryAttempts, lastErr)
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
