// Package via implements the order-based provider client. Every probe runs
// a three-step protocol against the Via API: create or reuse an order
// handle, update it with the pair and amount, then poll for venue quotes
// with a bounded wait. Order handles are reused across a batch of pairs and
// rotated when the batch threshold is reached or the upstream reports the
// order as completed.
package via

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
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
	log = zerolog.New(out).With().Timestamp().Str("component", "via").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "via").Logger()
}

// Config controls the Via client behavior.
type Config struct {
	BaseURL string
	ChainID int
	// RequestCeiling is the hard per-run request limit. <= 0 disables it.
	RequestCeiling int
	// RetryAttempts bounds transient retries per protocol step.
	RetryAttempts int
	// RetryDelay is the fixed delay between attempts.
	RetryDelay time.Duration
	// ProbeInterval is the mandatory pause between requests.
	ProbeInterval time.Duration
	// SessionBatchSize is the soft rotation threshold: pairs served per order.
	SessionBatchSize int
	// QuotePollAttempts bounds the quote polling loop per probe.
	QuotePollAttempts int
	// QuotePollWait is the server-side wait hint and the pause between polls.
	QuotePollWait time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns the client defaults for the given API base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:           baseURL,
		ChainID:           137,
		RequestCeiling:    800,
		RetryAttempts:     4,
		RetryDelay:        2 * time.Second,
		ProbeInterval:     time.Second,
		SessionBatchSize:  25,
		QuotePollAttempts: 5,
		QuotePollWait:     2 * time.Second,
		Timeout:           20 * time.Second,
	}
}

// Client talks to the Via order API.
type Client struct {
	httpClient *http.Client
	cfg        Config
	budget     *providers.Budget
	session    *Session
	pacer      *ratelimit.Pacer
}

var _ providers.Client = (*Client)(nil)

// New creates a Via client.
func New(cfg Config) *Client {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 4
	}
	if cfg.QuotePollAttempts <= 0 {
		cfg.QuotePollAttempts = 5
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		budget:     providers.NewBudget(cfg.RequestCeiling),
		session:    NewSession(cfg.SessionBatchSize),
		pacer:      ratelimit.NewPacer(cfg.ProbeInterval),
	}
}

// Provider implements providers.Client.
func (c *Client) Provider() models.Provider {
	return models.ProviderVia
}

// ResetBudget starts a fresh budget and discards any leftover order handle
// from a previous run.
func (c *Client) ResetBudget() {
	c.budget.Reset()
	c.session = NewSession(c.cfg.SessionBatchSize)
}

// ProbeRoute runs the order protocol with a nominal one-token amount and
// maps the returned venue quotes to route venues.
func (c *Client) ProbeRoute(ctx context.Context, from, to models.Token) (providers.RouteResult, error) {
	nominal := decimal.New(1, int32(from.Decimals))

	quotes, err := c.fetchQuotes(ctx, from.Address, to.Address, nominal.String())
	if err != nil {
		return providers.RouteResult{}, err
	}

	venues := make([]models.Venue, 0, len(quotes))
	for _, q := range quotes {
		if q.Venue == "" {
			continue
		}
		status := models.VenueFullySupported
		if q.SimulationFailed || q.AmountOut == "" {
			status = models.VenueSimulationFailed
		}
		venues = append(venues, models.Venue{Name: q.Venue, Status: status})
	}
	if len(venues) == 0 {
		return providers.RouteResult{Supported: false}, nil
	}
	return providers.RouteResult{Supported: true, Venues: venues}, nil
}

// ProbeSlippage runs the order protocol for the given USD notional and
// takes the best venue quote to compute the percentage slippage.
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

	quotes, err := c.fetchQuotes(ctx, from.Address, to.Address, inAmount.String())
	if err != nil {
		return providers.SlippageResult{}, err
	}

	best, ok := bestAmountOut(quotes)
	if !ok {
		return providers.Unavailable("no venue produced a quote"), nil
	}

	fromUSD := pricing.BaseUnitsToUsd(inAmount, fromPriceUSD, from.Decimals)
	toUSD := pricing.BaseUnitsToUsd(best, toPriceUSD, to.Decimals)

	pct, ok := pricing.SlippagePercent(fromUSD, toUSD)
	if !ok {
		return providers.Unavailable("zero source value"), nil
	}
	return providers.SlippageResult{Available: true, Percent: pct}, nil
}

// bestAmountOut picks the highest output among venues that simulated.
func bestAmountOut(quotes []venueQuote) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for _, q := range quotes {
		if q.SimulationFailed || q.AmountOut == "" {
			continue
		}
		amount, err := decimal.NewFromString(q.AmountOut)
		if err != nil {
			log.Warn().Str("venue", q.Venue).Str("amountOut", q.AmountOut).Msg("unparseable venue quote, skipping")
			continue
		}
		if !found || amount.GreaterThan(best) {
			best = amount
			found = true
		}
	}
	return best, found
}

// fetchQuotes drives the order session through one probe: rotate the order
// if needed, update it with the pair parameters, and poll for quotes. An
// expiry signal rotates the session and retries the probe once without
// consuming a transient retry attempt.
func (c *Client) fetchQuotes(ctx context.Context, fromAddr, toAddr, amount string) ([]venueQuote, error) {
	const maxRotations = 1
	rotations := 0

	for {
		if c.session.NeedsRotation() {
			handle, err := c.createOrder(ctx)
			if err != nil {
				return nil, err
			}
			c.session.Activate(handle)
			log.Debug().Str("order", handle).Msg("order session created")
		}
		handle, _ := c.session.Handle()

		err := c.updateOrder(ctx, handle, fromAddr, toAddr, amount)
		if err == nil {
			var quotes []venueQuote
			quotes, err = c.pollQuotes(ctx, handle)
			if err == nil {
				c.session.MarkServed()
				return quotes, nil
			}
		}

		if errors.Is(err, providers.ErrSessionExpired) && rotations < maxRotations {
			// Expiry does not count against the retry bound.
			rotations++
			c.session.Expire()
			log.Info().Str("order", handle).Msg("order completed upstream, rotating session")
			continue
		}
		return nil, err
	}
}

func (c *Client) createOrder(ctx context.Context) (string, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/v1/orders", nil)
	if err != nil {
		return "", err
	}

	var resp createOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse create order response: %w", err)
	}
	if resp.OrderID == "" {
		return "", fmt.Errorf("create order returned no order id")
	}
	return resp.OrderID, nil
}

func (c *Client) updateOrder(ctx context.Context, handle, fromAddr, toAddr, amount string) error {
	payload := updateOrderRequest{
		FromTokenAddress: fromAddr,
		ToTokenAddress:   toAddr,
		Amount:           amount,
		ChainID:          c.cfg.ChainID,
	}
	_, err := c.doRequest(ctx, http.MethodPost, "/v1/orders/"+handle+"/route", payload)
	return err
}

// pollQuotes waits for quotes with a bounded number of polls. Exhausting
// the polls without a ready response is "no quotes", not an error.
func (c *Client) pollQuotes(ctx context.Context, handle string) ([]venueQuote, error) {
	path := fmt.Sprintf("/v1/orders/%s/quotes?waitMs=%d", handle, c.cfg.QuotePollWait.Milliseconds())

	for poll := 1; poll <= c.cfg.QuotePollAttempts; poll++ {
		if poll > 1 {
			if err := providers.SleepCtx(ctx, c.cfg.QuotePollWait); err != nil {
				return nil, err
			}
		}

		body, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		var resp quotesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse quotes response: %w", err)
		}
		if resp.Error != nil && resp.Error.Code == errOrderCompleted {
			return nil, providers.ErrSessionExpired
		}
		if resp.Status == statusReady {
			return resp.Quotes, nil
		}
	}

	log.Debug().Str("order", handle).Msg("quotes not ready after poll bound")
	return nil, nil
}

// doRequest performs one protocol step with the per-run budget, pacing and
// the bounded fixed-delay retry policy. The ORDER_COMPLETED signal is
// surfaced as ErrSessionExpired immediately instead of being retried here.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
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

		body, err := c.do(ctx, method, c.cfg.BaseURL+path, payload)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, providers.ErrSessionExpired) {
			return nil, err
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Str("path", path).Msg("request failed")
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.cfg.RetryAttempts, lastErr)
}

func (c *Client) do(ctx context.Context, method, fullURL string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
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

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusGone || isOrderCompletedBody(body):
		return nil, providers.ErrSessionExpired
	default:
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
}

// isOrderCompletedBody checks an error body for the dedicated expiry code.
func isOrderCompletedBody(body []byte) bool {
	var resp struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false
	}
	return resp.Error != nil && resp.Error.Code == errOrderCompleted
}
