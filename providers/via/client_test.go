package via

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"

	"github.com/swapsight/swapsight/models"
)

var (
	weth = models.Token{Symbol: "WETH", Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", Decimals: 18}
	usdc = models.Token{Symbol: "USDC", Address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", Decimals: 6}
)

// orderServer fakes the Via order API: create, update with pair params,
// poll quotes. Behavior is adjusted per test through the fields below.
type orderServer struct {
	mu           sync.Mutex
	orderSeq     int
	creates      int
	updates      int
	polls        int
	quotes       []venueQuote
	completedIDs map[string]bool
	pendingPolls int
}

func newOrderServer(quotes []venueQuote) *orderServer {
	return &orderServer{quotes: quotes, completedIDs: map[string]bool{}}
}

func (s *orderServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/orders":
			s.creates++
			s.orderSeq++
			_ = json.NewEncoder(w).Encode(createOrderResponse{OrderID: fmt.Sprintf("order-%d", s.orderSeq)})

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/route"):
			s.updates++
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/orders/"), "/route")
			if s.completedIDs[id] {
				w.WriteHeader(http.StatusGone)
				return
			}
			var req updateOrderRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.FromTokenAddress == "" || req.ToTokenAddress == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)

		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/quotes"):
			s.polls++
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/orders/"), "/quotes")
			if s.completedIDs[id] {
				_ = json.NewEncoder(w).Encode(quotesResponse{
					Error: &apiError{Code: errOrderCompleted, Message: "order already completed"},
				})
				return
			}
			if s.pendingPolls > 0 {
				s.pendingPolls--
				_ = json.NewEncoder(w).Encode(quotesResponse{Status: "pending"})
				return
			}
			_ = json.NewEncoder(w).Encode(quotesResponse{Status: statusReady, Quotes: s.quotes})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig(baseURL)
	cfg.RetryDelay = 0
	cfg.ProbeInterval = 0
	cfg.QuotePollWait = 0
	return cfg
}

func TestProbeRouteFullProtocol(t *testing.T) {
	fake := newOrderServer([]venueQuote{
		{Venue: "QuickSwap", AmountOut: "990000000"},
		{Venue: "SushiSwap", SimulationFailed: true},
	})
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)
	assert.True(t, res.Supported)
	assert.Equal(t, 2, len(res.Venues))
	assert.Equal(t, models.VenueFullySupported, res.Venues[0].Status)
	assert.Equal(t, models.VenueSimulationFailed, res.Venues[1].Status)

	assert.Equal(t, 1, fake.creates)
	assert.Equal(t, 1, fake.updates)
}

func TestProbeRouteNoVenues(t *testing.T) {
	fake := newOrderServer(nil)
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)
	assert.False(t, res.Supported)
}

func TestSessionReusedAcrossProbes(t *testing.T) {
	fake := newOrderServer([]venueQuote{{Venue: "QuickSwap", AmountOut: "1"}})
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(testConfig(srv.URL))
	for i := 0; i < 5; i++ {
		_, err := c.ProbeRoute(context.Background(), weth, usdc)
		assert.NoError(t, err)
	}

	// One order serves the whole batch.
	assert.Equal(t, 1, fake.creates)
	assert.Equal(t, 5, fake.updates)
}

func TestSessionRotatesOnBatchThreshold(t *testing.T) {
	fake := newOrderServer([]venueQuote{{Venue: "QuickSwap", AmountOut: "1"}})
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.SessionBatchSize = 2
	c := New(cfg)

	for i := 0; i < 5; i++ {
		_, err := c.ProbeRoute(context.Background(), weth, usdc)
		assert.NoError(t, err)
	}

	// 5 probes at 2 per order -> orders 1,1,2,2,3.
	assert.Equal(t, 3, fake.creates)
}

func TestOrderCompletedRotatesOnce(t *testing.T) {
	fake := newOrderServer([]venueQuote{{Venue: "QuickSwap", AmountOut: "1"}})
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(testConfig(srv.URL))

	// First probe establishes order-1.
	_, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)
	assert.Equal(t, 1, fake.creates)

	// Upstream completes the order behind our back.
	fake.mu.Lock()
	fake.completedIDs["order-1"] = true
	fake.mu.Unlock()

	// The next probe hits the expiry signal, recreates exactly once, and
	// retries the same step rather than skipping it.
	res, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)
	assert.True(t, res.Supported)
	assert.Equal(t, 2, fake.creates)
}

func TestOrderCompletedTwiceFailsProbe(t *testing.T) {
	fake := newOrderServer([]venueQuote{{Venue: "QuickSwap", AmountOut: "1"}})
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)

	// Every order the client creates is immediately completed upstream.
	fake.mu.Lock()
	fake.completedIDs["order-1"] = true
	fake.completedIDs["order-2"] = true
	fake.completedIDs["order-3"] = true
	fake.mu.Unlock()

	_, err = c.ProbeRoute(context.Background(), weth, usdc)
	assert.Error(t, err)
}

func TestPollWaitsForReady(t *testing.T) {
	fake := newOrderServer([]venueQuote{{Venue: "QuickSwap", AmountOut: "1"}})
	fake.pendingPolls = 2
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)
	assert.True(t, res.Supported)
	assert.Equal(t, 3, fake.polls)
}

func TestPollBoundExhausted(t *testing.T) {
	fake := newOrderServer([]venueQuote{{Venue: "QuickSwap", AmountOut: "1"}})
	fake.pendingPolls = 100
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.QuotePollAttempts = 3
	c := New(cfg)

	res, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)
	assert.False(t, res.Supported)
}

func TestProbeSlippagePicksBestVenue(t *testing.T) {
	// $1000 in at $2/18dec; best out is $990 at $4/6dec -> 1.0 percent.
	fake := newOrderServer([]venueQuote{
		{Venue: "QuickSwap", AmountOut: "240000000"},
		{Venue: "Uniswap V3", AmountOut: "247500000"},
		{Venue: "SushiSwap", SimulationFailed: true},
	})
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.ProbeSlippage(context.Background(), weth, usdc, 1000,
		decimal.NewFromInt(2), decimal.NewFromInt(4))
	assert.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, "1", res.Percent.String())
}

func TestProbeSlippageAllVenuesFailed(t *testing.T) {
	fake := newOrderServer([]venueQuote{
		{Venue: "QuickSwap", SimulationFailed: true},
	})
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.ProbeSlippage(context.Background(), weth, usdc, 1000,
		decimal.NewFromInt(2), decimal.NewFromInt(4))
	assert.NoError(t, err)
	assert.False(t, res.Available)
}

func TestResetBudgetDiscardsSession(t *testing.T) {
	fake := newOrderServer([]venueQuote{{Venue: "QuickSwap", AmountOut: "1"}})
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)

	c.ResetBudget()

	_, err = c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)
	assert.Equal(t, 2, fake.creates)
}
