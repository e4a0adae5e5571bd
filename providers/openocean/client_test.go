package openocean

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"

	"github.com/swapsight/swapsight/models"
	"github.com/swapsight/swapsight/providers"
)

var (
	weth = models.Token{Symbol: "WETH", Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", Decimals: 18}
	usdc = models.Token{Symbol: "USDC", Address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", Decimals: 6}
)

func testConfig(baseURL string) Config {
	cfg := DefaultConfig(baseURL)
	cfg.RetryDelay = 0
	cfg.ProbeInterval = 0
	return cfg
}

func TestProbeRouteSupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/137/routes", r.URL.Path)
		assert.Equal(t, weth.Address, r.URL.Query().Get("inTokenAddress"))
		_, _ = w.Write([]byte(`{
			"code": 200,
			"data": {"dexes": [
				{"dexName": "QuickSwap"},
				{"dexName": "SushiSwap", "simulation": "failed"},
				{"dexName": "Uniswap V3", "simulation": "ok"}
			]}
		}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)
	assert.True(t, res.Supported)
	assert.Equal(t, 3, len(res.Venues))
	assert.Equal(t, models.VenueFullySupported, res.Venues[0].Status)
	assert.Equal(t, models.VenueSimulationFailed, res.Venues[1].Status)
}

func TestProbeRouteUnsupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 40001, "msg": "no route"}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)
	assert.False(t, res.Supported)
}

func TestProbeRouteEmptyDexList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 200, "data": {"dexes": []}}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)
	assert.False(t, res.Supported)
}

func TestProbeSlippageExact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/137/quote", r.URL.Path)
		// $1000 at $2 with 18 decimals -> 500e18 units in.
		assert.Equal(t, "500000000000000000000", r.URL.Query().Get("amount"))
		// Out: $990 worth of a $4 token with 6 decimals -> 247.5e6 units.
		_, _ = w.Write([]byte(`{"code": 200, "data": {"outAmount": "247500000"}}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.ProbeSlippage(context.Background(), weth, usdc, 1000,
		decimal.NewFromInt(2), decimal.NewFromInt(4))
	assert.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, "1", res.Percent.String())
}

func TestProbeSlippageNoQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 200, "data": {}}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.ProbeSlippage(context.Background(), weth, usdc, 1000,
		decimal.NewFromInt(2), decimal.NewFromInt(4))
	assert.NoError(t, err)
	assert.False(t, res.Available)
}

func TestProbeSlippageMissingPriceSkipsUpstream(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.ProbeSlippage(context.Background(), weth, usdc, 1000,
		decimal.Zero, decimal.NewFromInt(4))
	assert.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, int32(0), calls.Load())
}

func TestTransientRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"code": 200, "data": {"dexes": [{"dexName": "QuickSwap"}]}}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)
	assert.True(t, res.Supported)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RetryAttempts = 3
	c := New(cfg)

	_, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBudgetExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 200, "data": {"dexes": [{"dexName": "QuickSwap"}]}}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RequestCeiling = 1
	c := New(cfg)

	_, err := c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)

	_, err = c.ProbeRoute(context.Background(), weth, usdc)
	assert.True(t, err == providers.ErrBudgetExhausted)

	// A reset budget allows probing again.
	c.ResetBudget()
	_, err = c.ProbeRoute(context.Background(), weth, usdc)
	assert.NoError(t, err)
}
