package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/swapsight/swapsight/models"
	"github.com/swapsight/swapsight/providers"
)

func TestSchedulerNextFire(t *testing.T) {
	s := NewScheduler(nil, nil, 3)

	now := time.Date(2026, 8, 26, 1, 30, 0, 0, time.UTC)
	fire := s.nextFire(now)
	assert.Equal(t, time.Date(2026, 8, 26, 3, 0, 0, 0, time.UTC), fire)

	// Already past the hour: next day.
	now = time.Date(2026, 8, 26, 3, 0, 1, 0, time.UTC)
	fire = s.nextFire(now)
	assert.Equal(t, time.Date(2026, 8, 27, 3, 0, 0, 0, time.UTC), fire)

	// Exactly on the hour counts as past.
	now = time.Date(2026, 8, 26, 3, 0, 0, 0, time.UTC)
	fire = s.nextFire(now)
	assert.Equal(t, time.Date(2026, 8, 27, 3, 0, 0, 0, time.UTC), fire)
}

func TestSchedulerStartStop(t *testing.T) {
	store := newFakeStore(tok("USDC", 6), tok("WETH", 18))
	client := newFakeClient(models.ProviderOpenOcean)
	clients := map[models.Provider]providers.Client{models.ProviderOpenOcean: client}
	runner := NewRunner(
		NewRouteFetch(store, store, clients),
		NewSlippageFetch(store, store, store, store, clients),
	)

	s := NewScheduler(runner, models.AllProviders(), 3)
	s.Start(context.Background())
	// double Start is a no-op
	s.Start(context.Background())
	s.Stop()
	// Stop after Stop must not panic or block
	s.Stop()
}

func TestSchedulerRefreshAllOrdering(t *testing.T) {
	store := newFakeStore(tok("USDC", 6), tok("WETH", 18))
	client := newFakeClient(models.ProviderOpenOcean)
	client.routeResults["USDC/WETH"] = supported("QuickSwap")
	clients := map[models.Provider]providers.Client{models.ProviderOpenOcean: client}
	runner := NewRunner(
		NewRouteFetch(store, store, clients),
		NewSlippageFetch(store, store, store, store, clients),
	)

	s := NewScheduler(runner, []models.Provider{models.ProviderOpenOcean}, 3)
	s.refreshAll(context.Background())

	// Routes ran first, so the slippage run derived its pair from the
	// freshly cached route rather than the fallback set.
	assert.True(t, len(store.routes) > 0)
	assert.Equal(t, 1, len(store.slippage))
	assert.Equal(t, models.Pair{From: "USDC", To: "WETH"}, store.slippage[0].Pair)
}
