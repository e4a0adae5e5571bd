package providers

import (
	"context"
	"testing"
	"time"

	"github.com/zeebo/assert"
)

func TestBudgetCeiling(t *testing.T) {
	b := NewBudget(3)

	assert.NoError(t, b.Consume())
	assert.NoError(t, b.Consume())
	assert.NoError(t, b.Consume())
	assert.Equal(t, 3, b.Used())

	err := b.Consume()
	assert.True(t, err == ErrBudgetExhausted)
	assert.Equal(t, 3, b.Used())
}

func TestBudgetReset(t *testing.T) {
	b := NewBudget(1)
	assert.NoError(t, b.Consume())
	assert.Error(t, b.Consume())

	b.Reset()
	assert.Equal(t, 0, b.Used())
	assert.NoError(t, b.Consume())
}

func TestBudgetUnlimited(t *testing.T) {
	b := NewBudget(0)
	for i := 0; i < 1000; i++ {
		assert.NoError(t, b.Consume())
	}
}

func TestSleepCtxCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SleepCtx(ctx, time.Minute)
	assert.True(t, err == context.Canceled)
}

func TestSleepCtxZero(t *testing.T) {
	assert.NoError(t, SleepCtx(context.Background(), 0))
}
