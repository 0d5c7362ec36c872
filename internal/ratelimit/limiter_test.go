package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galtspace/geo-explorer/internal/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestNewLimiter(t *testing.T) {
	_, err := NewLimiter(Config{RequestsPerSecond: -1})
	assert.Error(t, err)

	l, err := NewLimiter(Config{RequestsPerSecond: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, l.(*limiter).config.Burst)
}

func TestLimiter_Wait(t *testing.T) {
	t.Run("zero rate never blocks", func(t *testing.T) {
		l, err := NewLimiter(Config{})
		require.NoError(t, err)
		for range 100 {
			require.NoError(t, l.Wait(context.Background(), "gateway"))
		}
	})

	t.Run("burst is served immediately", func(t *testing.T) {
		l, err := NewLimiter(Config{RequestsPerSecond: 0.01, Burst: 3})
		require.NoError(t, err)
		for range 3 {
			require.NoError(t, l.Wait(context.Background(), "gateway"))
		}
	})

	t.Run("exhausted host waits until context deadline", func(t *testing.T) {
		l, err := NewLimiter(Config{RequestsPerSecond: 0.01, Burst: 1})
		require.NoError(t, err)
		require.NoError(t, l.Wait(context.Background(), "gateway"))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.Error(t, l.Wait(ctx, "gateway"))
	})

	t.Run("hosts have separate budgets", func(t *testing.T) {
		l, err := NewLimiter(Config{RequestsPerSecond: 0.01, Burst: 1})
		require.NoError(t, err)
		require.NoError(t, l.Wait(context.Background(), "a"))
		require.NoError(t, l.Wait(context.Background(), "b"))
	})

	t.Run("canceled context fails", func(t *testing.T) {
		l, err := NewLimiter(Config{})
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, l.Wait(ctx, "gateway"), context.Canceled)
	})
}
