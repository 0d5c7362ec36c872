package ethereum

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galtspace/geo-explorer/internal/adapter"
	"github.com/galtspace/geo-explorer/internal/block"
)

func TestHeadAndTimestamps_Integration(t *testing.T) {
	rpcURL := os.Getenv("ETHEREUM_RPC_URL")
	if rpcURL == "" {
		t.Skip("Skipping integration test: ETHEREUM_RPC_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	eth, err := adapter.NewEthClientDialer().Dial(ctx, rpcURL)
	require.NoError(t, err)

	client := NewClient(eth, &Contracts{})
	defer client.Close()

	head, err := client.GetCurrentBlock(ctx)
	require.NoError(t, err)
	require.Positive(t, head)

	provider, err := block.NewProvider(NewBlockFetcher(eth), block.Config{}, adapter.NewClock())
	require.NoError(t, err)
	latest, err := provider.GetLatestBlock(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, latest, head)

	ts, err := client.BlockTimestamp(ctx, head)
	require.NoError(t, err)
	cached, err := provider.GetBlockTimestamp(ctx, head)
	require.NoError(t, err)
	assert.Equal(t, ts, cached)
	assert.WithinDuration(t, time.Now(), ts, 24*time.Hour)
}
