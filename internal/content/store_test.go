package content_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galtspace/geo-explorer/internal/adapter"
	"github.com/galtspace/geo-explorer/internal/content"
	"github.com/galtspace/geo-explorer/internal/logger"
	"github.com/galtspace/geo-explorer/internal/mocks"
	"github.com/galtspace/geo-explorer/internal/ratelimit"
)

const testCID = "QmaCiXUmSrP16Gz8Jdzq6AJESY1EAANmmwha15uR3c1bsS"

func TestMain(m *testing.M) {
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

func newTestStore(t *testing.T, cacheSize int, gateways ...string) (content.Store, *mocks.MockHTTPClient) {
	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	store, err := content.NewStore(httpClient, content.Config{IPFSGateways: gateways, CacheSize: cacheSize})
	require.NoError(t, err)
	return store, httpClient
}

func TestStore_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes the document of the first gateway that has it", func(t *testing.T) {
		store, httpClient := newTestStore(t, 0, "https://a.example/", "https://b.example")
		gomock.InOrder(
			httpClient.EXPECT().GetBytes(ctx, "https://a.example/ipfs/"+testCID).
				Return(nil, &adapter.StatusError{StatusCode: 404}),
			httpClient.EXPECT().GetBytes(ctx, "https://b.example/ipfs/"+testCID).
				Return([]byte(`{"details":{"type":"land"}}`), nil),
		)

		doc, err := store.Resolve(ctx, "ipfs://"+testCID)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"details": map[string]any{"type": "land"}}, doc)
	})

	t.Run("content unknown to every gateway is absent", func(t *testing.T) {
		store, httpClient := newTestStore(t, 0, "https://a.example")
		httpClient.EXPECT().GetBytes(ctx, gomock.Any()).Return(nil, &adapter.StatusError{StatusCode: 404})

		doc, err := store.Resolve(ctx, testCID)
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("transport errors are reported", func(t *testing.T) {
		store, httpClient := newTestStore(t, 0, "https://a.example")
		httpClient.EXPECT().GetBytes(ctx, gomock.Any()).Return(nil, errors.New("connection refused"))

		_, err := store.Resolve(ctx, testCID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("malformed documents are reported", func(t *testing.T) {
		store, httpClient := newTestStore(t, 0, "https://a.example")
		httpClient.EXPECT().GetBytes(ctx, gomock.Any()).Return([]byte("not json"), nil)

		_, err := store.Resolve(ctx, testCID)
		require.Error(t, err)
	})

	t.Run("links that are not hashes are never fetched", func(t *testing.T) {
		store, _ := newTestStore(t, 0)
		doc, err := store.Resolve(ctx, "https://example.com/data.json")
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("resolved documents are cached", func(t *testing.T) {
		store, httpClient := newTestStore(t, 8, "https://a.example")
		httpClient.EXPECT().GetBytes(ctx, gomock.Any()).Return([]byte(`{"name":"x"}`), nil).Times(1)

		for range 3 {
			doc, err := store.Resolve(ctx, testCID)
			require.NoError(t, err)
			assert.Equal(t, "x", doc["name"])
		}
	})
}

func TestStore_GatewayThrottling(t *testing.T) {
	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	limiter, err := ratelimit.NewLimiter(ratelimit.Config{RequestsPerSecond: 0.01, Burst: 1})
	require.NoError(t, err)
	store, err := content.NewStore(httpClient, content.Config{
		IPFSGateways: []string{"https://a.example"},
		Limiter:      limiter,
	})
	require.NoError(t, err)

	httpClient.EXPECT().GetBytes(gomock.Any(), gomock.Any()).Return([]byte(`{"name":"x"}`), nil).Times(1)
	_, err = store.Resolve(context.Background(), testCID)
	require.NoError(t, err)

	// the gateway budget is spent, the next fetch gives up at the deadline without a request
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = store.ResolveText(ctx, testCID)
	assert.Error(t, err)
}

func TestStore_LimiterPerGateway(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	limiter := mocks.NewMockRateLimiter(ctrl)
	store, err := content.NewStore(httpClient, content.Config{
		IPFSGateways: []string{"https://a.example", "https://b.example"},
		Limiter:      limiter,
	})
	require.NoError(t, err)

	t.Run("each gateway is throttled under its own name", func(t *testing.T) {
		gomock.InOrder(
			limiter.EXPECT().Wait(ctx, "https://a.example").Return(nil),
			httpClient.EXPECT().GetBytes(ctx, "https://a.example/ipfs/"+testCID).
				Return(nil, &adapter.StatusError{StatusCode: 404}),
			limiter.EXPECT().Wait(ctx, "https://b.example").Return(nil),
			httpClient.EXPECT().GetBytes(ctx, "https://b.example/ipfs/"+testCID).Return([]byte("text"), nil),
		)
		text, err := store.ResolveText(ctx, testCID)
		require.NoError(t, err)
		assert.Equal(t, "text", text)
	})

	t.Run("a refused wait stops the fetch", func(t *testing.T) {
		limiter.EXPECT().Wait(ctx, "https://a.example").Return(context.DeadlineExceeded)
		_, err := store.ResolveText(ctx, testCID)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestStore_ResolveText(t *testing.T) {
	ctx := context.Background()
	store, httpClient := newTestStore(t, 0)
	httpClient.EXPECT().GetBytes(ctx, "https://ipfs.io/ipfs/"+testCID).Return([]byte("Rule text"), nil)

	text, err := store.ResolveText(ctx, "https://gateway.example/ipfs/"+testCID)
	require.NoError(t, err)
	assert.Equal(t, "Rule text", text)
}

func TestIsContentHash(t *testing.T) {
	tests := []struct {
		link     string
		expected bool
	}{
		{testCID, true},
		{"ipfs://" + testCID, true},
		{"https://ipfs.io/ipfs/" + testCID + "/details.json", true},
		{"bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi", true},
		{"Qm123", false},
		{"", false},
		{"https://example.com/data.json", false},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			assert.Equal(t, tt.expected, content.IsContentHash(tt.link))
		})
	}
}

func TestLangValue(t *testing.T) {
	assert.Equal(t, "plain", content.LangValue("plain"))
	assert.Equal(t, "", content.LangValue(nil))
	assert.Equal(t, "hello", content.LangValue(map[string]any{"lang": true, "en": "hello", "ru": "privet"}))
	assert.Equal(t, "privet", content.LangValue(map[string]any{"lang": true, "ru": "privet"}))
	assert.Equal(t, "", content.LangValue(map[string]any{"en": "hello"}))
}

func TestHashFromBytes32(t *testing.T) {
	digest := "0xe3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	assert.Equal(t, "QmdfTbBqBPQ7VNxZEYEj14VmRuZBkqFbiwReogJgS1zR1n", content.HashFromBytes32(digest))
	assert.True(t, content.IsContentHash(content.HashFromBytes32(digest)))

	assert.Equal(t, "", content.HashFromBytes32("0x"+strings.Repeat("0", 64)))
	assert.Equal(t, "", content.HashFromBytes32("0x1234"))
	assert.Equal(t, "", content.HashFromBytes32("not hex"))
}
