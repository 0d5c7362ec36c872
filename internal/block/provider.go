package block

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/galtspace/geo-explorer/internal/adapter"
	"github.com/galtspace/geo-explorer/internal/logger"
)

// DefaultTimestampCacheSize is used when Config.TimestampCacheSize is not set
const DefaultTimestampCacheSize = 4096

// head is the last fetched chain head
type head struct {
	Number    uint64
	FetchedAt time.Time
}

// Provider gives cached access to the chain head and block timestamps.
// Handlers ask for timestamps of many events in the same block and the API asks for the
// head on every request, so both are cached.
//
//go:generate mockgen -source=provider.go -destination=../mocks/block_provider.go -package=mocks -mock_names=Provider=MockBlockProvider,Fetcher=MockBlockFetcher
type Provider interface {
	// GetLatestBlock returns the head block number, from cache while it is younger than TTL
	GetLatestBlock(ctx context.Context) (uint64, error)

	// Peek returns the last known head without calling the chain
	Peek() (uint64, bool)

	// Observe records a block seen in a live event. The head never moves backwards.
	Observe(number uint64)

	// GetBlockTimestamp returns the timestamp of a block
	GetBlockTimestamp(ctx context.Context, number uint64) (time.Time, error)
}

// Fetcher reads block information from the chain
type Fetcher interface {
	FetchLatestBlock(ctx context.Context) (uint64, error)
	FetchBlockTimestamp(ctx context.Context, number uint64) (time.Time, error)
}

// Config holds configuration for the Provider
type Config struct {
	// TTL is how long to cache the head
	TTL time.Duration

	// StaleWindow is how long a cached head may be served when fetching fails
	StaleWindow time.Duration

	// TimestampCacheSize bounds the number of cached block timestamps
	TimestampCacheSize int
}

type provider struct {
	fetcher Fetcher
	config  Config
	clock   adapter.Clock
	group   singleflight.Group

	mu         sync.RWMutex
	head       *head
	timestamps *lru.Cache[uint64, time.Time]
}

// NewProvider creates a caching Provider
func NewProvider(fetcher Fetcher, config Config, clock adapter.Clock) (Provider, error) {
	size := config.TimestampCacheSize
	if size <= 0 {
		size = DefaultTimestampCacheSize
	}
	timestamps, err := lru.New[uint64, time.Time](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create timestamp cache: %w", err)
	}

	return &provider{
		fetcher:    fetcher,
		config:     config,
		clock:      clock,
		timestamps: timestamps,
	}, nil
}

// GetLatestBlock returns the latest block number, using cache if valid
func (p *provider) GetLatestBlock(ctx context.Context) (uint64, error) {
	p.mu.RLock()
	cached := p.head
	p.mu.RUnlock()

	now := p.clock.Now()

	if cached != nil && now.Sub(cached.FetchedAt) < p.config.TTL {
		logger.DebugCtx(ctx, "Using cached block number", zap.Uint64("block_number", cached.Number))
		return cached.Number, nil
	}

	// concurrent callers share one fetch
	v, err, _ := p.group.Do("head", func() (interface{}, error) {
		return p.fetcher.FetchLatestBlock(ctx)
	})
	if err != nil {
		if cached != nil && now.Sub(cached.FetchedAt) < p.config.StaleWindow {
			logger.WarnCtx(ctx, "Using stale block number", zap.Uint64("block_number", cached.Number), zap.Error(err))
			return cached.Number, nil
		}
		return 0, fmt.Errorf("failed to fetch latest block and no valid cache available: %w", err)
	}
	number := v.(uint64)

	p.mu.Lock()
	if p.head == nil || number >= p.head.Number {
		p.head = &head{Number: number, FetchedAt: now}
	} else {
		// a lagging node answered; keep the higher head but refresh its age
		p.head = &head{Number: p.head.Number, FetchedAt: now}
		number = p.head.Number
	}
	p.mu.Unlock()

	return number, nil
}

func (p *provider) Peek() (uint64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.head == nil {
		return 0, false
	}
	return p.head.Number, true
}

func (p *provider) Observe(number uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.head == nil {
		p.head = &head{Number: number}
		return
	}
	if number > p.head.Number {
		p.head = &head{Number: number, FetchedAt: p.head.FetchedAt}
	}
}

// GetBlockTimestamp returns the timestamp for a block. Timestamps of mined blocks never change,
// so cached entries only leave the cache by eviction.
func (p *provider) GetBlockTimestamp(ctx context.Context, number uint64) (time.Time, error) {
	if ts, ok := p.timestamps.Get(number); ok {
		return ts, nil
	}

	v, err, _ := p.group.Do("ts:"+strconv.FormatUint(number, 10), func() (interface{}, error) {
		return p.fetcher.FetchBlockTimestamp(ctx, number)
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to fetch timestamp of block %d: %w", number, err)
	}
	ts := v.(time.Time)
	p.timestamps.Add(number, ts)

	logger.DebugCtx(ctx, "Fetched block timestamp", zap.Uint64("block_number", number), zap.Time("timestamp", ts))
	return ts, nil
}
