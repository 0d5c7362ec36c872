package chain

import (
	"context"

	"github.com/galtspace/geo-explorer/internal/domain"
)

// Callback receives each live event of a subscription in ledger order
type Callback func(ctx context.Context, event domain.Event) error

// Filter narrows historical event queries
type Filter struct {
	// Addresses restricts the emitting contracts. Empty means every contract bound to the event type.
	Addresses []string
	// ToBlock is the last block to scan. Zero means the current head.
	ToBlock uint64
}

// Subscription is a live event feed
//
//go:generate mockgen -source=chain.go -destination=../mocks/chain_client.go -package=mocks -mock_names=Client=MockChainClient,Subscription=MockSubscription
type Subscription interface {
	// Err delivers the error that terminated the subscription; it is closed on Unsubscribe
	Err() <-chan error
	Unsubscribe()
}

// Client reads and streams contract events
type Client interface {
	// GetEventsFromBlock returns every event of t emitted at or after from, sorted by block then log index
	GetEventsFromBlock(ctx context.Context, t domain.EventType, from uint64, filter *Filter) ([]domain.Event, error)

	// SubscribeForNewEvents streams events of t emitted at or after from to cb
	SubscribeForNewEvents(ctx context.Context, t domain.EventType, from uint64, cb Callback) (Subscription, error)

	// GetCurrentBlock returns the head block number
	GetCurrentBlock(ctx context.Context) (uint64, error)

	Close()
}
