package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/galtspace/geo-explorer/internal/chain"
	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/logger"
)

// subscription feeds the logs of one event type to a callback.
// Log subscriptions start at the node head, so the range between from and the head is
// first read with a filter query, then live logs not after the last delivered one are skipped.
type subscription struct {
	errc     chan error
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
}

func (s *subscription) Err() <-chan error {
	return s.errc
}

// Unsubscribe stops delivery and waits for the running callback to return
func (s *subscription) Unsubscribe() {
	s.quitOnce.Do(func() { close(s.quit) })
	<-s.done
}

// position is the ledger position of the last delivered log
type position struct {
	block uint64
	index uint
	set   bool
}

func (p *position) after(vLog types.Log) bool {
	if !p.set {
		return true
	}
	if vLog.BlockNumber != p.block {
		return vLog.BlockNumber > p.block
	}
	return vLog.Index > p.index
}

func (p *position) advance(vLog types.Log) {
	p.block, p.index, p.set = vLog.BlockNumber, vLog.Index, true
}

// SubscribeForNewEvents streams events of t emitted at or after from to cb
func (c *ethereumClient) SubscribeForNewEvents(ctx context.Context, t domain.EventType, from uint64, cb chain.Callback) (chain.Subscription, error) {
	ev, err := c.contracts.event(t)
	if err != nil {
		return nil, err
	}

	query := c.query(ev, from, nil)
	logs := make(chan types.Log)
	sub, err := c.client.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSubscriptionFailed, t, err)
	}

	s := &subscription{
		errc: make(chan error, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.errc)
		defer sub.Unsubscribe()

		var last position
		deliver := func(vLog types.Log) {
			if !last.after(vLog) {
				return
			}
			last.advance(vLog)

			event, ok := c.decode(ctx, t, ev, vLog)
			if !ok {
				return
			}
			if err := cb(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorCtx(ctx, err,
					zap.String("message", "Error handling live event"),
					zap.String("eventType", string(event.Type)),
					zap.Uint64("blockNumber", event.BlockNumber),
					zap.String("txHash", event.TxHash))
			}
		}

		backlog, err := c.filterLogsWithPagination(ctx, query)
		if err != nil {
			s.errc <- fmt.Errorf("%w: catch up of %s: %v", domain.ErrSubscriptionFailed, t, err)
			return
		}
		sort.SliceStable(backlog, func(i, j int) bool {
			if backlog[i].BlockNumber != backlog[j].BlockNumber {
				return backlog[i].BlockNumber < backlog[j].BlockNumber
			}
			return backlog[i].Index < backlog[j].Index
		})
		for _, vLog := range backlog {
			select {
			case <-s.quit:
				return
			case <-ctx.Done():
				return
			default:
			}
			deliver(vLog)
		}

		logger.InfoCtx(ctx, "Subscribed to live events",
			zap.String("eventType", string(t)),
			zap.Uint64("fromBlock", from),
			zap.Int("caughtUp", len(backlog)))

		for {
			select {
			case <-s.quit:
				return
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err == nil {
					err = errors.New("subscription closed")
				}
				s.errc <- fmt.Errorf("%w: %s: %v", domain.ErrSubscriptionFailed, t, err)
				return
			case vLog := <-logs:
				deliver(vLog)
			}
		}
	}()

	return s, nil
}
