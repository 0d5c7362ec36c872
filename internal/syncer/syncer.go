package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/galtspace/geo-explorer/internal/adapter"
	"github.com/galtspace/geo-explorer/internal/chain"
	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/logger"
	"github.com/galtspace/geo-explorer/internal/metrics"
	"github.com/galtspace/geo-explorer/internal/store"
)

// State is the phase the sync engine is in
type State string

const (
	StateIdle         State = "idle"
	StateResyncing    State = "resyncing"
	StateBackfilling  State = "backfilling"
	StateLive         State = "live"
	StateReconnecting State = "reconnecting"
)

const (
	DefaultWorkerPoolSize           = 8
	DefaultReconnectInitialInterval = time.Second
	DefaultReconnectMaxInterval     = time.Minute
)

// ErrSubscriptionClosed is returned when a live feed ends without reporting an error
var ErrSubscriptionClosed = errors.New("subscription closed")

// Handler applies one event to the read model
type Handler interface {
	Handle(ctx context.Context, event domain.Event) error
}

// Config holds the configuration for the sync engine
type Config struct {
	// EventTypes are synced in this order. Empty means every known type.
	EventTypes []domain.EventType
	// DeploymentBlock is the first block the contracts exist at. A checkpoint below it means
	// the store was filled from another deployment and is flushed.
	DeploymentBlock          uint64
	WorkerPoolSize           int
	ReconnectInitialInterval time.Duration
	ReconnectMaxInterval     time.Duration
}

// Syncer keeps the store in step with the ledger
type Syncer interface {
	// Run syncs until ctx is canceled. It fails only when the first start cannot read the
	// checkpoint or the chain head; later failures reconnect with backoff.
	Run(ctx context.Context) error
	// State returns the current phase
	State() State
}

type syncer struct {
	config  Config
	client  chain.Client
	store   store.SyncStore
	handler Handler
	metrics metrics.Recorder
	clock   adapter.Clock

	mu    sync.RWMutex
	state State
}

// NewSyncer creates a sync engine
func NewSyncer(
	cfg Config,
	client chain.Client,
	st store.SyncStore,
	handler Handler,
	recorder metrics.Recorder,
	clock adapter.Clock,
) Syncer {
	if len(cfg.EventTypes) == 0 {
		cfg.EventTypes = domain.AllEventTypes
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = DefaultWorkerPoolSize
	}
	if cfg.ReconnectInitialInterval <= 0 {
		cfg.ReconnectInitialInterval = DefaultReconnectInitialInterval
	}
	if cfg.ReconnectMaxInterval <= 0 {
		cfg.ReconnectMaxInterval = DefaultReconnectMaxInterval
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &syncer{
		config:  cfg,
		client:  client,
		store:   st,
		handler: handler,
		metrics: recorder,
		clock:   clock,
		state:   StateIdle,
	}
}

func (s *syncer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *syncer) setState(ctx context.Context, state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()
	if prev != state {
		logger.InfoCtx(ctx, "Sync state changed", zap.String("from", string(prev)), zap.String("to", string(state)))
	}
}

// Run starts a sync cycle and re-enters it after every transport failure
func (s *syncer) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.ReconnectInitialInterval
	b.MaxInterval = s.config.ReconnectMaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	first := true
	for {
		live, err := s.cycle(ctx)
		if ctx.Err() != nil {
			s.setState(ctx, StateIdle)
			return nil
		}
		if first && !live {
			s.setState(ctx, StateIdle)
			return fmt.Errorf("failed to start sync: %w", err)
		}
		first = false
		if live {
			b.Reset()
		}

		wait := b.NextBackOff()
		s.setState(ctx, StateReconnecting)
		logger.WarnCtx(ctx, "Sync cycle ended, reconnecting", zap.Error(err), zap.Duration("backoff", wait))

		select {
		case <-ctx.Done():
			s.setState(ctx, StateIdle)
			return nil
		case <-s.clock.After(wait):
		}
	}
}

// cycle runs one start: resync check, live subscriptions, backfill, then waits on the live feed.
// It reports whether the cycle got as far as subscribing.
func (s *syncer) cycle(ctx context.Context) (bool, error) {
	checkpoint, hasCheckpoint, err := s.store.GetCheckpoint(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	head, err := s.client.GetCurrentBlock(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read chain head: %w", err)
	}

	from := s.config.DeploymentBlock
	if hasCheckpoint {
		switch {
		case checkpoint > head:
			logger.WarnCtx(ctx, "Checkpoint is ahead of the chain head, resyncing",
				zap.Uint64("checkpoint", checkpoint), zap.Uint64("head", head))
			if err := s.resync(ctx); err != nil {
				return false, err
			}
		case checkpoint < s.config.DeploymentBlock:
			logger.WarnCtx(ctx, "Checkpoint is below the deployment block, resyncing",
				zap.Uint64("checkpoint", checkpoint), zap.Uint64("deploymentBlock", s.config.DeploymentBlock))
			if err := s.resync(ctx); err != nil {
				return false, err
			}
		default:
			from = checkpoint
		}
	}

	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := &cycleRun{head: head}

	subs := make([]chain.Subscription, 0, len(s.config.EventTypes))
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()
	for _, t := range s.config.EventTypes {
		sub, err := s.client.SubscribeForNewEvents(cycleCtx, t, head, s.liveCallback(run))
		if err != nil {
			return false, fmt.Errorf("failed to subscribe to %s: %w", t, err)
		}
		subs = append(subs, sub)
	}

	subErr := make(chan error, len(subs))
	for _, sub := range subs {
		go func(sub chain.Subscription) {
			select {
			case err, ok := <-sub.Err():
				if !ok || err == nil {
					err = ErrSubscriptionClosed
				}
				subErr <- err
				// a dead feed aborts the backfill, the next cycle replays it
				cancel()
			case <-cycleCtx.Done():
			}
		}(sub)
	}

	s.setState(ctx, StateBackfilling)
	if err := s.backfill(cycleCtx, run, from); err == nil {
		s.setState(ctx, StateLive)
	}

	select {
	case <-ctx.Done():
		return true, ctx.Err()
	case err := <-subErr:
		return true, fmt.Errorf("live subscription failed: %w", err)
	}
}

func (s *syncer) resync(ctx context.Context) error {
	s.setState(ctx, StateResyncing)
	if err := s.store.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush store: %w", err)
	}
	if err := s.store.ClearCheckpoint(ctx); err != nil {
		return err
	}
	return nil
}

// cycleRun is the shared state of one cycle. The checkpoint moves to head only once the
// backfill finished and while no handler of the cycle has failed.
type cycleRun struct {
	head         uint64
	backfillDone atomic.Bool
	failures     atomic.Int64
}

func (r *cycleRun) clean() bool {
	return r.backfillDone.Load() && r.failures.Load() == 0
}

// backfill replays every event type from the checkpoint to head. Types run concurrently,
// events of one type run in ledger order.
func (s *syncer) backfill(ctx context.Context, run *cycleRun, from uint64) error {
	logger.InfoCtx(ctx, "Starting backfill",
		zap.Uint64("from", from), zap.Uint64("head", run.head), zap.Int("types", len(s.config.EventTypes)))

	pool := pond.NewPool(s.config.WorkerPoolSize, pond.WithContext(ctx))
	defer pool.StopAndWait()

	group := pool.NewGroup()
	for _, t := range s.config.EventTypes {
		group.Submit(func() {
			s.backfillType(ctx, run, t, from)
		})
	}
	_ = group.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	run.backfillDone.Store(true)
	if failures := run.failures.Load(); failures > 0 {
		logger.WarnCtx(ctx, "Backfill finished with failures, checkpoint not advanced",
			zap.Int64("failures", failures), zap.Uint64("head", run.head))
		return nil
	}

	if err := s.saveCheckpoint(ctx, run.head); err != nil {
		// the next cycle replays the range, handlers are idempotent
		logger.ErrorCtx(ctx, err, zap.Uint64("head", run.head))
		return nil
	}
	logger.InfoCtx(ctx, "Backfill finished", zap.Uint64("checkpoint", run.head))
	return nil
}

func (s *syncer) backfillType(ctx context.Context, run *cycleRun, t domain.EventType, from uint64) {
	events, err := s.client.GetEventsFromBlock(ctx, t, from, &chain.Filter{ToBlock: run.head})
	if err != nil {
		run.failures.Add(1)
		logger.ErrorCtx(ctx, fmt.Errorf("failed to get %s events: %w", t, err), zap.Uint64("from", from))
		return
	}
	logger.DebugCtx(ctx, "Backfilling events", zap.String("type", string(t)), zap.Int("count", len(events)))

	for _, event := range events {
		if ctx.Err() != nil {
			return
		}
		if err := s.handle(ctx, event); err != nil {
			run.failures.Add(1)
		}
	}
}

// liveCallback handles a live event and moves the checkpoint to the cycle head after it
func (s *syncer) liveCallback(run *cycleRun) chain.Callback {
	return func(ctx context.Context, event domain.Event) error {
		if err := s.handle(ctx, event); err != nil {
			run.failures.Add(1)
			return nil
		}
		if !run.clean() {
			return nil
		}
		if err := s.saveCheckpoint(ctx, run.head); err != nil {
			logger.ErrorCtx(ctx, err, zap.Uint64("head", run.head))
		}
		return nil
	}
}

// handle runs the handler of one event. Failures are logged and counted, never fatal.
func (s *syncer) handle(ctx context.Context, event domain.Event) error {
	start := s.clock.Now()
	err := s.handler.Handle(ctx, event)
	s.metrics.EventHandled(event.Type, s.clock.Since(start), err)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to handle %s: %w", event.Type, err),
			zap.String("contract", event.ContractAddress),
			zap.Uint64("block", event.BlockNumber),
			zap.String("txHash", event.TxHash))
	}
	return err
}

func (s *syncer) saveCheckpoint(ctx context.Context, block uint64) error {
	if err := s.store.SetCheckpoint(ctx, block); err != nil {
		return err
	}
	s.metrics.Checkpoint(block)
	return nil
}
