package syncer_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galtspace/geo-explorer/internal/chain"
	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/logger"
	"github.com/galtspace/geo-explorer/internal/metrics"
	"github.com/galtspace/geo-explorer/internal/mocks"
	"github.com/galtspace/geo-explorer/internal/syncer"
)

const (
	orderType = domain.EventSaleOrderStatusChanged
	fundType  = domain.EventNewCommunity
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

// testSyncerMocks contains all the mocks needed for testing the sync engine
type testSyncerMocks struct {
	ctrl    *gomock.Controller
	client  *mocks.MockChainClient
	store   *mocks.MockSyncStore
	handler *mocks.MockReconciler
	clock   *mocks.MockClock
	metrics *metrics.Metrics
}

func setupTestSyncer(t *testing.T) *testSyncerMocks {
	ctrl := gomock.NewController(t)

	tm := &testSyncerMocks{
		ctrl:    ctrl,
		client:  mocks.NewMockChainClient(ctrl),
		store:   mocks.NewMockSyncStore(ctrl),
		handler: mocks.NewMockReconciler(ctrl),
		clock:   mocks.NewMockClock(ctrl),
		metrics: metrics.New(),
	}
	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Millisecond).AnyTimes()
	return tm
}

func tearDownTestSyncer(tm *testSyncerMocks) {
	tm.ctrl.Finish()
}

func (tm *testSyncerMocks) newSyncer(cfg syncer.Config) syncer.Syncer {
	return syncer.NewSyncer(cfg, tm.client, tm.store, tm.handler, tm.metrics, tm.clock)
}

// expectSubscription subscribes t at head with a feed that never fails and stores its callback in cb
func (tm *testSyncerMocks) expectSubscription(t domain.EventType, head uint64, cb *atomic.Value) {
	sub := mocks.NewMockSubscription(tm.ctrl)
	var errs <-chan error = make(chan error)
	sub.EXPECT().Err().Return(errs).AnyTimes()
	sub.EXPECT().Unsubscribe().Times(1)

	tm.client.EXPECT().SubscribeForNewEvents(gomock.Any(), t, head, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.EventType, _ uint64, fn chain.Callback) (chain.Subscription, error) {
			if cb != nil {
				cb.Store(fn)
			}
			return sub, nil
		})
}

func event(t domain.EventType, block uint64) domain.Event {
	return domain.Event{Type: t, ContractAddress: "0x1", BlockNumber: block, TxHash: "0xtx"}
}

func TestSyncer_Run_BackfillsFromCheckpoint(t *testing.T) {
	tm := setupTestSyncer(t)
	defer tearDownTestSyncer(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.store.EXPECT().GetCheckpoint(gomock.Any()).Return(uint64(10), true, nil)
	tm.client.EXPECT().GetCurrentBlock(gomock.Any()).Return(uint64(20), nil)
	tm.expectSubscription(orderType, 20, nil)
	tm.expectSubscription(fundType, 20, nil)

	orders := []domain.Event{event(orderType, 11), event(orderType, 15)}
	tm.client.EXPECT().GetEventsFromBlock(gomock.Any(), orderType, uint64(10), &chain.Filter{ToBlock: 20}).Return(orders, nil)
	tm.client.EXPECT().GetEventsFromBlock(gomock.Any(), fundType, uint64(10), &chain.Filter{ToBlock: 20}).Return(nil, nil)

	gomock.InOrder(
		tm.handler.EXPECT().Handle(gomock.Any(), orders[0]).Return(nil),
		tm.handler.EXPECT().Handle(gomock.Any(), orders[1]).Return(nil),
	)
	tm.store.EXPECT().SetCheckpoint(gomock.Any(), uint64(20)).
		DoAndReturn(func(context.Context, uint64) error {
			cancel()
			return nil
		})

	s := tm.newSyncer(syncer.Config{EventTypes: []domain.EventType{orderType, fundType}, WorkerPoolSize: 2})
	require.NoError(t, s.Run(ctx))

	assert.Equal(t, syncer.StateIdle, s.State())
	assert.Equal(t, 20.0, testutil.ToFloat64(tm.metrics.CheckpointBlock))
	assert.Equal(t, 2.0, testutil.ToFloat64(tm.metrics.EventsProcessed.WithLabelValues(string(orderType))))
}

func TestSyncer_Run_ResyncsWhenCheckpointAheadOfHead(t *testing.T) {
	tm := setupTestSyncer(t)
	defer tearDownTestSyncer(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.store.EXPECT().GetCheckpoint(gomock.Any()).Return(uint64(100), true, nil)
	tm.client.EXPECT().GetCurrentBlock(gomock.Any()).Return(uint64(50), nil)
	gomock.InOrder(
		tm.store.EXPECT().Flush(gomock.Any()).Return(nil),
		tm.store.EXPECT().ClearCheckpoint(gomock.Any()).Return(nil),
	)
	tm.expectSubscription(orderType, 50, nil)
	tm.client.EXPECT().GetEventsFromBlock(gomock.Any(), orderType, uint64(0), &chain.Filter{ToBlock: 50}).
		Return([]domain.Event{event(orderType, 3)}, nil)
	tm.handler.EXPECT().Handle(gomock.Any(), gomock.Any()).Return(nil)
	tm.store.EXPECT().SetCheckpoint(gomock.Any(), uint64(50)).
		DoAndReturn(func(context.Context, uint64) error {
			cancel()
			return nil
		})

	s := tm.newSyncer(syncer.Config{EventTypes: []domain.EventType{orderType}})
	require.NoError(t, s.Run(ctx))
}

func TestSyncer_Run_ResyncsBelowDeploymentBlock(t *testing.T) {
	tm := setupTestSyncer(t)
	defer tearDownTestSyncer(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.store.EXPECT().GetCheckpoint(gomock.Any()).Return(uint64(5), true, nil)
	tm.client.EXPECT().GetCurrentBlock(gomock.Any()).Return(uint64(50), nil)
	tm.store.EXPECT().Flush(gomock.Any()).Return(nil)
	tm.store.EXPECT().ClearCheckpoint(gomock.Any()).Return(nil)
	tm.expectSubscription(orderType, 50, nil)
	tm.client.EXPECT().GetEventsFromBlock(gomock.Any(), orderType, uint64(30), gomock.Any()).Return(nil, nil)
	tm.store.EXPECT().SetCheckpoint(gomock.Any(), uint64(50)).
		DoAndReturn(func(context.Context, uint64) error {
			cancel()
			return nil
		})

	s := tm.newSyncer(syncer.Config{EventTypes: []domain.EventType{orderType}, DeploymentBlock: 30})
	require.NoError(t, s.Run(ctx))
}

func TestSyncer_Run_FreshStoreStartsAtDeploymentBlock(t *testing.T) {
	tm := setupTestSyncer(t)
	defer tearDownTestSyncer(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm.store.EXPECT().GetCheckpoint(gomock.Any()).Return(uint64(0), false, nil)
	tm.client.EXPECT().GetCurrentBlock(gomock.Any()).Return(uint64(50), nil)
	tm.expectSubscription(orderType, 50, nil)
	tm.client.EXPECT().GetEventsFromBlock(gomock.Any(), orderType, uint64(30), gomock.Any()).Return(nil, nil)
	tm.store.EXPECT().SetCheckpoint(gomock.Any(), uint64(50)).
		DoAndReturn(func(context.Context, uint64) error {
			cancel()
			return nil
		})

	s := tm.newSyncer(syncer.Config{EventTypes: []domain.EventType{orderType}, DeploymentBlock: 30})
	require.NoError(t, s.Run(ctx))
}

func TestSyncer_Run_LiveEventsMoveCheckpointToHead(t *testing.T) {
	tm := setupTestSyncer(t)
	defer tearDownTestSyncer(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cb atomic.Value
	tm.store.EXPECT().GetCheckpoint(gomock.Any()).Return(uint64(10), true, nil)
	tm.client.EXPECT().GetCurrentBlock(gomock.Any()).Return(uint64(20), nil)
	tm.expectSubscription(orderType, 20, &cb)
	tm.client.EXPECT().GetEventsFromBlock(gomock.Any(), orderType, uint64(10), gomock.Any()).Return(nil, nil)

	live := event(orderType, 21)
	tm.handler.EXPECT().Handle(gomock.Any(), live).Return(nil)
	tm.store.EXPECT().SetCheckpoint(gomock.Any(), uint64(20)).Return(nil).Times(2)

	s := tm.newSyncer(syncer.Config{EventTypes: []domain.EventType{orderType}})
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.State() == syncer.StateLive }, time.Second, 5*time.Millisecond)
	require.NoError(t, cb.Load().(chain.Callback)(ctx, live))

	cancel()
	require.NoError(t, <-done)
}

func TestSyncer_Run_HandlerFailureHoldsCheckpoint(t *testing.T) {
	tm := setupTestSyncer(t)
	defer tearDownTestSyncer(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cb atomic.Value
	tm.store.EXPECT().GetCheckpoint(gomock.Any()).Return(uint64(10), true, nil)
	tm.client.EXPECT().GetCurrentBlock(gomock.Any()).Return(uint64(20), nil)
	tm.expectSubscription(orderType, 20, &cb)

	failing, next := event(orderType, 12), event(orderType, 13)
	tm.client.EXPECT().GetEventsFromBlock(gomock.Any(), orderType, uint64(10), gomock.Any()).
		Return([]domain.Event{failing, next}, nil)
	tm.handler.EXPECT().Handle(gomock.Any(), failing).Return(errors.New("rpc down"))
	// the failure does not stop the remaining events of the type
	tm.handler.EXPECT().Handle(gomock.Any(), next).Return(nil)

	live := event(orderType, 21)
	tm.handler.EXPECT().Handle(gomock.Any(), live).Return(nil)
	tm.store.EXPECT().SetCheckpoint(gomock.Any(), gomock.Any()).Times(0)

	s := tm.newSyncer(syncer.Config{EventTypes: []domain.EventType{orderType}})
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.State() == syncer.StateLive }, time.Second, 5*time.Millisecond)
	require.NoError(t, cb.Load().(chain.Callback)(ctx, live))

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1.0, testutil.ToFloat64(tm.metrics.HandlerFailures.WithLabelValues(string(orderType))))
}

func TestSyncer_Run_StartupFailureIsFatal(t *testing.T) {
	tm := setupTestSyncer(t)
	defer tearDownTestSyncer(tm)

	tm.store.EXPECT().GetCheckpoint(gomock.Any()).Return(uint64(10), true, nil)
	tm.client.EXPECT().GetCurrentBlock(gomock.Any()).Return(uint64(0), errors.New("dial tcp: connection refused"))

	s := tm.newSyncer(syncer.Config{EventTypes: []domain.EventType{orderType}})
	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSyncer_Run_ReconnectsAfterSubscriptionError(t *testing.T) {
	tm := setupTestSyncer(t)
	defer tearDownTestSyncer(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var starts atomic.Int32
	tm.store.EXPECT().GetCheckpoint(gomock.Any()).
		DoAndReturn(func(context.Context) (uint64, bool, error) {
			if starts.Add(1) == 2 {
				// second start stops the test
				cancel()
				return 0, false, context.Canceled
			}
			return 10, true, nil
		}).
		Times(2)
	tm.client.EXPECT().GetCurrentBlock(gomock.Any()).Return(uint64(20), nil)

	sub := mocks.NewMockSubscription(tm.ctrl)
	errs := make(chan error, 1)
	errs <- errors.New("websocket: close 1006")
	var feed <-chan error = errs
	sub.EXPECT().Err().Return(feed).AnyTimes()
	sub.EXPECT().Unsubscribe().Times(1)
	tm.client.EXPECT().SubscribeForNewEvents(gomock.Any(), orderType, uint64(20), gomock.Any()).Return(sub, nil)
	tm.client.EXPECT().GetEventsFromBlock(gomock.Any(), orderType, uint64(10), gomock.Any()).Return(nil, nil).AnyTimes()
	tm.store.EXPECT().SetCheckpoint(gomock.Any(), uint64(20)).Return(nil).AnyTimes()

	tm.clock.EXPECT().After(gomock.Any()).
		DoAndReturn(func(time.Duration) <-chan time.Time {
			ch := make(chan time.Time, 1)
			ch <- time.Now()
			return ch
		}).
		Times(1)

	s := tm.newSyncer(syncer.Config{EventTypes: []domain.EventType{orderType}})
	require.NoError(t, s.Run(ctx))
	assert.Equal(t, int32(2), starts.Load())
}
