package debounce_test

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galtspace/geo-explorer/internal/adapter"
	"github.com/galtspace/geo-explorer/internal/debounce"
	"github.com/galtspace/geo-explorer/internal/mocks"
)

type testDebounceMocks struct {
	ctrl     *gomock.Controller
	clock    *mocks.MockClock
	registry *debounce.Registry
	fired    []func()
	timers   []*mocks.MockTimer
}

func setupTest(t *testing.T, delay time.Duration) *testDebounceMocks {
	ctrl := gomock.NewController(t)
	tm := &testDebounceMocks{
		ctrl:  ctrl,
		clock: mocks.NewMockClock(ctrl),
	}
	tm.registry = debounce.New(tm.clock, delay)
	return tm
}

func tearDownTest(tm *testDebounceMocks) {
	tm.ctrl.Finish()
}

// expectTimers captures the scheduled functions instead of running them
func (tm *testDebounceMocks) expectTimers(delay time.Duration, n int) {
	tm.clock.EXPECT().
		AfterFunc(delay, gomock.Any()).
		DoAndReturn(func(_ time.Duration, f func()) adapter.Timer {
			timer := mocks.NewMockTimer(tm.ctrl)
			tm.fired = append(tm.fired, f)
			tm.timers = append(tm.timers, timer)
			return timer
		}).
		Times(n)
}

func TestRegistry_Trigger_CollapsesBurst(t *testing.T) {
	tm := setupTest(t, 500*time.Millisecond)
	defer tearDownTest(tm)

	tm.expectTimers(500*time.Millisecond, 1)

	runs := 0
	assert.True(t, tm.registry.Trigger("order-1", func() { runs++ }))
	assert.False(t, tm.registry.Trigger("order-1", func() { runs += 100 }))
	assert.False(t, tm.registry.Trigger("order-1", func() { runs += 100 }))
	assert.True(t, tm.registry.Pending("order-1"))

	require.Len(t, tm.fired, 1)
	tm.fired[0]()

	assert.Equal(t, 1, runs)
	assert.False(t, tm.registry.Pending("order-1"))
}

func TestRegistry_Trigger_AfterFireSchedulesAgain(t *testing.T) {
	tm := setupTest(t, time.Second)
	defer tearDownTest(tm)

	tm.expectTimers(time.Second, 2)

	runs := 0
	tm.registry.Trigger("order-1", func() { runs++ })
	tm.fired[0]()
	assert.True(t, tm.registry.Trigger("order-1", func() { runs++ }))
	tm.fired[1]()

	assert.Equal(t, 2, runs)
}

func TestRegistry_Trigger_KeysAreIndependent(t *testing.T) {
	tm := setupTest(t, time.Second)
	defer tearDownTest(tm)

	tm.expectTimers(time.Second, 2)

	var order []string
	tm.registry.Trigger("a", func() { order = append(order, "a") })
	tm.registry.Trigger("b", func() { order = append(order, "b") })
	assert.Equal(t, 2, tm.registry.Len())

	tm.fired[1]()
	tm.fired[0]()
	assert.Equal(t, []string{"b", "a"}, order)
	assert.Equal(t, 0, tm.registry.Len())
}

func TestRegistry_Stop_CancelsPending(t *testing.T) {
	tm := setupTest(t, time.Second)
	defer tearDownTest(tm)

	tm.expectTimers(time.Second, 1)

	runs := 0
	tm.registry.Trigger("order-1", func() { runs++ })
	tm.timers[0].EXPECT().Stop().Return(true)

	tm.registry.Stop()
	assert.False(t, tm.registry.Pending("order-1"))

	// a timer that raced Stop must not run
	tm.fired[0]()
	assert.Equal(t, 0, runs)

	assert.False(t, tm.registry.Trigger("order-1", func() { runs++ }))
}

func TestRegistry_New_DefaultDelay(t *testing.T) {
	tm := setupTest(t, 0)
	defer tearDownTest(tm)

	assert.Equal(t, debounce.DefaultDelay, tm.registry.Delay())
}

func TestRegistry_RealClock(t *testing.T) {
	registry := debounce.New(adapter.NewClock(), 10*time.Millisecond)
	done := make(chan struct{})

	registry.Trigger("k", func() { close(done) })
	registry.Trigger("k", func() { t.Error("dropped trigger ran") })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced function did not run")
	}
	assert.Eventually(t, func() bool { return !registry.Pending("k") }, time.Second, 5*time.Millisecond)
}
