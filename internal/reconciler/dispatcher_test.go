package reconciler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/reconciler"
)

// recordingEffect logs its key when applied and returns the configured follow-ups
type recordingEffect struct {
	key    string
	log    *[]string
	follow []reconciler.Effect
	err    error
}

func (e *recordingEffect) Key() string { return e.key }

func (e *recordingEffect) Apply(context.Context) ([]reconciler.Effect, error) {
	*e.log = append(*e.log, e.key)
	return e.follow, e.err
}

func TestDispatcher_BreadthFirstWithDedup(t *testing.T) {
	var log []string
	community := &recordingEffect{key: "community", log: &log}
	meeting := &recordingEffect{key: "meeting", log: &log, follow: []reconciler.Effect{community}}
	rule := &recordingEffect{key: "rule", log: &log, follow: []reconciler.Effect{meeting, community}}
	voting := &recordingEffect{key: "voting", log: &log}

	d := reconciler.NewDispatcher(3)
	err := d.Apply(context.Background(), []reconciler.Effect{rule, voting, rule})
	require.NoError(t, err)

	// hop 1: rule, voting; hop 2: meeting, community; hop 3: community again
	assert.Equal(t, []string{"rule", "voting", "meeting", "community", "community"}, log)
}

func TestDispatcher_DepthBound(t *testing.T) {
	var log []string
	fourth := &recordingEffect{key: "4", log: &log}
	third := &recordingEffect{key: "3", log: &log, follow: []reconciler.Effect{fourth}}
	second := &recordingEffect{key: "2", log: &log, follow: []reconciler.Effect{third}}
	first := &recordingEffect{key: "1", log: &log, follow: []reconciler.Effect{second}}

	err := reconciler.NewDispatcher(3).Apply(context.Background(), []reconciler.Effect{first})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCascadeTooDeep)
	assert.Equal(t, []string{"1", "2", "3"}, log)

	log = nil
	err = reconciler.NewDispatcher(4).Apply(context.Background(), []reconciler.Effect{first})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, log)
}

func TestDispatcher_DefaultDepth(t *testing.T) {
	var log []string
	third := &recordingEffect{key: "3", log: &log}
	second := &recordingEffect{key: "2", log: &log, follow: []reconciler.Effect{third}}
	first := &recordingEffect{key: "1", log: &log, follow: []reconciler.Effect{second}}

	require.NoError(t, reconciler.NewDispatcher(0).Apply(context.Background(), []reconciler.Effect{first}))
	assert.Len(t, log, reconciler.DefaultMaxDepth)
}

func TestDispatcher_StopsOnError(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	after := &recordingEffect{key: "after", log: &log}
	failing := &recordingEffect{key: "failing", log: &log, err: boom, follow: []reconciler.Effect{after}}
	skipped := &recordingEffect{key: "skipped", log: &log}

	err := reconciler.NewDispatcher(3).Apply(context.Background(), []reconciler.Effect{failing, skipped})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.Equal(t, []string{"failing"}, log)
}

func TestDispatcher_NoEffects(t *testing.T) {
	assert.NoError(t, reconciler.NewDispatcher(3).Apply(context.Background(), nil))
}
