package reconciler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/logger"
)

// DefaultMaxDepth bounds how many hops of follow-up effects one event may cause
const DefaultMaxDepth = 3

// Effect is a follow-up refresh a handler asks for. Applying it may ask for more.
type Effect interface {
	Apply(ctx context.Context) ([]Effect, error)
	// Key identifies the refreshed entity; effects with equal keys in one hop run once
	Key() string
}

// Dispatcher applies effects breadth first
type Dispatcher struct {
	maxDepth int
}

// NewDispatcher creates a dispatcher allowing maxDepth hops, DefaultMaxDepth when maxDepth <= 0
func NewDispatcher(maxDepth int) *Dispatcher {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Dispatcher{maxDepth: maxDepth}
}

// Apply runs effects hop by hop. The first failing effect fails the whole cascade, and so does
// a cascade still producing effects after the last allowed hop.
func (d *Dispatcher) Apply(ctx context.Context, effects []Effect) error {
	hop := effects
	for depth := 0; len(hop) > 0; depth++ {
		if depth >= d.maxDepth {
			return fmt.Errorf("%w: %d effects left after %d hops, first %s",
				domain.ErrCascadeTooDeep, len(hop), d.maxDepth, hop[0].Key())
		}

		var next []Effect
		seen := make(map[string]struct{}, len(hop))
		for _, e := range hop {
			if _, ok := seen[e.Key()]; ok {
				continue
			}
			seen[e.Key()] = struct{}{}

			follow, err := e.Apply(ctx)
			if err != nil {
				return fmt.Errorf("failed to apply %s: %w", e.Key(), err)
			}
			next = append(next, follow...)
		}

		logger.DebugCtx(ctx, "Applied effects",
			zap.Int("hop", depth+1),
			zap.Int("applied", len(seen)),
			zap.Int("followUps", len(next)))
		hop = next
	}
	return nil
}
