package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestUninitializedLoggerIsNoop(t *testing.T) {
	prev := log
	log = nil
	t.Cleanup(func() { log = prev })

	assert.NotPanics(t, func() {
		ctx := context.Background()
		Info("info")
		InfoCtx(ctx, "info")
		Warn("warn")
		WarnCtx(ctx, "warn", zap.String("k", "v"))
		Debug("debug")
		DebugCtx(ctx, "debug")
		Error(errors.New("failed"))
		ErrorCtx(ctx, nil)
		Named("syncer").Info("named")
		Sync()
	})
	assert.Same(t, nop, FromContext(context.Background()))
	assert.Same(t, nop, Default())
}

func TestInitializedLoggerIsUsed(t *testing.T) {
	prev := log
	t.Cleanup(func() { log = prev })

	assert.NoError(t, Initialize(Config{Debug: true}))
	assert.Same(t, log, Default())
	assert.NotSame(t, nop, FromContext(context.Background()))
}
