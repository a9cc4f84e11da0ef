package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextFieldsAreAttached(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithRunID(ctx, "run-1")
	ctx = WithWorkerID(ctx, 3)

	l.InfoContext(ctx, "pipeline finished", "clients", 42)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "pipeline finished", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "trace-1", fields["trace_id"])
	assert.Equal(t, "run-1", fields["run_id"])
	assert.EqualValues(t, 3, fields["worker_id"])
	assert.EqualValues(t, 42, fields["clients"])
}

func TestLevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	l := NewFromZap(zap.New(core))

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.ErrorContext(context.Background(), "shown too")

	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, "", TraceID(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
