package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"syscall"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogLevel is zapcore.InfoLevel.
const mockLogLevel int8 = 0

func TestGetReturnsSameInstanceOnSubsequentCalls(t *testing.T) {
	logger1 := Get(mockLogLevel)
	logger2 := Setup(Options{Level: -4})
	require.NotNil(t, logger1)
	assert.Same(t, logger1, logger2)
}

func TestBuildWritesJSONToOutput(t *testing.T) {
	var buf bytes.Buffer
	zl := build(Options{Level: -1, Output: &buf})
	lg := zapr.NewLogger(zl)

	lg.V(1).Info("rows loaded", ResourceKey, "devices", "count", 3)
	lg.V(2).Info("below the level")
	require.NoError(t, zl.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "rows loaded", entry[MessageKey])
	assert.Equal(t, "devices", entry[ResourceKey])
	assert.Contains(t, entry, TimeStampKey)
	assert.Contains(t, entry, VersionKey)
}

func TestWithLogger(t *testing.T) {
	ctx := context.Background()
	logger := Get(mockLogLevel)

	withLogger := WithLogger(ctx, logger)
	assert.Same(t, logger, withLogger.Value(loggerContextKey{}))
	assert.Equal(t, withLogger, WithLogger(withLogger, logger), "same logger keeps the context")

	other := logr.Discard()
	replaced := WithLogger(withLogger, &other)
	assert.Same(t, &other, FromContext(replaced))
}

func TestFromContextFallbacks(t *testing.T) {
	global := Get(mockLogLevel)
	assert.Same(t, global, FromContext(context.Background()))

	orig := globalLogrLogger
	globalLogrLogger = nil
	defer func() { globalLogrLogger = orig }()

	assert.Same(t, &defaultNoopLogger, FromContext(context.Background()))
	assert.Same(t, &defaultNoopLogger, GetGlobalLogger())
	assert.Same(t, &defaultNoopLogger, GetNoopLogger())
}

func TestSyncWithoutLogger(t *testing.T) {
	orig := globalZapLogger
	globalZapLogger = nil
	defer func() { globalZapLogger = orig }()

	assert.NotPanics(t, Sync)
}

func TestIsIgnorableSyncError(t *testing.T) {
	assert.True(t, isIgnorableSyncError(syscall.ENOTTY))
	assert.True(t, isIgnorableSyncError(errors.New("sync /dev/stderr: The handle is invalid.")))
	assert.False(t, isIgnorableSyncError(errors.New("disk full")))
}

func TestWithValues(t *testing.T) {
	logger := Get(mockLogLevel)
	newLogger := WithValues(logger, "key", "value")
	require.NotNil(t, newLogger)
	assert.NotSame(t, logger, newLogger)

	var nilLogger *logr.Logger
	assert.Panics(t, func() { _ = WithValues(nilLogger, "key", "value") })
}
