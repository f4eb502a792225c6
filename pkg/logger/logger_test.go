package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetFallsBackToNop(t *testing.T) {
	SetLogger(nil)
	assert.NotNil(t, Get())
	assert.NotPanics(t, func() { Info("no logger configured") })
}

func TestInitLevels(t *testing.T) {
	defer SetLogger(nil)

	require.NoError(t, Init("debug", "production"))
	assert.True(t, Get().Core().Enabled(zap.DebugLevel))

	require.NoError(t, Init("warn", "development"))
	assert.False(t, Get().Core().Enabled(zap.InfoLevel))
	assert.True(t, Get().Core().Enabled(zap.WarnLevel))

	require.NoError(t, Init("bogus", "production"))
	assert.True(t, Get().Core().Enabled(zap.InfoLevel))
	assert.False(t, Get().Core().Enabled(zap.DebugLevel))
}

func TestHelpersWriteFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Warn("upload rejected", String("reason", "missing_columns"), Int("rows", 3))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "upload rejected", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "missing_columns", fields["reason"])
	assert.EqualValues(t, 3, fields["rows"])
}
