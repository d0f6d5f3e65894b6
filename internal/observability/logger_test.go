package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Juleszwanen/bring-up-multi-robot-scenarios/internal/config"
)

// syncableBuffer adapts bytes.Buffer to zapcore.WriteSyncer for tests.
type syncableBuffer struct {
	bytes.Buffer
}

func (b *syncableBuffer) Sync() error { return nil }

func TestInitialize_WritesJSONToConsole(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncableBuffer{}
	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "json",
		ServiceName: "fleetcomm-test",
	}, buf)

	logger := GetLogger()
	require.NotNil(t, logger)
	logger.Info("broadcast decided", zap.Bool("decision", true))
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.Contains(t, out, `"msg":"broadcast decided"`)
	assert.Contains(t, out, `"decision":true`)
	assert.Contains(t, out, "fleetcomm-test")
}

func TestInitialize_InvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncableBuffer{}
	Initialize(config.LoggerConfig{
		Level:       "nonsense",
		Format:      "json",
		ServiceName: "fleetcomm-test",
	}, buf)

	logger := GetLogger()
	logger.Debug("should be suppressed")
	logger.Info("should appear")
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "should be suppressed")
	assert.Contains(t, out, "should appear")
}

func TestInitialize_OnlyRunsOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := &syncableBuffer{}
	second := &syncableBuffer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "a"}, first)
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "b"}, second)

	GetLogger().Info("once")
	require.NoError(t, GetLogger().Sync())

	assert.Contains(t, first.String(), "once")
	assert.Empty(t, second.String())
}

func TestGetLogger_FallbackBeforeInitialize(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	// Must be safe to use even though Initialize never ran.
	logger.Info("fallback logger works")
}

var _ zapcore.WriteSyncer = (*syncableBuffer)(nil)
