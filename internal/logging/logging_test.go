package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultIsNoop(t *testing.T) {
	// Before Init, logging is silent but non-nil.
	assert.NotNil(t, L())
	L().Info("should not panic")
}

func TestSetLoggerCaptures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	L().Info("hello", zap.String("device", "router1"))

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, "router1", entries[0].ContextMap()["device"])
}

func TestInitLevels(t *testing.T) {
	assert.NoError(t, Init("debug", false))
	assert.NoError(t, Init("info", true))
	// Unknown levels fall back to info rather than failing.
	assert.NoError(t, Init("nonsense", true))
	SetLogger(zap.NewNop())
}
