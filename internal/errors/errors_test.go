package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormat(t *testing.T) {
	err := New(ErrPrompt, "could not detect prompt", "raise the delay")

	msg := err.Error()
	assert.Contains(t, msg, "PROMPT")
	assert.Contains(t, msg, "could not detect prompt")
	assert.Contains(t, msg, "raise the delay")
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, ErrIO, "write failed")

	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsCode(t *testing.T) {
	err := New(ErrMode, "not privileged", "")

	assert.True(t, IsCode(err, ErrMode))
	assert.False(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(nil, ErrMode))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrMode))
}

func TestIsCodeThroughWrapping(t *testing.T) {
	inner := New(ErrPattern, "no match", "")
	outer := fmt.Errorf("while reading: %w", inner)

	assert.True(t, IsCode(outer, ErrPattern))
}

func TestConnectKinds(t *testing.T) {
	err := NewConnect(ConnectAuth, "handshake failed", nil)

	assert.Equal(t, ErrConnect, CodeOf(err))
	assert.Equal(t, string(ConnectAuth), KindOf(err))
	assert.Contains(t, err.Error(), "CONNECT/auth")
}

func TestPatternTimeoutCarriesBuffer(t *testing.T) {
	err := NewPatternTimeout(`router1[>#]`, "partial output so far")

	var nErr *Error
	require.True(t, stderrors.As(err, &nErr))
	assert.Equal(t, "partial output so far", nErr.Buffer)
	assert.True(t, IsCode(err, ErrPattern))
}
