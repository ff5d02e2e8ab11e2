package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := Default()

	assert.Equal(t, uint64(60), s.Network.TCPConnectTimeoutSecs)
	assert.Equal(t, uint16(22), s.Network.DefaultSSHPort)
	assert.Equal(t, uint64(30), s.Network.CommandResponseTimeoutSecs)
	assert.Equal(t, uint64(20), s.Network.PatternMatchTimeoutSecs)
	assert.Equal(t, 65536, s.Buffer.ReadBufferSize)
	assert.Equal(t, 32, s.Buffer.BufferPoolSize)
	assert.True(t, s.Buffer.AutoClearBuffer)
	assert.Equal(t, 100, s.Concurrency.MaxConnections)
	assert.False(t, s.Logging.EnableSessionLog)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("NETSSH_NETWORK_COMMAND_RESPONSE_TIMEOUT_SECS", "7")
	t.Setenv("NETSSH_CONCURRENCY_MAX_CONNECTIONS", "12")
	t.Setenv("NETSSH_LOGGING_ENABLE_SESSION_LOG", "true")
	Reset()
	defer func() {
		os.Unsetenv("NETSSH_NETWORK_COMMAND_RESPONSE_TIMEOUT_SECS")
		os.Unsetenv("NETSSH_CONCURRENCY_MAX_CONNECTIONS")
		os.Unsetenv("NETSSH_LOGGING_ENABLE_SESSION_LOG")
		Reset()
	}()

	s := Get()
	assert.Equal(t, uint64(7), s.Network.CommandResponseTimeoutSecs)
	assert.Equal(t, 12, s.Concurrency.MaxConnections)
	assert.True(t, s.Logging.EnableSessionLog)
}

func TestInitFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netssh.yaml")
	content := []byte(`
network:
  command_response_timeout_secs: 45
  default_ssh_port: 2222
buffer:
  auto_clear_buffer: false
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	require.NoError(t, Init(path))
	defer Reset()

	s := Get()
	assert.Equal(t, uint64(45), s.Network.CommandResponseTimeoutSecs)
	assert.Equal(t, uint16(2222), s.Network.DefaultSSHPort)
	assert.False(t, s.Buffer.AutoClearBuffer)
	// Untouched leaves keep their defaults.
	assert.Equal(t, uint64(20), s.Network.PatternMatchTimeoutSecs)
}

func TestInitMissingFile(t *testing.T) {
	err := Init(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestUpdatePublishesSnapshot(t *testing.T) {
	Reset()
	defer Reset()

	before := Get()
	Update(func(s *Settings) {
		s.Network.CommandExecDelayMs = 5
	})
	after := Get()

	assert.Equal(t, uint64(100), before.Network.CommandExecDelayMs)
	assert.Equal(t, uint64(5), after.Network.CommandExecDelayMs)
}

func TestDurationHelpers(t *testing.T) {
	s := Default()

	assert.Equal(t, 60*time.Second, s.ConnectTimeout())
	assert.Equal(t, 30*time.Second, s.CommandTimeout())
	assert.Equal(t, 20*time.Second, s.PatternTimeout())
	assert.Equal(t, 100*time.Millisecond, s.CommandExecDelay())
	assert.Equal(t, 5*time.Second, s.PermitAcquireTimeout())
	assert.Equal(t, 300*time.Second, s.ConnectionIdleTimeout())

	s.SSH.BlockingTimeoutSecs = 0
	assert.Equal(t, time.Duration(0), s.BlockingTimeout())
}
