// Package settings holds process-wide tunables for netssh-go.
//
// Precedence: built-in defaults, then an optional config file (any format
// viper reads), then environment overrides with the NETSSH_ prefix — one
// variable per leaf key, e.g. NETSSH_NETWORK_TCP_CONNECT_TIMEOUT_SECS=30.
//
// The current settings are published as an atomic snapshot: Get is lock-free
// and an Update is observed only by subsequent Get calls.
package settings

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"

	"github.com/moimran/netssh-go/internal/errors"
)

// EnvPrefix is the shared prefix for environment overrides.
const EnvPrefix = "NETSSH"

// Settings is the full hierarchical record.
type Settings struct {
	Network     NetworkSettings     `mapstructure:"network"`
	SSH         SSHSettings         `mapstructure:"ssh"`
	Buffer      BufferSettings      `mapstructure:"buffer"`
	Concurrency ConcurrencySettings `mapstructure:"concurrency"`
	Logging     LoggingSettings     `mapstructure:"logging"`
}

// NetworkSettings groups wire-level timeouts and delays.
type NetworkSettings struct {
	TCPConnectTimeoutSecs      uint64 `mapstructure:"tcp_connect_timeout_secs"`
	TCPReadTimeoutSecs         uint64 `mapstructure:"tcp_read_timeout_secs"`
	TCPWriteTimeoutSecs        uint64 `mapstructure:"tcp_write_timeout_secs"`
	DefaultSSHPort             uint16 `mapstructure:"default_ssh_port"`
	CommandResponseTimeoutSecs uint64 `mapstructure:"command_response_timeout_secs"`
	PatternMatchTimeoutSecs    uint64 `mapstructure:"pattern_match_timeout_secs"`
	CommandExecDelayMs         uint64 `mapstructure:"command_exec_delay_ms"`
	RetryDelayMs               uint64 `mapstructure:"retry_delay_ms"`
	MaxRetryAttempts           uint32 `mapstructure:"max_retry_attempts"`
	DeviceOperationTimeoutSecs uint64 `mapstructure:"device_operation_timeout_secs"`
}

// SSHSettings groups SSH library behavior.
type SSHSettings struct {
	// BlockingTimeoutSecs is exposed through BlockingTimeout, where zero means
	// no timeout. The SSH transport does not read it; reads are bounded by
	// their callers' deadlines.
	BlockingTimeoutSecs    uint64 `mapstructure:"blocking_timeout_secs"`
	AuthTimeoutSecs        uint64 `mapstructure:"auth_timeout_secs"`
	KeepaliveIntervalSecs  uint64 `mapstructure:"keepalive_interval_secs"`
	ChannelOpenTimeoutSecs uint64 `mapstructure:"channel_open_timeout_secs"`
}

// BufferSettings groups read-buffer and pool behavior.
type BufferSettings struct {
	ReadBufferSize       int  `mapstructure:"read_buffer_size"`
	BufferPoolSize       int  `mapstructure:"buffer_pool_size"`
	BufferReuseThreshold int  `mapstructure:"buffer_reuse_threshold"`
	AutoClearBuffer      bool `mapstructure:"auto_clear_buffer"`
}

// ConcurrencySettings groups the parallel execution limits.
type ConcurrencySettings struct {
	MaxConnections            int    `mapstructure:"max_connections"`
	PermitAcquireTimeoutMs    uint64 `mapstructure:"permit_acquire_timeout_ms"`
	ConnectionIdleTimeoutSecs uint64 `mapstructure:"connection_idle_timeout_secs"`
}

// LoggingSettings groups session transcript behavior.
type LoggingSettings struct {
	EnableSessionLog bool   `mapstructure:"enable_session_log"`
	SessionLogPath   string `mapstructure:"session_log_path"`
	LogBinaryData    bool   `mapstructure:"log_binary_data"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Network: NetworkSettings{
			TCPConnectTimeoutSecs:      60,
			TCPReadTimeoutSecs:         30,
			TCPWriteTimeoutSecs:        30,
			DefaultSSHPort:             22,
			CommandResponseTimeoutSecs: 30,
			PatternMatchTimeoutSecs:    20,
			CommandExecDelayMs:         100,
			RetryDelayMs:               1000,
			MaxRetryAttempts:           3,
			DeviceOperationTimeoutSecs: 120,
		},
		SSH: SSHSettings{
			BlockingTimeoutSecs:    30,
			AuthTimeoutSecs:        30,
			KeepaliveIntervalSecs:  60,
			ChannelOpenTimeoutSecs: 20,
		},
		Buffer: BufferSettings{
			ReadBufferSize:       65536,
			BufferPoolSize:       32,
			BufferReuseThreshold: 16384,
			AutoClearBuffer:      true,
		},
		Concurrency: ConcurrencySettings{
			MaxConnections:            100,
			PermitAcquireTimeoutMs:    5000,
			ConnectionIdleTimeoutSecs: 300,
		},
		Logging: LoggingSettings{
			EnableSessionLog: false,
			SessionLogPath:   "logs",
			LogBinaryData:    false,
		},
	}
}

var (
	current  atomic.Pointer[Settings]
	initOnce sync.Once
	updateMu sync.Mutex
)

func snapshot() *Settings {
	initOnce.Do(func() {
		if current.Load() == nil {
			s := loadFrom("")
			current.Store(&s)
		}
	})
	return current.Load()
}

// Get returns the current settings snapshot.
func Get() Settings {
	return *snapshot()
}

// Init loads settings from an optional config file path plus environment
// overrides and publishes them. An empty path means defaults + environment.
func Init(path string) error {
	updateMu.Lock()
	defer updateMu.Unlock()

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrap(err, errors.ErrSettings,
				"failed to read settings file "+path)
		}
	}

	s := Default()
	if err := v.Unmarshal(&s); err != nil {
		return errors.Wrap(err, errors.ErrSettings, "invalid settings format")
	}
	current.Store(&s)
	return nil
}

// Update applies fn to a copy of the current settings and publishes the
// result. Readers holding an older snapshot are unaffected.
func Update(fn func(*Settings)) {
	updateMu.Lock()
	defer updateMu.Unlock()
	s := *snapshot()
	fn(&s)
	current.Store(&s)
}

// Reset restores defaults plus environment overrides. Used by tests.
func Reset() {
	updateMu.Lock()
	defer updateMu.Unlock()
	s := loadFrom("")
	current.Store(&s)
}

func loadFrom(path string) Settings {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}
	s := Default()
	_ = v.Unmarshal(&s)
	return s
}

// newViper builds a viper instance with defaults registered and the NETSSH_
// environment prefix bound. Defaults must be registered per leaf so
// AutomaticEnv can see the keys.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("network.tcp_connect_timeout_secs", d.Network.TCPConnectTimeoutSecs)
	v.SetDefault("network.tcp_read_timeout_secs", d.Network.TCPReadTimeoutSecs)
	v.SetDefault("network.tcp_write_timeout_secs", d.Network.TCPWriteTimeoutSecs)
	v.SetDefault("network.default_ssh_port", d.Network.DefaultSSHPort)
	v.SetDefault("network.command_response_timeout_secs", d.Network.CommandResponseTimeoutSecs)
	v.SetDefault("network.pattern_match_timeout_secs", d.Network.PatternMatchTimeoutSecs)
	v.SetDefault("network.command_exec_delay_ms", d.Network.CommandExecDelayMs)
	v.SetDefault("network.retry_delay_ms", d.Network.RetryDelayMs)
	v.SetDefault("network.max_retry_attempts", d.Network.MaxRetryAttempts)
	v.SetDefault("network.device_operation_timeout_secs", d.Network.DeviceOperationTimeoutSecs)
	v.SetDefault("ssh.blocking_timeout_secs", d.SSH.BlockingTimeoutSecs)
	v.SetDefault("ssh.auth_timeout_secs", d.SSH.AuthTimeoutSecs)
	v.SetDefault("ssh.keepalive_interval_secs", d.SSH.KeepaliveIntervalSecs)
	v.SetDefault("ssh.channel_open_timeout_secs", d.SSH.ChannelOpenTimeoutSecs)
	v.SetDefault("buffer.read_buffer_size", d.Buffer.ReadBufferSize)
	v.SetDefault("buffer.buffer_pool_size", d.Buffer.BufferPoolSize)
	v.SetDefault("buffer.buffer_reuse_threshold", d.Buffer.BufferReuseThreshold)
	v.SetDefault("buffer.auto_clear_buffer", d.Buffer.AutoClearBuffer)
	v.SetDefault("concurrency.max_connections", d.Concurrency.MaxConnections)
	v.SetDefault("concurrency.permit_acquire_timeout_ms", d.Concurrency.PermitAcquireTimeoutMs)
	v.SetDefault("concurrency.connection_idle_timeout_secs", d.Concurrency.ConnectionIdleTimeoutSecs)
	v.SetDefault("logging.enable_session_log", d.Logging.EnableSessionLog)
	v.SetDefault("logging.session_log_path", d.Logging.SessionLogPath)
	v.SetDefault("logging.log_binary_data", d.Logging.LogBinaryData)
	return v
}

// Duration helpers convert the integer settings to time.Duration. A zero
// setting yields a zero duration; what that means is up to each caller.

// ConnectTimeout returns the TCP connect deadline.
func (s Settings) ConnectTimeout() time.Duration {
	return time.Duration(s.Network.TCPConnectTimeoutSecs) * time.Second
}

// CommandTimeout returns the per-command response deadline.
func (s Settings) CommandTimeout() time.Duration {
	return time.Duration(s.Network.CommandResponseTimeoutSecs) * time.Second
}

// PatternTimeout returns the pattern-match deadline.
func (s Settings) PatternTimeout() time.Duration {
	return time.Duration(s.Network.PatternMatchTimeoutSecs) * time.Second
}

// CommandExecDelay returns the post-write de-bounce delay.
func (s Settings) CommandExecDelay() time.Duration {
	return time.Duration(s.Network.CommandExecDelayMs) * time.Millisecond
}

// RetryDelay returns the delay between caller-driven retry attempts.
func (s Settings) RetryDelay() time.Duration {
	return time.Duration(s.Network.RetryDelayMs) * time.Millisecond
}

// BlockingTimeout returns the transport blocking deadline; zero means none.
func (s Settings) BlockingTimeout() time.Duration {
	return time.Duration(s.SSH.BlockingTimeoutSecs) * time.Second
}

// PermitAcquireTimeout returns the semaphore wait deadline.
func (s Settings) PermitAcquireTimeout() time.Duration {
	return time.Duration(s.Concurrency.PermitAcquireTimeoutMs) * time.Millisecond
}

// ConnectionIdleTimeout returns the cache idle eviction deadline.
func (s Settings) ConnectionIdleTimeout() time.Duration {
	return time.Duration(s.Concurrency.ConnectionIdleTimeoutSecs) * time.Second
}
