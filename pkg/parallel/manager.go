// Package parallel schedules command execution across many devices with
// bounded concurrency, pooled connection reuse, and failure-strategy
// control. Results come back fully populated even when every command fails.
package parallel

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/moimran/netssh-go/internal/errors"
	"github.com/moimran/netssh-go/internal/logging"
	"github.com/moimran/netssh-go/internal/metrics"
	"github.com/moimran/netssh-go/internal/semaphore"
	"github.com/moimran/netssh-go/pkg/device"
	"github.com/moimran/netssh-go/pkg/device/factory"
	"github.com/moimran/netssh-go/pkg/device/vendors/common"
	"github.com/moimran/netssh-go/pkg/results"
	"github.com/moimran/netssh-go/pkg/settings"
)

// healthProber is satisfied by every vendor driver; cached connections must
// answer a probe before reuse.
type healthProber interface {
	HealthProbe() bool
}

// Manager fans commands out across devices. Within a device, commands run
// in submitted order; across devices no order is guaranteed, but each
// device's results stay contiguous in submission order.
type Manager struct {
	cfg   Config
	sem   *semaphore.Semaphore
	cache *connCache

	// connect is injectable for tests; the default dials through the
	// device factory with settings-driven retry.
	connect func(device.Config) (device.NetworkDeviceConnection, error)

	closeOnce sync.Once
}

// NewManager creates a manager with the given configuration. Zero-valued
// fields fall back to the process settings.
func NewManager(cfg Config) *Manager {
	s := settings.Get()
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = s.Concurrency.MaxConnections
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = s.CommandTimeout()
	}
	if cfg.FailureStrategy == "" {
		cfg.FailureStrategy = ContinueDevice
	}

	m := &Manager{
		cfg:   cfg,
		sem:   semaphore.New(cfg.MaxConcurrency),
		cache: newConnCache(s.ConnectionIdleTimeout()),
	}
	m.connect = m.dialDevice
	return m
}

// ExecuteCommandOnAll runs one command on every device.
func (m *Manager) ExecuteCommandOnAll(configs []device.Config, cmd string) *results.BatchCommandResults {
	return m.ExecuteCommandsOnAll(configs, []string{cmd})
}

// ExecuteCommandsOnAll runs the same command list on every device.
func (m *Manager) ExecuteCommandsOnAll(configs []device.Config, cmds []string) *results.BatchCommandResults {
	jobs := make([]DeviceCommands, 0, len(configs))
	for _, cfg := range configs {
		jobs = append(jobs, DeviceCommands{Config: cfg, Commands: cmds})
	}
	return m.Execute(jobs)
}

// Execute runs a device-specific command mapping.
func (m *Manager) Execute(jobs []DeviceCommands) *results.BatchCommandResults {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	perDevice := make([][]results.CommandResult, len(jobs))
	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			perDevice[i] = m.runDevice(ctx, cancel, jobs[i])
		}(i)
	}
	wg.Wait()

	// Stable order: device submission order, then command order per device.
	batch := results.NewBatch()
	for _, rs := range perDevice {
		for _, r := range rs {
			batch.Add(r)
		}
	}
	batch.Complete()
	return batch
}

// Cleanup closes every cached connection and the permit pool. The manager
// must not be used afterwards.
func (m *Manager) Cleanup() {
	m.closeOnce.Do(func() {
		m.cache.close()
		m.sem.Close()
	})
}

// CachedConnections reports how many connections are parked for reuse.
func (m *Manager) CachedConnections() int {
	return m.cache.size()
}

// runDevice processes one device's queue under a permit.
func (m *Manager) runDevice(ctx context.Context, cancelAll context.CancelFunc, job DeviceCommands) []results.CommandResult {
	deviceID := job.Config.ID()
	tag := string(job.Config.DeviceType)
	out := make([]results.CommandResult, 0, len(job.Commands))

	permit, err := m.sem.Acquire(settings.Get().PermitAcquireTimeout())
	if err != nil {
		start := time.Now()
		for _, cmd := range job.Commands {
			out = append(out, results.Timeout(deviceID, tag, cmd, err.Error(), start))
		}
		return out
	}
	metrics.PermitsInFlight.Inc()
	defer func() {
		metrics.PermitsInFlight.Dec()
		permit.Release()
	}()

	conn, reused, err := m.obtainConnection(job.Config)
	if err != nil {
		start := time.Now()
		for _, cmd := range job.Commands {
			if errors.KindOf(err) == string(errors.ConnectTimeout) {
				out = append(out, results.Timeout(deviceID, tag, cmd, err.Error(), start))
			} else {
				out = append(out, results.Failure(deviceID, tag, cmd, "", err.Error(), start))
			}
		}
		return out
	}
	tag = string(conn.DeviceTypeTag())

	errorRe := m.errorPattern(conn.DeviceTypeTag())

	healthy := true
	skipRest := false
	for _, cmd := range job.Commands {
		if skipRest || ctx.Err() != nil {
			out = append(out, results.Skipped(deviceID, tag, cmd))
			continue
		}

		start := time.Now()
		output, err := conn.SendCommand(cmd, &device.SendOptions{
			ReadTimeout:  m.cfg.CommandTimeout,
			StripPrompt:  true,
			StripCommand: true,
			Normalize:    true,
		})

		switch {
		case err != nil && errors.IsCode(err, errors.ErrPattern):
			out = append(out, results.Timeout(deviceID, tag, cmd, err.Error(), start))
			metrics.CommandsExecuted.WithLabelValues(string(results.StatusTimeout)).Inc()
			healthy = false
			skipRest = m.applyStrategy(cancelAll) || skipRest
		case err != nil:
			out = append(out, results.Failure(deviceID, tag, cmd, output, err.Error(), start))
			healthy = false
			skipRest = m.applyStrategy(cancelAll) || skipRest
		case errorRe != nil && errorRe.MatchString(output):
			line := errorRe.FindString(output)
			out = append(out, results.Failure(deviceID, tag, cmd, output,
				"command rejected: "+line, start))
			skipRest = m.applyStrategy(cancelAll) || skipRest
		default:
			out = append(out, results.Success(deviceID, tag, cmd, output, start))
		}
	}

	m.releaseConnection(job.Config, conn, healthy && ctx.Err() == nil)
	if reused {
		logging.L().Debug("reused cached connection", zap.String("device", deviceID))
	}
	return out
}

// applyStrategy reacts to a failed command. It returns true when the rest of
// this device's queue must be skipped.
func (m *Manager) applyStrategy(cancelAll context.CancelFunc) bool {
	switch m.cfg.FailureStrategy {
	case StopDevice:
		return true
	case StopAll:
		cancelAll()
		return true
	default:
		return false
	}
}

// obtainConnection checks the cache first (probing health), then dials.
func (m *Manager) obtainConnection(cfg device.Config) (device.NetworkDeviceConnection, bool, error) {
	if m.cfg.ReuseConnections {
		if conn, ok := m.cache.checkout(keyFor(cfg)); ok {
			if prober, probes := conn.(healthProber); !probes || prober.HealthProbe() {
				return conn, true, nil
			}
			// Stale session: evict and fall through to a fresh dial.
			_ = conn.Close()
			logging.L().Debug("evicted unhealthy cached connection",
				zap.String("host", cfg.Host))
		}
	}

	conn, err := m.connect(cfg)
	if err != nil {
		return nil, false, err
	}
	return conn, false, nil
}

// releaseConnection parks a healthy connection for reuse, or closes it.
func (m *Manager) releaseConnection(cfg device.Config, conn device.NetworkDeviceConnection, healthy bool) {
	if m.cfg.ReuseConnections && healthy && conn.IsConnected() {
		m.cache.park(keyFor(cfg), conn)
		return
	}
	_ = conn.Close()
}

// dialDevice builds and connects a driver, retrying transient connect
// failures per the settings retry policy. Auth failures do not retry.
func (m *Manager) dialDevice(cfg device.Config) (device.NetworkDeviceConnection, error) {
	if m.cfg.ConnectionTimeout > 0 {
		cfg.ConnectTimeout = m.cfg.ConnectionTimeout
	}

	conn, err := factory.CreateDevice(cfg)
	if err != nil {
		return nil, err
	}

	s := settings.Get()
	policy := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(s.RetryDelay()),
		uint64(s.Network.MaxRetryAttempts),
	)
	err = backoff.Retry(func() error {
		cerr := conn.Connect()
		if cerr != nil && errors.KindOf(cerr) == string(errors.ConnectAuth) {
			return backoff.Permanent(cerr)
		}
		return cerr
	}, policy)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// errorPattern compiles the configured or vendor-default error regex.
func (m *Manager) errorPattern(tag device.DeviceType) *regexp.Regexp {
	pattern := m.cfg.ErrorPattern
	if pattern == "" {
		pattern = common.DefaultErrorPattern(tag)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		logging.L().Warn("invalid error pattern, disabling output scanning",
			zap.String("pattern", pattern), zap.Error(err))
		return nil
	}
	return re
}
