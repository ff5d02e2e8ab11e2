package parallel

import (
	"time"

	"github.com/moimran/netssh-go/pkg/device"
	"github.com/moimran/netssh-go/pkg/settings"
)

// FailureStrategy is the policy for a device's remaining commands (and other
// devices' commands) after a command fails.
type FailureStrategy string

const (
	// ContinueDevice keeps running the failing device's queue.
	ContinueDevice FailureStrategy = "continue_device"
	// StopDevice skips the failing device's remaining commands.
	StopDevice FailureStrategy = "stop_device"
	// StopAll cancels every device's remaining commands.
	StopAll FailureStrategy = "stop_all"
)

// Config tunes the parallel execution manager.
type Config struct {
	// MaxConcurrency is the number of devices worked on at once.
	MaxConcurrency int
	// CommandTimeout bounds each command's read phase.
	CommandTimeout time.Duration
	// ConnectionTimeout bounds each device connect.
	ConnectionTimeout time.Duration
	// FailureStrategy picks what happens after a failed command.
	FailureStrategy FailureStrategy
	// ReuseConnections keeps sessions cached across batches per device.
	ReuseConnections bool
	// ErrorPattern marks a command Failed when a line of its output
	// matches. Empty selects the vendor's default pattern.
	ErrorPattern string
}

// DefaultConfig derives manager defaults from the process settings.
func DefaultConfig() Config {
	s := settings.Get()
	return Config{
		MaxConcurrency:   s.Concurrency.MaxConnections,
		CommandTimeout:   s.CommandTimeout(),
		FailureStrategy:  ContinueDevice,
		ReuseConnections: true,
	}
}

// DeviceCommands pairs one device with its ordered command queue.
type DeviceCommands struct {
	Config   device.Config
	Commands []string
}
