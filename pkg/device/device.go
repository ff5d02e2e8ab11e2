// Package device defines the device configuration, the recognized
// device-type tags, and the capability set every vendor driver implements.
package device

import (
	"time"
)

// DeviceType tags the vendor dialect a device speaks.
type DeviceType string

// Recognized device-type tags.
const (
	CiscoIOS     DeviceType = "cisco_ios"
	CiscoXE      DeviceType = "cisco_xe"
	CiscoNXOS    DeviceType = "cisco_nxos"
	CiscoASA     DeviceType = "cisco_asa"
	CiscoXR      DeviceType = "cisco_xr"
	AristaEOS    DeviceType = "arista_eos"
	JuniperJunos DeviceType = "juniper_junos"
	Autodetect   DeviceType = "autodetect"
)

// Known reports whether tag is a recognized concrete device type.
// Autodetect is not a concrete type; the factory resolves it first.
func Known(tag DeviceType) bool {
	switch tag {
	case CiscoIOS, CiscoXE, CiscoNXOS, CiscoASA, CiscoXR, AristaEOS, JuniperJunos:
		return true
	}
	return false
}

// Config describes one device to connect to. Immutable after construction.
type Config struct {
	DeviceType DeviceType
	Host       string
	Username   string
	Password   string
	// Secret is the enable secret for privileged mode, when required.
	Secret  string
	KeyFile string
	// Port, when zero, comes from a Port entry for the host in ~/.ssh/config,
	// else from the settings default (22).
	Port uint16
	// ConnectTimeout defaults to the settings connect timeout when zero.
	ConnectTimeout time.Duration
	// SessionLogPath, when set, writes the session transcript to this file.
	SessionLogPath string
}

// ID returns the identifier results are keyed by.
func (c Config) ID() string {
	return c.Host
}

// SendOptions mirrors the base connection's send-command options at the
// device surface so callers do not import the connection package.
type SendOptions struct {
	ExpectString   string
	ReadTimeout    time.Duration
	AutoFindPrompt bool
	StripPrompt    bool
	StripCommand   bool
	Normalize      bool
	CmdVerify      bool
}

// ConfigSetOpts mirrors the base connection's config-set options.
type ConfigSetOpts struct {
	SendOptions
	EnterConfigMode   bool
	ExitConfigMode    bool
	ConfigModeCommand string
	ExitConfigCommand string
	ErrorPattern      string
	Terminator        string
	BypassCommands    string
	FastCLI           bool
}

// NetworkDeviceConnection is the capability set every vendor state machine
// provides. A connection is single-owner: it must not be shared across
// tasks.
type NetworkDeviceConnection interface {
	// Connect dials the device and runs vendor session preparation.
	Connect() error
	// Close tears the session down. Safe when already closed.
	Close() error
	// IsConnected reports whether the session is open.
	IsConnected() bool

	// DeviceTypeTag returns the concrete tag this driver implements.
	DeviceTypeTag() DeviceType
	// DeviceID returns the identifier results are keyed by.
	DeviceID() string

	// SendCommand runs one command and returns its cleaned output.
	SendCommand(cmd string, opts *SendOptions) (string, error)
	// SendCommands runs commands in order, concatenating the outputs.
	SendCommands(cmds []string, opts *SendOptions) (string, error)
	// SendConfigSet pushes configuration commands.
	SendConfigSet(cmds []string, opts *ConfigSetOpts) (string, error)

	// CheckEnableMode reports whether the session is privileged.
	CheckEnableMode() (bool, error)
	// EnterEnableMode elevates to privileged mode.
	EnterEnableMode() error
	// ExitEnableMode drops privileges.
	ExitEnableMode() error

	// CheckConfigMode reports whether the session is in config mode.
	CheckConfigMode() (bool, error)
	// EnterConfigMode enters configuration mode; cmd overrides the dialect
	// default when non-empty.
	EnterConfigMode(cmd string) error
	// ExitConfigMode leaves configuration mode.
	ExitConfigMode(cmd string) error

	// SaveConfiguration persists running config per the vendor's semantics
	// and returns the device output.
	SaveConfiguration() (string, error)

	// SetTerminalWidth fixes the line length for the session.
	SetTerminalWidth(width int) error
	// DisablePaging stops the device pausing long output.
	DisablePaging() error
	// SetBasePrompt captures the prompt and returns the base portion.
	SetBasePrompt() (string, error)
}
