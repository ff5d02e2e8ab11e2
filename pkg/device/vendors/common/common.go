// Package common holds pieces shared by the vendor drivers: option
// conversion between the device surface and the connection layer, session
// state, and the per-dialect default config error patterns.
package common

import (
	"github.com/moimran/netssh-go/pkg/connection"
	"github.com/moimran/netssh-go/pkg/device"
)

// State is the mode triple every vendor machine tracks.
type State struct {
	Connected   bool
	Privileged  bool
	Configuring bool
}

// ToSendOptions converts device-surface options to connection options.
// A nil input yields nil so the connection layer applies its defaults.
func ToSendOptions(o *device.SendOptions) *connection.SendCommandOptions {
	if o == nil {
		return nil
	}
	return &connection.SendCommandOptions{
		ExpectString:   o.ExpectString,
		ReadTimeout:    o.ReadTimeout,
		AutoFindPrompt: o.AutoFindPrompt,
		StripPrompt:    o.StripPrompt,
		StripCommand:   o.StripCommand,
		Normalize:      o.Normalize,
		CmdVerify:      o.CmdVerify,
	}
}

// ToConfigSetOptions converts device-surface config options to connection
// options.
func ToConfigSetOptions(o *device.ConfigSetOpts) *connection.ConfigSetOptions {
	if o == nil {
		return nil
	}
	return &connection.ConfigSetOptions{
		SendCommandOptions: *ToSendOptions(&o.SendOptions),
		EnterConfigMode:    o.EnterConfigMode,
		ExitConfigMode:     o.ExitConfigMode,
		ConfigModeCommand:  o.ConfigModeCommand,
		ExitConfigCommand:  o.ExitConfigCommand,
		ErrorPattern:       o.ErrorPattern,
		Terminator:         o.Terminator,
		BypassCommands:     o.BypassCommands,
		FastCLI:            o.FastCLI,
	}
}

// DefaultErrorPattern returns the config error regex a dialect's CLI prints
// on rejected commands. SendConfigSet applies no pattern by itself; callers
// opt in by passing one of these.
func DefaultErrorPattern(tag device.DeviceType) string {
	switch tag {
	case device.JuniperJunos:
		return `(?i)(syntax error|unknown command|missing argument|error:)`
	case device.CiscoXR:
		return `(?i)(% invalid input|% incomplete command|% ambiguous command|failed to commit)`
	default:
		// Cisco IOS family, NX-OS, ASA, EOS share the % marker style.
		return `(?i)(% invalid input|% incomplete command|% ambiguous command|% unknown command|error:)`
	}
}
