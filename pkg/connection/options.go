package connection

import "time"

// SendCommandOptions controls a single send/read cycle.
type SendCommandOptions struct {
	// ExpectString is a regex terminating the read instead of the prompt.
	ExpectString string
	// ReadTimeout bounds the read phase. Zero uses the settings default.
	ReadTimeout time.Duration
	// AutoFindPrompt re-captures the prompt before reading.
	AutoFindPrompt bool
	// StripPrompt removes the trailing prompt line from the output.
	StripPrompt bool
	// StripCommand removes the leading echoed command from the output.
	StripCommand bool
	// Normalize converts CRLF to LF and trims trailing whitespace per line.
	Normalize bool
	// CmdVerify reads until the echoed command is seen before reading output.
	CmdVerify bool
}

// DefaultSendCommandOptions returns the documented defaults: strip and
// normalize on, verification off.
func DefaultSendCommandOptions() SendCommandOptions {
	return SendCommandOptions{
		StripPrompt:  true,
		StripCommand: true,
		Normalize:    true,
	}
}

// ConfigSetOptions controls a multi-command configuration push.
type ConfigSetOptions struct {
	SendCommandOptions

	// EnterConfigMode transitions into config mode before the first command.
	EnterConfigMode bool
	// ExitConfigMode leaves config mode after the last command.
	ExitConfigMode bool
	// ConfigModeCommand overrides the vendor's enter command.
	ConfigModeCommand string
	// ExitConfigCommand overrides the vendor's exit command.
	ExitConfigCommand string
	// ErrorPattern, when set, fails the set if any output line matches.
	// There is no implicit default; silence means no scanning.
	ErrorPattern string
	// Terminator is the pattern that ends each config command's read.
	Terminator string
	// BypassCommands is a regex of commands sent without verification
	// (e.g. banner payload lines).
	BypassCommands string
	// FastCLI skips per-command echo verification for speed.
	FastCLI bool
}

// DefaultConfigSetOptions returns the documented defaults: enter and exit
// config mode, verify echo per command, no error pattern.
func DefaultConfigSetOptions() ConfigSetOptions {
	o := ConfigSetOptions{
		SendCommandOptions: DefaultSendCommandOptions(),
		EnterConfigMode:    true,
		ExitConfigMode:     true,
		Terminator:         `#`,
	}
	o.CmdVerify = true
	return o
}
