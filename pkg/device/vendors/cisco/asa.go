package cisco

import (
	"github.com/moimran/netssh-go/pkg/device"
)

// ASADevice drives Cisco ASA firewalls. Most show commands require enable,
// so auto-enable stays on unless explicitly disabled. Multi-context
// firewalls track which context the session is changed to.
type ASADevice struct {
	*Device

	// context is the security context after a changeto, empty for system.
	context string
}

// NewASA creates an ASA state machine.
func NewASA(cfg device.Config) *ASADevice {
	return &ASADevice{Device: newDevice(cfg, dialect{
		tag:           device.CiscoASA,
		promptSuffix:  `[>#]`,
		pagingCommand: "terminal pager 0",
		// Older images only accept the lines spelling.
		pagingFallback: "terminal pager lines 0",
		widthCommand:   "terminal width %d",
		saveCommand:    "write memory",
		configCommand:  "configure terminal",
		exitConfig:     "end",
	})}
}

// ChangeTo switches the session to another security context (or "system")
// and re-captures the prompt, which changes with the context.
func (a *ASADevice) ChangeTo(context string) error {
	cmd := "changeto system"
	if context != "" && context != "system" {
		cmd = "changeto context " + context
	}
	if _, err := a.SendCommand(cmd, nil); err != nil {
		return err
	}
	if _, err := a.SetBasePrompt(); err != nil {
		return err
	}
	if context == "system" {
		a.context = ""
	} else {
		a.context = context
	}
	return nil
}

// Context returns the current security context, empty for system.
func (a *ASADevice) Context() string { return a.context }
