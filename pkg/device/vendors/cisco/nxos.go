package cisco

import (
	"github.com/moimran/netssh-go/pkg/device"
)

// NXOSDevice drives Cisco NX-OS. Prompt suffix admits the bash-style `$`
// NX-OS uses for feature shells, and save goes through copy running-config.
type NXOSDevice struct {
	*Device
}

// NewNXOS creates an NX-OS state machine.
func NewNXOS(cfg device.Config) *NXOSDevice {
	n := &NXOSDevice{Device: newDevice(cfg, dialect{
		tag:           device.CiscoNXOS,
		promptSuffix:  `[#$]`,
		pagingCommand: "terminal length 0",
		widthCommand:  "terminal width %d",
		saveCommand:   "copy running-config startup-config",
		configCommand: "configure terminal",
		exitConfig:    "end",
	})}
	// Switch off the expression-evaluation coloring NX-OS applies to some
	// show output. Harmless on images that reject it.
	n.postPrep = func() error {
		_, _ = n.conn.SendCommand("no terminal color evaluate-expression", nil)
		return nil
	}
	return n
}
