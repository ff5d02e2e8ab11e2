package cisco

import (
	"github.com/moimran/netssh-go/pkg/device"
)

// IOSDevice drives classic Cisco IOS and IOS-XE. The two dialects are
// wire-identical for session handling; only the tag differs.
type IOSDevice struct {
	*Device
}

// NewIOS creates an IOS state machine.
func NewIOS(cfg device.Config) *IOSDevice {
	return &IOSDevice{Device: newDevice(cfg, dialect{
		tag:           device.CiscoIOS,
		promptSuffix:  `[>#]`,
		pagingCommand: "terminal length 0",
		widthCommand:  "terminal width %d",
		saveCommand:   "write memory",
		configCommand: "configure terminal",
		exitConfig:    "end",
	})}
}

// NewXE creates an IOS-XE state machine.
func NewXE(cfg device.Config) *IOSDevice {
	d := NewIOS(cfg)
	d.Device.d.tag = device.CiscoXE
	return d
}
