// Package arista implements the Arista EOS state machine. EOS deliberately
// mirrors the IOS command surface, so the driver rides the shared Cisco
// machinery with its own tag.
package arista

import (
	"github.com/moimran/netssh-go/pkg/device"
	"github.com/moimran/netssh-go/pkg/device/vendors/cisco"
)

// EOSDevice drives Arista EOS.
type EOSDevice struct {
	*cisco.Device
}

// NewEOS creates an EOS state machine.
func NewEOS(cfg device.Config) *EOSDevice {
	return &EOSDevice{Device: cisco.NewDialect(cfg, cisco.DialectSpec{
		Tag:           device.AristaEOS,
		PromptSuffix:  `[>#]`,
		PagingCommand: "terminal length 0",
		WidthCommand:  "terminal width %d",
		SaveCommand:   "write memory",
		ConfigCommand: "configure terminal",
		ExitConfig:    "end",
	})}
}
