// Package factory resolves a device-type tag to a concrete vendor state
// machine. The "autodetect" tag runs the autodetector first, then recurses
// with the detected tag.
package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/moimran/netssh-go/internal/errors"
	"github.com/moimran/netssh-go/internal/logging"
	"github.com/moimran/netssh-go/pkg/autodetect"
	"github.com/moimran/netssh-go/pkg/device"
	"github.com/moimran/netssh-go/pkg/device/vendors/arista"
	"github.com/moimran/netssh-go/pkg/device/vendors/cisco"
	"github.com/moimran/netssh-go/pkg/device/vendors/juniper"
)

// CreateDevice builds the state machine for the config's device type. The
// returned connection is not yet connected; call Connect on it.
//
// For "autodetect" a probe session is opened, scored, and closed before the
// resolved driver is built; the driver then reconnects. One extra connect is
// the cost of keeping probe sessions and vendor sessions independent.
func CreateDevice(cfg device.Config) (device.NetworkDeviceConnection, error) {
	switch cfg.DeviceType {
	case device.CiscoIOS:
		return cisco.NewIOS(cfg), nil
	case device.CiscoXE:
		return cisco.NewXE(cfg), nil
	case device.CiscoNXOS:
		return cisco.NewNXOS(cfg), nil
	case device.CiscoXR:
		return cisco.NewXR(cfg), nil
	case device.CiscoASA:
		return cisco.NewASA(cfg), nil
	case device.AristaEOS:
		return arista.NewEOS(cfg), nil
	case device.JuniperJunos:
		return juniper.NewJunos(cfg), nil

	case device.Autodetect:
		detected, err := autodetect.Autodetect(cfg)
		if err != nil {
			return nil, err
		}
		if detected == "" || !device.Known(detected) {
			return nil, errors.New(errors.ErrAutodetect,
				fmt.Sprintf("could not identify device type for %s", cfg.Host),
				"Specify the device type explicitly in the config.")
		}
		logging.L().Info("autodetected device type",
			zap.String("host", cfg.Host), zap.String("device_type", string(detected)))
		resolved := cfg
		resolved.DeviceType = detected
		return CreateDevice(resolved)

	default:
		return nil, errors.New(errors.ErrDeviceType,
			fmt.Sprintf("unknown device type %q", cfg.DeviceType),
			"Recognized tags: cisco_ios, cisco_xe, cisco_nxos, cisco_asa, cisco_xr, arista_eos, juniper_junos, autodetect.")
	}
}
