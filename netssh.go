// Package netssh drives heterogeneous network devices (routers, switches,
// firewalls) over interactive SSH: vendor prompt negotiation, privileged and
// configuration mode handling, pattern-terminated reads, and parallel
// execution across many devices with bounded concurrency.
//
// This file is the convenience surface; the packages under pkg/ carry the
// implementation and can be imported directly.
package netssh

import (
	"github.com/moimran/netssh-go/pkg/autodetect"
	"github.com/moimran/netssh-go/pkg/device"
	"github.com/moimran/netssh-go/pkg/device/factory"
)

// Config describes one device to connect to.
type Config = device.Config

// DeviceType tags the vendor dialect a device speaks.
type DeviceType = device.DeviceType

// Device is the capability set every vendor state machine provides.
type Device = device.NetworkDeviceConnection

// CreateDevice resolves the config's device type to a vendor state machine.
// The returned device is not yet connected.
func CreateDevice(cfg Config) (Device, error) {
	return factory.CreateDevice(cfg)
}

// Autodetect identifies a device's type from live command output. The
// config's device type must be "autodetect". Returns empty when no device
// family scores above the detection threshold.
func Autodetect(cfg Config) (DeviceType, error) {
	return autodetect.Autodetect(cfg)
}
