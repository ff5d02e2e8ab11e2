package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moimran/netssh-go/internal/errors"
	"github.com/moimran/netssh-go/pkg/device"
	"github.com/moimran/netssh-go/pkg/device/vendors/arista"
	"github.com/moimran/netssh-go/pkg/device/vendors/cisco"
	"github.com/moimran/netssh-go/pkg/device/vendors/juniper"
)

func TestCreateDeviceTypes(t *testing.T) {
	tests := []struct {
		tag  device.DeviceType
		want interface{}
	}{
		{device.CiscoIOS, (*cisco.IOSDevice)(nil)},
		{device.CiscoXE, (*cisco.IOSDevice)(nil)},
		{device.CiscoNXOS, (*cisco.NXOSDevice)(nil)},
		{device.CiscoXR, (*cisco.XRDevice)(nil)},
		{device.CiscoASA, (*cisco.ASADevice)(nil)},
		{device.AristaEOS, (*arista.EOSDevice)(nil)},
		{device.JuniperJunos, (*juniper.JunosDevice)(nil)},
	}

	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			conn, err := CreateDevice(device.Config{DeviceType: tt.tag, Host: "10.0.0.1"})
			require.NoError(t, err)
			assert.IsType(t, tt.want, conn)
			assert.Equal(t, tt.tag, conn.DeviceTypeTag())
			assert.False(t, conn.IsConnected())
		})
	}
}

func TestCreateDeviceUnknownTag(t *testing.T) {
	_, err := CreateDevice(device.Config{DeviceType: "vendor_from_mars", Host: "10.0.0.1"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrDeviceType))
}

func TestCreateDeviceEmptyTag(t *testing.T) {
	_, err := CreateDevice(device.Config{Host: "10.0.0.1"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrDeviceType))
}
