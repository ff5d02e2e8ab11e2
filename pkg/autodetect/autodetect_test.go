package autodetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chtest "github.com/moimran/netssh-go/pkg/channel/testing"
	"github.com/moimran/netssh-go/pkg/connection"
	"github.com/moimran/netssh-go/pkg/device"
	"github.com/moimran/netssh-go/pkg/settings"
)

func TestMain(m *testing.M) {
	settings.Update(func(s *settings.Settings) {
		s.Network.CommandExecDelayMs = 1
	})
	m.Run()
}

func detect(t *testing.T, fake *chtest.FakeDevice) device.DeviceType {
	t.Helper()
	conn := connection.NewWithTransport(fake, "probe")
	t.Cleanup(func() { _ = conn.Close() })

	detected, err := DetectWithConnection(conn)
	require.NoError(t, err)
	return detected
}

func TestDetectNXOS(t *testing.T) {
	fake := chtest.NewFakeDevice("switch1", chtest.ModeEnable)
	fake.Responses["show version"] = "Cisco Nexus Operating System (NX-OS) Software\n" +
		"NXOS: version 9.3(8)"

	assert.Equal(t, device.CiscoNXOS, detect(t, fake))
}

func TestDetectIOS(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	fake.Responses["show version"] = "Cisco IOS Software, C2900 Software, Version 15.2(4)M7"

	assert.Equal(t, device.CiscoIOS, detect(t, fake))
}

func TestDetectXE(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	fake.Responses["show version"] = "Cisco IOS XE Software, Version 17.03.04a"

	assert.Equal(t, device.CiscoXE, detect(t, fake))
}

func TestDetectXRViaBriefProbe(t *testing.T) {
	fake := chtest.NewFakeDevice("xr1", chtest.ModeEnable)
	// The main show version is unhelpful; the brief variant identifies XR.
	fake.Responses["show version"] = "some banner text"
	fake.Responses["show version brief"] = "Cisco IOS XR Software, Version 7.3.2"

	assert.Equal(t, device.CiscoXR, detect(t, fake))
}

func TestDetectJunos(t *testing.T) {
	fake := chtest.NewFakeDevice("fw1", chtest.ModeEnable)
	fake.Responses["show version"] = "Hostname: fw1\nModel: srx300\nJUNOS Software Release [21.4R3.15]"

	assert.Equal(t, device.JuniperJunos, detect(t, fake))
}

func TestDetectEOS(t *testing.T) {
	fake := chtest.NewFakeDevice("leaf1", chtest.ModeEnable)
	fake.Responses["show version"] = "Arista DCS-7050SX3-48YC8\nSoftware image version: 4.27.3M"

	assert.Equal(t, device.AristaEOS, detect(t, fake))
}

func TestDetectASA(t *testing.T) {
	fake := chtest.NewFakeDevice("asa1", chtest.ModeEnable)
	fake.Responses["show version"] = "Cisco Adaptive Security Appliance Software Version 9.16(2)"

	assert.Equal(t, device.CiscoASA, detect(t, fake))
}

func TestDetectLinuxFallback(t *testing.T) {
	fake := chtest.NewFakeDevice("server1", chtest.ModeEnable)
	fake.Responses["uname -a"] = "Linux server1 5.15.0-76-generic x86_64 GNU/Linux"

	assert.Equal(t, device.DeviceType("linux"), detect(t, fake))
}

func TestNoMatchReturnsEmpty(t *testing.T) {
	fake := chtest.NewFakeDevice("mystery1", chtest.ModeEnable)
	fake.Responses["show version"] = "FooOS v1.0, unrecognizable"

	assert.Equal(t, device.DeviceType(""), detect(t, fake))
}

func TestInvalidResponsesDisqualified(t *testing.T) {
	fake := chtest.NewFakeDevice("box1", chtest.ModeEnable)
	// An error marker poisons the output even if a pattern would match.
	fake.Responses["show version"] = "% Invalid input detected\nCisco IOS Software"

	assert.Equal(t, device.DeviceType(""), detect(t, fake))
}

func TestAutodetectRejectsConcreteType(t *testing.T) {
	_, err := Autodetect(device.Config{DeviceType: device.CiscoIOS, Host: "10.0.0.1"})
	require.Error(t, err)
}
