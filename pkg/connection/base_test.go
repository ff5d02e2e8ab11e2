package connection

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moimran/netssh-go/internal/errors"
	chtest "github.com/moimran/netssh-go/pkg/channel/testing"
	"github.com/moimran/netssh-go/pkg/settings"
)

func TestMain(m *testing.M) {
	// Shrink the de-bounce delay so session handshakes stay fast in tests.
	settings.Update(func(s *settings.Settings) {
		s.Network.CommandExecDelayMs = 1
	})
	m.Run()
}

func newTestConnection(t *testing.T, fake *chtest.FakeDevice) *BaseConnection {
	t.Helper()
	conn := NewWithTransport(fake, "router1")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func preparedConnection(t *testing.T, fake *chtest.FakeDevice) *BaseConnection {
	t.Helper()
	conn := newTestConnection(t, fake)
	_, err := conn.SetBasePrompt(`[>#]`)
	require.NoError(t, err)
	return conn
}

func TestSetBasePrompt(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	conn := newTestConnection(t, fake)

	base, err := conn.SetBasePrompt(`[>#]`)
	require.NoError(t, err)
	assert.Equal(t, "router1", base)
	assert.Equal(t, "router1", conn.BasePrompt)
	require.NotNil(t, conn.PromptRegex())
	assert.True(t, conn.PromptRegex().MatchString("router1#"))
	assert.True(t, conn.PromptRegex().MatchString("router1(config)#"))
	assert.False(t, conn.PromptRegex().MatchString("other#"))
}

func TestSendCommandStripsPromptAndEcho(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	fake.Responses["show version"] = "Cisco IOS Software, Version 15.2(4)M7"
	conn := preparedConnection(t, fake)

	out, err := conn.SendCommand("show version", nil)
	require.NoError(t, err)

	assert.Contains(t, out, "Cisco IOS Software")
	for _, line := range strings.Split(out, "\n") {
		assert.NotEqual(t, "router1#", strings.TrimSpace(line))
	}
	assert.NotContains(t, out, "show version\n")
}

func TestSendCommandKeepsPromptWhenAsked(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	fake.Responses["show clock"] = "12:00:00 UTC"
	conn := preparedConnection(t, fake)

	opts := DefaultSendCommandOptions()
	opts.StripPrompt = false
	opts.StripCommand = false
	out, err := conn.SendCommand("show clock", &opts)
	require.NoError(t, err)

	assert.Contains(t, out, "router1#")
	assert.Contains(t, out, "show clock")
}

func TestSendCommandWithExpectString(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	fake.Responses["copy run start"] = "Destination filename [startup-config]?"
	conn := preparedConnection(t, fake)

	out, err := conn.SendCommand("copy run start", &SendCommandOptions{
		ExpectString: `filename \[startup-config\]\?`,
		Normalize:    true,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Destination filename")
}

func TestSendCommandCmdVerify(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	fake.Responses["show ip interface brief"] = "Interface   IP-Address   Status"
	conn := preparedConnection(t, fake)

	opts := DefaultSendCommandOptions()
	opts.CmdVerify = true
	out, err := conn.SendCommand("show ip interface brief", &opts)
	require.NoError(t, err)
	assert.NotContains(t, out, "show ip interface brief")
	assert.Contains(t, out, "IP-Address")
}

func TestSendCommandPatternTimeout(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	fake.Hang["ping 10.0.0.2 repeat 100000"] = true
	conn := preparedConnection(t, fake)

	_, err := conn.SendCommand("ping 10.0.0.2 repeat 100000", &SendCommandOptions{
		ReadTimeout: 300 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPattern))
}

func TestSendConfigSetErrorPattern(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeConfig)
	fake.Responses["ip rooute 0.0.0.0"] = "% Invalid input detected at '^' marker."
	conn := preparedConnection(t, fake)

	_, err := conn.SendConfigSet([]string{"ip rooute 0.0.0.0"}, &ConfigSetOptions{
		SendCommandOptions: DefaultSendCommandOptions(),
		EnterConfigMode:    false,
		ExitConfigMode:     false,
		ErrorPattern:       `% Invalid input`,
		Terminator:         `#`,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "ip rooute")
}

func TestSendConfigSetNoErrorPatternByDefault(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeConfig)
	fake.Responses["ip rooute 0.0.0.0"] = "% Invalid input detected at '^' marker."
	conn := preparedConnection(t, fake)

	// Without an explicit pattern, suspicious output does not fail the set.
	_, err := conn.SendConfigSet([]string{"ip rooute 0.0.0.0"}, &ConfigSetOptions{
		SendCommandOptions: DefaultSendCommandOptions(),
		EnterConfigMode:    false,
		ExitConfigMode:     false,
		Terminator:         `#`,
	})
	assert.NoError(t, err)
}

func TestHealthProbe(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	conn := preparedConnection(t, fake)

	assert.True(t, conn.HealthProbe())

	require.NoError(t, conn.Close())
	assert.False(t, conn.HealthProbe())
}

func TestFindPromptError(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	conn := newTestConnection(t, fake)
	// A device that never answers the newline probe.
	fake.Close()

	_, err := conn.FindPrompt()
	require.Error(t, err)
}

func TestIsConnectedLifecycle(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	conn := NewWithTransport(fake, "router1")

	assert.True(t, conn.IsConnected())
	require.NoError(t, conn.Close())
	assert.False(t, conn.IsConnected())
	require.NoError(t, conn.Close())
}
