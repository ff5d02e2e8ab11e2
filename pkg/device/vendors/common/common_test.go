package common

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moimran/netssh-go/pkg/device"
)

func TestToSendOptionsNil(t *testing.T) {
	assert.Nil(t, ToSendOptions(nil))
	assert.Nil(t, ToConfigSetOptions(nil))
}

func TestToSendOptionsMapsFields(t *testing.T) {
	in := &device.SendOptions{
		ExpectString: `\?`,
		StripPrompt:  true,
		CmdVerify:    true,
	}
	out := ToSendOptions(in)

	require.NotNil(t, out)
	assert.Equal(t, `\?`, out.ExpectString)
	assert.True(t, out.StripPrompt)
	assert.True(t, out.CmdVerify)
	assert.False(t, out.Normalize)
}

func TestDefaultErrorPatterns(t *testing.T) {
	tests := []struct {
		tag     device.DeviceType
		line    string
		matches bool
	}{
		{device.CiscoIOS, "% Invalid input detected at '^' marker.", true},
		{device.CiscoIOS, "% Incomplete command.", true},
		{device.CiscoIOS, "Interface GigabitEthernet0/1 is up", false},
		{device.CiscoNXOS, "% Invalid input detected", true},
		{device.CiscoXR, "Failed to commit one or more configuration items", true},
		{device.JuniperJunos, "syntax error, expecting <command>", true},
		{device.JuniperJunos, "error: configuration check-out failed", true},
		{device.JuniperJunos, "Hostname: fw1", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.tag)+"/"+tt.line, func(t *testing.T) {
			re := regexp.MustCompile(DefaultErrorPattern(tt.tag))
			assert.Equal(t, tt.matches, re.MatchString(tt.line))
		})
	}
}
