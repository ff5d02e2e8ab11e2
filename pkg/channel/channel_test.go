package channel

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moimran/netssh-go/internal/bufpool"
	"github.com/moimran/netssh-go/internal/errors"
	chtest "github.com/moimran/netssh-go/pkg/channel/testing"
)

func newTestChannel(t *testing.T, fake *chtest.FakeDevice) *Channel {
	t.Helper()
	pool := bufpool.New(4, 16384)
	c := New(fake, pool, nil)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestReadUntilPromptInitialBanner(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeBase)
	c := newTestChannel(t, fake)

	out, err := c.ReadUntilPrompt(regexp.MustCompile(`^router1[>#]\s*$`), 2*time.Second)
	require.NoError(t, err)
	assert.Contains(t, out, "router1>")
}

func TestWriteAndReadUntilPattern(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	fake.Responses["show clock"] = "12:00:00.000 UTC Mon Jan 1 2024"
	c := newTestChannel(t, fake)

	require.NoError(t, c.WriteChannel([]byte("show clock\n")))

	out, err := c.ReadUntilPattern(regexp.MustCompile(`UTC`), 2*time.Second)
	require.NoError(t, err)
	assert.Contains(t, out, "12:00:00.000 UTC")
}

func TestReadUntilPatternTimeoutCarriesBuffer(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	fake.Hang["ping 10.0.0.2"] = true
	c := newTestChannel(t, fake)

	require.NoError(t, c.WriteChannel([]byte("ping 10.0.0.2\n")))

	start := time.Now()
	_, err := c.ReadUntilPattern(regexp.MustCompile(`never-appears`), 500*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPattern))
	assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond)
	assert.Less(t, elapsed, 1500*time.Millisecond)

	var nErr *errors.Error
	require.ErrorAs(t, err, &nErr)
	assert.Contains(t, nErr.Buffer, "ping 10.0.0.2")
}

func TestReadBufferEmptyBeforeDeadline(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeBase)
	c := newTestChannel(t, fake)

	// Drain the banner first.
	_, err := c.ReadChannel()
	require.NoError(t, err)

	// With nothing pending, a poll returns empty, not an error.
	chunk, err := c.ReadBuffer(0)
	require.NoError(t, err)
	assert.Nil(t, chunk)
}

func TestReadChannelDrains(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeEnable)
	fake.Responses["show version"] = "Cisco IOS Software, Version 15.2"
	c := newTestChannel(t, fake)

	require.NoError(t, c.WriteChannel([]byte("show version\n")))
	time.Sleep(50 * time.Millisecond)

	out, err := c.ReadChannel()
	require.NoError(t, err)
	assert.Contains(t, out, "Cisco IOS Software")
}

func TestLastNonEmptyLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "a\nb\nc", "c"},
		{"trailing newline", "a\nb\n", "b"},
		{"trailing blanks", "a\nrouter1#  \n\n \n", "router1#"},
		{"empty", "\n\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lastNonEmptyLine(tt.in))
		})
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	fake := chtest.NewFakeDevice("router1", chtest.ModeBase)
	pool := bufpool.New(4, 16384)
	c := New(fake, pool, nil)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
