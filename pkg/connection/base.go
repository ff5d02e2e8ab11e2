// Package connection implements the command/response contract over one
// interactive SSH channel: prompt capture, pattern-terminated reads, and the
// send-command / send-config-set procedures shared by every vendor driver.
package connection

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/moimran/netssh-go/internal/bufpool"
	"github.com/moimran/netssh-go/internal/errors"
	"github.com/moimran/netssh-go/internal/logging"
	"github.com/moimran/netssh-go/internal/metrics"
	"github.com/moimran/netssh-go/internal/sessionlog"
	"github.com/moimran/netssh-go/pkg/channel"
	"github.com/moimran/netssh-go/pkg/settings"
)

// promptFindAttempts bounds how many newline probes SetBasePrompt sends
// before giving up with a PROMPT error.
const promptFindAttempts = 3

// BaseConnection drives one device CLI session. It owns its Channel
// exclusively; a BaseConnection must be pinned to a single task at a time.
type BaseConnection struct {
	client *ssh.Client
	ch     *channel.Channel
	pool   *bufpool.Pool

	// BasePrompt is the stable leading portion of the device prompt,
	// captured during session preparation.
	BasePrompt string

	promptSuffix string
	promptRegex  *regexp.Regexp

	deviceID      string
	connected     bool
	keepaliveStop chan struct{}
}

// Connect dials the device and opens an interactive shell, returning a ready
// BaseConnection. Session preparation (prompt capture, paging) is the vendor
// driver's job.
func Connect(params ConnectParams) (*BaseConnection, error) {
	s := settings.Get()
	resolved := resolve(params)

	client, err := dial(resolved)
	if err != nil {
		return nil, err
	}

	_, transport, err := openShell(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	slog := sessionlog.Open(resolved.DeviceID, sessionlog.Config{
		Enabled:       s.Logging.EnableSessionLog || resolved.SessionLogPath != "",
		Dir:           s.Logging.SessionLogPath,
		Path:          resolved.SessionLogPath,
		LogBinaryData: s.Logging.LogBinaryData,
	})

	pool := bufpool.New(s.Buffer.BufferPoolSize, s.Buffer.BufferReuseThreshold)
	conn := &BaseConnection{
		client:        client,
		ch:            channel.New(transport, pool, slog),
		pool:          pool,
		deviceID:      resolved.DeviceID,
		connected:     true,
		keepaliveStop: make(chan struct{}),
	}
	go keepalive(client, conn.keepaliveStop)

	logging.L().Debug("connected",
		zap.String("device", resolved.DeviceID),
		zap.String("address", resolved.address))
	return conn, nil
}

// NewWithTransport builds a BaseConnection over an existing transport.
// Tests use it to run a connection over a scripted fake transport.
func NewWithTransport(t channel.Transport, deviceID string) *BaseConnection {
	s := settings.Get()
	pool := bufpool.New(s.Buffer.BufferPoolSize, s.Buffer.BufferReuseThreshold)
	return &BaseConnection{
		ch:        channel.New(t, pool, nil),
		pool:      pool,
		deviceID:  deviceID,
		connected: true,
	}
}

// DeviceID returns the label this session logs under.
func (c *BaseConnection) DeviceID() string { return c.deviceID }

// IsConnected reports whether Close has not yet been called.
func (c *BaseConnection) IsConnected() bool { return c.connected }

// PromptRegex returns the compiled prompt matcher, or nil before session
// preparation.
func (c *BaseConnection) PromptRegex() *regexp.Regexp { return c.promptRegex }

// Close shuts the channel and the SSH client.
func (c *BaseConnection) Close() error {
	if !c.connected {
		return nil
	}
	c.connected = false
	if c.keepaliveStop != nil {
		close(c.keepaliveStop)
	}
	err := c.ch.Close()
	if c.client != nil {
		if cerr := c.client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// WriteChannel writes raw bytes to the device.
func (c *BaseConnection) WriteChannel(data string) error {
	return c.ch.WriteChannel([]byte(data))
}

// ReadChannel drains currently available output.
func (c *BaseConnection) ReadChannel() (string, error) {
	return c.ch.ReadChannel()
}

// ReadUntilPattern reads until pattern matches or the deadline passes.
func (c *BaseConnection) ReadUntilPattern(pattern string, deadline time.Duration) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrPattern, "invalid expect pattern")
	}
	return c.ch.ReadUntilPattern(re, deadline)
}

// ReadUntilPrompt reads until the last non-empty line matches the prompt.
func (c *BaseConnection) ReadUntilPrompt(deadline time.Duration) (string, error) {
	if c.promptRegex == nil {
		return "", errors.New(errors.ErrPrompt,
			"prompt not established; run session preparation first", "")
	}
	return c.ch.ReadUntilPrompt(c.promptRegex, deadline)
}

// ClearBuffer drains anything pending on the channel.
func (c *BaseConnection) ClearBuffer() {
	out, _ := c.ch.ReadChannel()
	if out != "" {
		logging.L().Debug("cleared buffer",
			zap.String("device", c.deviceID), zap.Int("bytes", len(out)))
	}
}

// FindPrompt sends a newline and returns the last non-empty line the device
// answers with, ANSI-stripped. Retries a few times before a PROMPT error.
func (c *BaseConnection) FindPrompt() (string, error) {
	for attempt := 0; attempt < promptFindAttempts; attempt++ {
		if err := c.WriteChannel("\n"); err != nil {
			return "", err
		}
		time.Sleep(settings.Get().CommandExecDelay())

		out, err := c.ch.ReadChannel()
		if err != nil {
			return "", err
		}
		out = StripAnsiEscapeCodes(out)
		if line := lastNonEmptyLine(out); line != "" {
			return line, nil
		}
	}
	return "", errors.New(errors.ErrPrompt,
		fmt.Sprintf("could not detect prompt on %s", c.deviceID),
		"The device may be slow to answer or may print a banner without a prompt; raise network.command_exec_delay_ms.")
}

// SetBasePrompt captures the device prompt and compiles the prompt regex
// from the given vendor suffix class (e.g. `[>#]`). The base prompt is the
// captured line with one trailing metacharacter stripped.
func (c *BaseConnection) SetBasePrompt(suffixClass string) (string, error) {
	prompt, err := c.FindPrompt()
	if err != nil {
		return "", err
	}

	prompt = strings.TrimSpace(prompt)
	if len(prompt) < 2 {
		return "", errors.New(errors.ErrPrompt,
			fmt.Sprintf("prompt %q too short to derive a base prompt", prompt), "")
	}
	c.BasePrompt = prompt[:len(prompt)-1]
	return c.SetPromptSuffix(suffixClass)
}

// SetPromptSuffix recompiles the prompt regex with a new trailing character
// class. Entering and leaving config mode redefines the expected suffix.
func (c *BaseConnection) SetPromptSuffix(suffixClass string) (string, error) {
	c.promptSuffix = suffixClass
	pattern := `^` + regexp.QuoteMeta(c.BasePrompt) + `\S*` + suffixClass + `\s*$`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrPrompt, "invalid prompt suffix class")
	}
	c.promptRegex = re
	return c.BasePrompt, nil
}

// cmdVerify reads until the echoed command appears or the deadline passes,
// polling the channel at its fixed interval; the wait does not back off.
// The echo must be the exact text sent, not a fuzzy match.
func (c *BaseConnection) cmdVerify(cmd string, deadline time.Duration) error {
	pattern := `(?m)^.*` + regexp.QuoteMeta(cmd) + `\r?$`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errors.Wrap(err, errors.ErrPattern, "invalid command echo pattern")
	}
	if _, err := c.ch.ReadUntilPattern(re, deadline); err != nil {
		return err
	}
	return nil
}

// SendCommand writes one command and reads the response until the prompt or
// an expect pattern, applying the option set. A nil opts uses the defaults.
func (c *BaseConnection) SendCommand(cmd string, opts *SendCommandOptions) (string, error) {
	s := settings.Get()
	o := DefaultSendCommandOptions()
	if opts != nil {
		o = *opts
	}
	readTimeout := o.ReadTimeout
	if readTimeout == 0 {
		readTimeout = s.CommandTimeout()
	}

	if s.Buffer.AutoClearBuffer {
		c.ClearBuffer()
	}
	if o.AutoFindPrompt && c.BasePrompt != "" {
		if _, err := c.SetBasePrompt(c.promptSuffix); err != nil {
			return "", err
		}
	}

	if err := c.WriteChannel(cmd + "\n"); err != nil {
		return "", err
	}

	if o.CmdVerify {
		if err := c.cmdVerify(cmd, readTimeout); err != nil {
			return "", err
		}
	}

	time.Sleep(s.CommandExecDelay())

	var output string
	var err error
	if o.ExpectString != "" {
		output, err = c.ReadUntilPattern(o.ExpectString, readTimeout)
	} else {
		output, err = c.ReadUntilPrompt(readTimeout)
	}
	if err != nil {
		metrics.CommandsExecuted.WithLabelValues("failed").Inc()
		return "", err
	}

	if o.Normalize {
		output = Normalize(output)
	}
	if o.StripCommand {
		output = stripCommandEcho(output, cmd)
	}
	if o.StripPrompt {
		output = stripTrailingPrompt(output, c.promptRegex)
	}

	metrics.CommandsExecuted.WithLabelValues("success").Inc()
	return output, nil
}

// SendConfigSet pushes a sequence of configuration commands. Mode
// transitions use the commands in opts; vendor drivers fill their dialect's
// defaults before delegating here. If any output line matches ErrorPattern
// the set fails with a CONFIG error carrying the offending line.
func (c *BaseConnection) SendConfigSet(commands []string, opts *ConfigSetOptions) (string, error) {
	o := DefaultConfigSetOptions()
	if opts != nil {
		o = *opts
	}
	readTimeout := o.ReadTimeout
	if readTimeout == 0 {
		readTimeout = settings.Get().CommandTimeout()
	}

	var errorRe *regexp.Regexp
	if o.ErrorPattern != "" {
		re, err := regexp.Compile(o.ErrorPattern)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrConfig, "invalid error pattern")
		}
		errorRe = re
	}
	var bypassRe *regexp.Regexp
	if o.BypassCommands != "" {
		re, err := regexp.Compile(o.BypassCommands)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrConfig, "invalid bypass pattern")
		}
		bypassRe = re
	}

	var cumulative strings.Builder

	if o.EnterConfigMode {
		enterCmd := o.ConfigModeCommand
		if enterCmd == "" {
			enterCmd = "configure terminal"
		}
		out, err := c.sendConfigCommand(enterCmd, o.Terminator, readTimeout, !o.FastCLI)
		if err != nil {
			return cumulative.String(), err
		}
		cumulative.WriteString(out)
	}

	for _, cmd := range commands {
		verify := o.CmdVerify && !o.FastCLI
		if bypassRe != nil && bypassRe.MatchString(cmd) {
			verify = false
		}
		out, err := c.sendConfigCommand(cmd, o.Terminator, readTimeout, verify)
		if err != nil {
			return cumulative.String(), err
		}
		cumulative.WriteString(out)

		if errorRe != nil {
			for _, line := range strings.Split(out, "\n") {
				if errorRe.MatchString(line) {
					return cumulative.String(), errors.New(errors.ErrConfig,
						fmt.Sprintf("config command %q failed: %s", cmd, strings.TrimSpace(line)),
						"")
				}
			}
		}
	}

	if o.ExitConfigMode {
		exitCmd := o.ExitConfigCommand
		if exitCmd == "" {
			exitCmd = "end"
		}
		out, err := c.sendConfigCommand(exitCmd, o.Terminator, readTimeout, !o.FastCLI)
		if err != nil {
			return cumulative.String(), err
		}
		cumulative.WriteString(out)
	}

	return Normalize(cumulative.String()), nil
}

// sendConfigCommand writes one config line and reads to the terminator.
func (c *BaseConnection) sendConfigCommand(cmd, terminator string, deadline time.Duration, verify bool) (string, error) {
	if err := c.WriteChannel(cmd + "\n"); err != nil {
		return "", err
	}
	if verify {
		if err := c.cmdVerify(cmd, deadline); err != nil {
			return "", err
		}
	}
	time.Sleep(settings.Get().CommandExecDelay())

	if terminator == "" {
		terminator = `#`
	}
	out, err := c.ReadUntilPattern(terminator, deadline)
	if err != nil {
		return "", err
	}
	return Normalize(out), nil
}

// HealthProbe verifies the session still answers: newline out, prompt back
// within the pattern-match timeout.
func (c *BaseConnection) HealthProbe() bool {
	if !c.connected || c.promptRegex == nil {
		return false
	}
	if err := c.WriteChannel("\n"); err != nil {
		return false
	}
	_, err := c.ch.ReadUntilPrompt(c.promptRegex, settings.Get().PatternTimeout())
	return err == nil
}

// lastNonEmptyLine returns the trailing non-blank line of text.
func lastNonEmptyLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimRight(lines[i], "\r \t")
		if line != "" {
			return line
		}
	}
	return ""
}
