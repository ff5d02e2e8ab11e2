// Package cisco implements the Cisco-family vendor state machines: IOS,
// IOS-XE, NX-OS, IOS-XR, and ASA. Arista EOS also rides this contract with
// its own dialect settings, matching how the CLIs behave in practice.
package cisco

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moimran/netssh-go/internal/errors"
	"github.com/moimran/netssh-go/internal/logging"
	"github.com/moimran/netssh-go/internal/metrics"
	"github.com/moimran/netssh-go/pkg/connection"
	"github.com/moimran/netssh-go/pkg/device"
	"github.com/moimran/netssh-go/pkg/device/vendors/common"
	"github.com/moimran/netssh-go/pkg/settings"
)

// configPromptPattern matches the decoration Cisco CLIs add in config mode.
var configPromptPattern = regexp.MustCompile(`\)#\s*$`)

// passwordPromptPattern matches the secret prompt after `enable`.
var passwordPromptPattern = regexp.MustCompile(`(?i)ssword`)

// dialect captures the command strings that differ across the family.
type dialect struct {
	tag           device.DeviceType
	promptSuffix  string // regex class for base/enable prompts
	pagingCommand string
	widthCommand  string // format with one %d
	saveCommand   string
	configCommand string
	exitConfig    string
	// pagingFallback is tried when the paging command is rejected.
	pagingFallback string
}

// Device is the shared Cisco-family state machine. Concrete types embed it
// and override only where their dialect genuinely differs.
type Device struct {
	conn  *connection.BaseConnection
	cfg   device.Config
	d     dialect
	state common.State

	// AutoEnable enters privileged mode during session preparation.
	// ASA keeps it on since most show commands there require enable.
	AutoEnable bool

	// postPrep runs at the end of session preparation. Dialects hook their
	// extra setup here so the factory's Connect path picks it up.
	postPrep func() error
}

func newDevice(cfg device.Config, d dialect) *Device {
	return &Device{cfg: cfg, d: d, AutoEnable: true}
}

// DialectSpec is the exported form of dialect, for sibling vendor packages
// whose CLIs deliberately mirror the Cisco surface (Arista EOS).
type DialectSpec struct {
	Tag           device.DeviceType
	PromptSuffix  string
	PagingCommand string
	WidthCommand  string
	SaveCommand   string
	ConfigCommand string
	ExitConfig    string
}

// NewDialect builds a Device over the shared machinery with a custom
// dialect.
func NewDialect(cfg device.Config, s DialectSpec) *Device {
	return newDevice(cfg, dialect{
		tag:           s.Tag,
		promptSuffix:  s.PromptSuffix,
		pagingCommand: s.PagingCommand,
		widthCommand:  s.WidthCommand,
		saveCommand:   s.SaveCommand,
		configCommand: s.ConfigCommand,
		exitConfig:    s.ExitConfig,
	})
}

// WithConnection attaches an already-open base connection, such as one a
// caller kept from DetectWithConnection or a test's scripted transport.
func (c *Device) WithConnection(conn *connection.BaseConnection) {
	c.conn = conn
	c.state.Connected = conn.IsConnected()
}

// Conn exposes the underlying base connection to tests and advanced callers.
func (c *Device) Conn() *connection.BaseConnection { return c.conn }

// HealthProbe reports whether the session still answers with its prompt.
func (c *Device) HealthProbe() bool {
	return c.conn != nil && c.conn.HealthProbe()
}

// DeviceTypeTag returns the dialect's tag.
func (c *Device) DeviceTypeTag() device.DeviceType { return c.d.tag }

// DeviceID returns the identifier results are keyed by.
func (c *Device) DeviceID() string { return c.cfg.ID() }

// IsConnected reports whether the session is open.
func (c *Device) IsConnected() bool {
	return c.state.Connected && c.conn != nil && c.conn.IsConnected()
}

// Connect dials the device and runs session preparation.
func (c *Device) Connect() error {
	if c.conn == nil {
		conn, err := connection.Connect(connection.ConnectParams{
			Host:           c.cfg.Host,
			Username:       c.cfg.Username,
			Password:       c.cfg.Password,
			KeyFile:        c.cfg.KeyFile,
			Port:           c.cfg.Port,
			ConnectTimeout: c.cfg.ConnectTimeout,
			DeviceID:       c.cfg.ID(),
			SessionLogPath: c.cfg.SessionLogPath,
		})
		if err != nil {
			return err
		}
		c.conn = conn
	}
	c.state.Connected = true

	if err := c.SessionPreparation(); err != nil {
		_ = c.Close()
		return err
	}
	metrics.ConnectionsOpened.WithLabelValues(string(c.d.tag)).Inc()
	return nil
}

// SessionPreparation establishes the prompt, fixes terminal geometry,
// disables paging, and optionally elevates to privileged mode. Runs exactly
// once per session, before any command.
func (c *Device) SessionPreparation() error {
	c.conn.ClearBuffer()

	if _, err := c.conn.SetBasePrompt(c.d.promptSuffix); err != nil {
		return err
	}
	if err := c.SetTerminalWidth(connectionTerminalWidth); err != nil {
		return err
	}
	if err := c.DisablePaging(); err != nil {
		return err
	}
	// Re-capture after terminal commands; some platforms redraw the prompt.
	if _, err := c.conn.SetBasePrompt(c.d.promptSuffix); err != nil {
		return err
	}

	if c.AutoEnable {
		privileged, err := c.CheckEnableMode()
		if err != nil {
			return err
		}
		if !privileged {
			if err := c.EnterEnableMode(); err != nil {
				return err
			}
		}
	}

	if c.postPrep != nil {
		return c.postPrep()
	}
	return nil
}

const connectionTerminalWidth = 511

// Close tears down the session.
func (c *Device) Close() error {
	if c.conn == nil || !c.state.Connected {
		return nil
	}
	c.state = common.State{}
	return c.conn.Close()
}

// SetTerminalWidth fixes the line length for the session.
func (c *Device) SetTerminalWidth(width int) error {
	if c.d.widthCommand == "" {
		return nil
	}
	cmd := fmt.Sprintf(c.d.widthCommand, width)
	_, err := c.conn.SendCommand(cmd, nil)
	return err
}

// DisablePaging stops the device pausing long output.
func (c *Device) DisablePaging() error {
	out, err := c.conn.SendCommand(c.d.pagingCommand, nil)
	if err != nil {
		return err
	}
	if strings.Contains(out, "Invalid") || strings.Contains(out, "ERROR") {
		if c.d.pagingFallback != "" {
			_, err = c.conn.SendCommand(c.d.pagingFallback, nil)
			return err
		}
		logging.L().Warn("disable paging rejected",
			zap.String("device", c.DeviceID()), zap.String("output", out))
	}
	return nil
}

// SetBasePrompt captures the prompt and returns the base portion.
func (c *Device) SetBasePrompt() (string, error) {
	return c.conn.SetBasePrompt(c.d.promptSuffix)
}

// CheckEnableMode probes the live prompt and reports privileged state.
func (c *Device) CheckEnableMode() (bool, error) {
	prompt, err := c.conn.FindPrompt()
	if err != nil {
		return false, err
	}
	c.state.Privileged = strings.HasSuffix(strings.TrimSpace(prompt), "#")
	return c.state.Privileged, nil
}

// EnterEnableMode elevates to privileged mode, answering the secret prompt
// when the device asks.
func (c *Device) EnterEnableMode() error {
	if c.state.Privileged {
		return nil
	}
	if err := c.conn.WriteChannel("enable\n"); err != nil {
		return err
	}

	deadline := settings.Get().PatternTimeout()
	out, err := c.conn.ReadUntilPattern(`(?i)ssword|#`, deadline)
	if err != nil {
		return errors.Wrap(err, errors.ErrMode, "no response to enable")
	}

	if passwordPromptPattern.MatchString(out) {
		if c.cfg.Secret == "" {
			return errors.New(errors.ErrMode,
				"device requires an enable secret and none was configured", "")
		}
		if err := c.conn.WriteChannel(c.cfg.Secret + "\n"); err != nil {
			return err
		}
		if _, err := c.conn.ReadUntilPrompt(deadline); err != nil {
			return errors.Wrap(err, errors.ErrMode, "enable secret not accepted")
		}
	}

	privileged, err := c.CheckEnableMode()
	if err != nil {
		return err
	}
	if !privileged {
		return errors.New(errors.ErrMode, "failed to enter privileged mode", "")
	}
	return nil
}

// ExitEnableMode drops to the unprivileged exec context.
func (c *Device) ExitEnableMode() error {
	if !c.state.Privileged {
		return nil
	}
	if _, err := c.conn.SendCommand("disable", nil); err != nil {
		return err
	}
	c.state.Privileged = false
	return nil
}

// CheckConfigMode probes the live prompt for the config decoration.
func (c *Device) CheckConfigMode() (bool, error) {
	prompt, err := c.conn.FindPrompt()
	if err != nil {
		return false, err
	}
	c.state.Configuring = configPromptPattern.MatchString(prompt)
	return c.state.Configuring, nil
}

// EnterConfigMode enters configuration mode. Entering twice without exiting
// is a no-op after the first.
func (c *Device) EnterConfigMode(cmd string) error {
	if c.state.Configuring {
		return nil
	}
	if !c.state.Privileged {
		if err := c.EnterEnableMode(); err != nil {
			return err
		}
	}
	if cmd == "" {
		cmd = c.d.configCommand
	}
	if _, err := c.conn.SendCommand(cmd, nil); err != nil {
		return err
	}
	configuring, err := c.CheckConfigMode()
	if err != nil {
		return err
	}
	if !configuring {
		return errors.New(errors.ErrMode,
			fmt.Sprintf("%q did not enter configuration mode", cmd), "")
	}
	return nil
}

// ExitConfigMode leaves configuration mode, falling back to `exit` when the
// dialect's exit command leaves the session still configuring.
func (c *Device) ExitConfigMode(cmd string) error {
	if !c.state.Configuring {
		return nil
	}
	if cmd == "" {
		cmd = c.d.exitConfig
	}
	for _, attempt := range []string{cmd, "exit", "exit"} {
		if _, err := c.conn.SendCommand(attempt, nil); err != nil {
			return err
		}
		configuring, err := c.CheckConfigMode()
		if err != nil {
			return err
		}
		if !configuring {
			return nil
		}
	}
	return errors.New(errors.ErrMode, "could not leave configuration mode", "")
}

// SaveConfiguration persists running config with the dialect's save command.
func (c *Device) SaveConfiguration() (string, error) {
	if !c.state.Privileged {
		return "", errors.New(errors.ErrMode,
			"saving configuration requires privileged mode", "")
	}
	opts := &device.SendOptions{
		ReadTimeout:  time.Duration(settings.Get().Network.DeviceOperationTimeoutSecs) * time.Second,
		StripPrompt:  true,
		StripCommand: true,
		Normalize:    true,
	}
	return c.SendCommand(c.d.saveCommand, opts)
}

// SendCommand runs one command through the base connection contract.
func (c *Device) SendCommand(cmd string, opts *device.SendOptions) (string, error) {
	return c.conn.SendCommand(cmd, common.ToSendOptions(opts))
}

// SendCommands runs commands in order, concatenating their outputs.
func (c *Device) SendCommands(cmds []string, opts *device.SendOptions) (string, error) {
	var b strings.Builder
	for _, cmd := range cmds {
		out, err := c.SendCommand(cmd, opts)
		if err != nil {
			return b.String(), err
		}
		b.WriteString(out)
		if out != "" && !strings.HasSuffix(out, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// SendConfigSet pushes configuration commands. Mode transitions run through
// this state machine so the session state stays authoritative.
func (c *Device) SendConfigSet(cmds []string, opts *device.ConfigSetOpts) (string, error) {
	o := c.defaultConfigOpts()
	if opts != nil {
		o = *opts
	}

	var cumulative strings.Builder
	if o.EnterConfigMode {
		if err := c.EnterConfigMode(o.ConfigModeCommand); err != nil {
			return "", err
		}
	}

	inner := o
	inner.EnterConfigMode = false
	inner.ExitConfigMode = false
	out, err := c.conn.SendConfigSet(cmds, common.ToConfigSetOptions(&inner))
	cumulative.WriteString(out)
	if err != nil {
		// Leave config mode so a failed set does not strand the session.
		if o.ExitConfigMode {
			_ = c.ExitConfigMode(o.ExitConfigCommand)
		}
		return cumulative.String(), err
	}

	if o.ExitConfigMode {
		if err := c.ExitConfigMode(o.ExitConfigCommand); err != nil {
			return cumulative.String(), err
		}
	}
	return cumulative.String(), nil
}

func (c *Device) defaultConfigOpts() device.ConfigSetOpts {
	o := device.ConfigSetOpts{
		SendOptions: device.SendOptions{
			StripPrompt:  true,
			StripCommand: true,
			Normalize:    true,
			CmdVerify:    true,
		},
		EnterConfigMode:   true,
		ExitConfigMode:    true,
		ConfigModeCommand: c.d.configCommand,
		ExitConfigCommand: c.d.exitConfig,
		Terminator:        `#`,
	}
	return o
}
