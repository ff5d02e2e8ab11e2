// Package juniper implements the Junos state machine. Junos has no enable
// mode: sessions move between operational (`>`), configure (`#`), and an
// optional shell (`$`, `%`) context.
package juniper

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/moimran/netssh-go/internal/errors"
	"github.com/moimran/netssh-go/internal/metrics"
	"github.com/moimran/netssh-go/pkg/connection"
	"github.com/moimran/netssh-go/pkg/device"
	"github.com/moimran/netssh-go/pkg/device/vendors/common"
	"github.com/moimran/netssh-go/pkg/settings"
)

// promptSuffix admits every Junos context: operational, configure, and the
// csh/sh shells.
const promptSuffix = `[>#%$]`

// configPromptPattern matches the configure-mode prompt line.
var configPromptPattern = regexp.MustCompile(`#\s*$`)

// JunosDevice drives Juniper Junos.
type JunosDevice struct {
	conn  *connection.BaseConnection
	cfg   device.Config
	state common.State
}

// NewJunos creates a Junos state machine.
func NewJunos(cfg device.Config) *JunosDevice {
	return &JunosDevice{cfg: cfg}
}

// WithConnection attaches an already-open base connection.
func (j *JunosDevice) WithConnection(conn *connection.BaseConnection) {
	j.conn = conn
	j.state.Connected = conn.IsConnected()
}

// Conn exposes the underlying base connection.
func (j *JunosDevice) Conn() *connection.BaseConnection { return j.conn }

// HealthProbe reports whether the session still answers with its prompt.
func (j *JunosDevice) HealthProbe() bool {
	return j.conn != nil && j.conn.HealthProbe()
}

// DeviceTypeTag returns the juniper_junos tag.
func (j *JunosDevice) DeviceTypeTag() device.DeviceType { return device.JuniperJunos }

// DeviceID returns the identifier results are keyed by.
func (j *JunosDevice) DeviceID() string { return j.cfg.ID() }

// IsConnected reports whether the session is open.
func (j *JunosDevice) IsConnected() bool {
	return j.state.Connected && j.conn != nil && j.conn.IsConnected()
}

// Connect dials the device and runs session preparation.
func (j *JunosDevice) Connect() error {
	if j.conn == nil {
		conn, err := connection.Connect(connection.ConnectParams{
			Host:           j.cfg.Host,
			Username:       j.cfg.Username,
			Password:       j.cfg.Password,
			KeyFile:        j.cfg.KeyFile,
			Port:           j.cfg.Port,
			ConnectTimeout: j.cfg.ConnectTimeout,
			DeviceID:       j.cfg.ID(),
			SessionLogPath: j.cfg.SessionLogPath,
		})
		if err != nil {
			return err
		}
		j.conn = conn
	}
	j.state.Connected = true

	if err := j.SessionPreparation(); err != nil {
		_ = j.Close()
		return err
	}
	metrics.ConnectionsOpened.WithLabelValues(string(device.JuniperJunos)).Inc()
	return nil
}

// SessionPreparation captures the prompt and sizes the CLI screen so output
// streams without interaction.
func (j *JunosDevice) SessionPreparation() error {
	j.conn.ClearBuffer()

	if _, err := j.conn.SetBasePrompt(promptSuffix); err != nil {
		return err
	}
	if err := j.DisablePaging(); err != nil {
		return err
	}
	if err := j.SetTerminalWidth(511); err != nil {
		return err
	}
	_, err := j.conn.SetBasePrompt(promptSuffix)
	return err
}

// Close tears down the session, leaving config mode first when needed.
func (j *JunosDevice) Close() error {
	if j.conn == nil || !j.state.Connected {
		return nil
	}
	if j.state.Configuring {
		_ = j.ExitConfigMode("")
	}
	j.state = common.State{}
	return j.conn.Close()
}

// SetTerminalWidth fixes the CLI screen width.
func (j *JunosDevice) SetTerminalWidth(width int) error {
	_, err := j.conn.SendCommand(fmt.Sprintf("set cli screen-width %d", width), nil)
	return err
}

// DisablePaging sets an unlimited screen length.
func (j *JunosDevice) DisablePaging() error {
	_, err := j.conn.SendCommand("set cli screen-length 0", nil)
	return err
}

// SetBasePrompt captures the prompt and returns the base portion.
func (j *JunosDevice) SetBasePrompt() (string, error) {
	return j.conn.SetBasePrompt(promptSuffix)
}

// CheckEnableMode always reports true: Junos has no enable mode and every
// operational session carries full CLI rights.
func (j *JunosDevice) CheckEnableMode() (bool, error) {
	return true, nil
}

// EnterEnableMode is a no-op on Junos.
func (j *JunosDevice) EnterEnableMode() error { return nil }

// ExitEnableMode is a no-op on Junos.
func (j *JunosDevice) ExitEnableMode() error { return nil }

// CheckConfigMode probes the live prompt for the configure-mode marker.
func (j *JunosDevice) CheckConfigMode() (bool, error) {
	prompt, err := j.conn.FindPrompt()
	if err != nil {
		return false, err
	}
	j.state.Configuring = configPromptPattern.MatchString(strings.TrimSpace(prompt))
	return j.state.Configuring, nil
}

// EnterConfigMode enters configure mode. Idempotent.
func (j *JunosDevice) EnterConfigMode(cmd string) error {
	if j.state.Configuring {
		return nil
	}
	if cmd == "" {
		cmd = "configure"
	}
	if _, err := j.conn.SendCommand(cmd, nil); err != nil {
		return err
	}
	configuring, err := j.CheckConfigMode()
	if err != nil {
		return err
	}
	if !configuring {
		return errors.New(errors.ErrMode,
			fmt.Sprintf("%q did not enter configuration mode", cmd), "")
	}
	return nil
}

// ExitConfigMode leaves configure mode.
func (j *JunosDevice) ExitConfigMode(cmd string) error {
	if !j.state.Configuring {
		return nil
	}
	if cmd == "" {
		cmd = "exit configuration-mode"
	}
	if _, err := j.conn.SendCommand(cmd, nil); err != nil {
		return err
	}
	configuring, err := j.CheckConfigMode()
	if err != nil {
		return err
	}
	if configuring {
		return errors.New(errors.ErrMode, "could not leave configuration mode", "")
	}
	return nil
}

// SaveConfiguration commits staged configuration. When called outside
// configure mode the session enters it for the commit and leaves again.
func (j *JunosDevice) SaveConfiguration() (string, error) {
	return j.Commit("")
}

// Commit applies staged configuration, optionally with a comment.
func (j *JunosDevice) Commit(comment string) (string, error) {
	entered := false
	if !j.state.Configuring {
		if err := j.EnterConfigMode(""); err != nil {
			return "", err
		}
		entered = true
	}

	cmd := "commit"
	if comment != "" {
		cmd = fmt.Sprintf("commit comment %q", comment)
	}
	opts := &device.SendOptions{
		ReadTimeout:  time.Duration(settings.Get().Network.DeviceOperationTimeoutSecs) * time.Second,
		StripPrompt:  true,
		StripCommand: true,
		Normalize:    true,
	}
	out, err := j.SendCommand(cmd, opts)
	if err != nil {
		return out, err
	}
	if strings.Contains(out, "error:") {
		return out, errors.New(errors.ErrConfig,
			"commit failed: "+strings.TrimSpace(out), "")
	}

	if entered {
		if err := j.ExitConfigMode(""); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Rollback discards staged configuration changes.
func (j *JunosDevice) Rollback() error {
	if !j.state.Configuring {
		return errors.New(errors.ErrMode, "rollback requires configuration mode", "")
	}
	_, err := j.conn.SendCommand("rollback", nil)
	return err
}

// SendCommand runs one command through the base connection contract.
func (j *JunosDevice) SendCommand(cmd string, opts *device.SendOptions) (string, error) {
	return j.conn.SendCommand(cmd, common.ToSendOptions(opts))
}

// SendCommands runs commands in order, concatenating their outputs.
func (j *JunosDevice) SendCommands(cmds []string, opts *device.SendOptions) (string, error) {
	var b strings.Builder
	for _, cmd := range cmds {
		out, err := j.SendCommand(cmd, opts)
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

// SendConfigSet pushes configuration commands through configure mode.
func (j *JunosDevice) SendConfigSet(cmds []string, opts *device.ConfigSetOpts) (string, error) {
	o := device.ConfigSetOpts{
		SendOptions: device.SendOptions{
			StripPrompt:  true,
			StripCommand: true,
			Normalize:    true,
			CmdVerify:    true,
		},
		EnterConfigMode:   true,
		ExitConfigMode:    true,
		ConfigModeCommand: "configure",
		ExitConfigCommand: "exit configuration-mode",
		Terminator:        `#`,
	}
	if opts != nil {
		o = *opts
	}

	var cumulative strings.Builder
	if o.EnterConfigMode {
		if err := j.EnterConfigMode(o.ConfigModeCommand); err != nil {
			return "", err
		}
	}

	inner := o
	inner.EnterConfigMode = false
	inner.ExitConfigMode = false
	out, err := j.conn.SendConfigSet(cmds, common.ToConfigSetOptions(&inner))
	cumulative.WriteString(out)
	if err != nil {
		if o.ExitConfigMode {
			_ = j.ExitConfigMode(o.ExitConfigCommand)
		}
		return cumulative.String(), err
	}

	if o.ExitConfigMode {
		if err := j.ExitConfigMode(o.ExitConfigCommand); err != nil {
			return cumulative.String(), err
		}
	}
	return cumulative.String(), nil
}
