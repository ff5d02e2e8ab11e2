package cisco

import (
	"strings"
	"time"

	"github.com/moimran/netssh-go/internal/errors"
	"github.com/moimran/netssh-go/pkg/device"
	"github.com/moimran/netssh-go/pkg/settings"
)

// XRDevice drives Cisco IOS-XR, where configuration is transactional:
// changes stage until commit, and a failed commit can be inspected and
// aborted.
type XRDevice struct {
	*Device
}

// NewXR creates an IOS-XR state machine.
func NewXR(cfg device.Config) *XRDevice {
	return &XRDevice{Device: newDevice(cfg, dialect{
		tag:           device.CiscoXR,
		promptSuffix:  `[>#]`,
		pagingCommand: "terminal length 0",
		widthCommand:  "terminal width %d",
		saveCommand:   "commit",
		configCommand: "configure terminal",
		exitConfig:    "end",
	})}
}

// SaveConfiguration commits staged configuration without a label.
func (x *XRDevice) SaveConfiguration() (string, error) {
	return x.Commit("")
}

// Commit applies staged configuration, optionally tagged with a label. On
// commit errors the device's failure detail is probed and attached.
func (x *XRDevice) Commit(label string) (string, error) {
	configuring, err := x.CheckConfigMode()
	if err != nil {
		return "", err
	}
	if !configuring {
		return "", errors.New(errors.ErrMode,
			"commit requires configuration mode", "")
	}

	cmd := "commit"
	if label != "" {
		cmd = "commit label " + label
	}
	opts := &device.SendOptions{
		ReadTimeout:  time.Duration(settings.Get().Network.DeviceOperationTimeoutSecs) * time.Second,
		StripPrompt:  true,
		StripCommand: true,
		Normalize:    true,
	}
	out, err := x.SendCommand(cmd, opts)
	if err != nil {
		return out, err
	}

	if strings.Contains(out, "Failed to commit") || strings.Contains(out, "% Failed") {
		detail, derr := x.SendCommand("show configuration failed", opts)
		if derr != nil {
			detail = "(could not read failure detail)"
		}
		return out, errors.New(errors.ErrConfig,
			"commit failed: "+strings.TrimSpace(detail), "")
	}
	return out, nil
}

// AbortConfig discards staged configuration and leaves config mode.
func (x *XRDevice) AbortConfig() error {
	if _, err := x.SendCommand("abort", nil); err != nil {
		return err
	}
	x.state.Configuring = false
	return nil
}
