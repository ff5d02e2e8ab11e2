// Package autodetect identifies a device's vendor dialect from live command
// output. A short ordered sequence of probes runs over one connection; each
// matching pattern adds weight to a device-type bucket, and the best bucket
// above the threshold wins.
package autodetect

import (
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/moimran/netssh-go/internal/errors"
	"github.com/moimran/netssh-go/internal/logging"
	"github.com/moimran/netssh-go/pkg/connection"
	"github.com/moimran/netssh-go/pkg/device"
)

// scoreThreshold is the minimum bucket score needed to call a detection.
const scoreThreshold = 50

// confidentScore short-circuits remaining probes once one bucket reaches it.
const confidentScore = 99

// probe is one detection attempt: a command and the weighted patterns its
// output is scored against.
type probe struct {
	bucket   device.DeviceType
	cmd      string
	patterns []string
	weight   int
}

// probes run in a fixed order that doubles as the tie-break priority:
// Cisco IOS > IOS-XE > IOS-XR > NX-OS > ASA > EOS > Junos > generic Linux.
var probes = []probe{
	{device.CiscoIOS, "show version", []string{
		`Cisco IOS Software`,
		`Cisco Internetwork Operating System Software`,
	}, 95},
	{device.CiscoXE, "show version", []string{`Cisco IOS XE Software`}, 99},
	{device.CiscoXR, "show version", []string{`Cisco IOS XR`}, 99},
	{device.CiscoXR, "show version brief", []string{`Cisco IOS XR`}, 99},
	{device.CiscoNXOS, "show version", []string{
		`Cisco Nexus Operating System`,
		`NX-OS`,
	}, 99},
	{device.CiscoASA, "show version", []string{
		`Cisco Adaptive Security Appliance`,
		`Cisco ASA`,
	}, 99},
	{device.AristaEOS, "show version", []string{`Arista`, `vEOS`}, 99},
	{device.JuniperJunos, "show version", []string{
		`JUNOS Software Release`,
		`JUNOS .+ Software`,
		`JUNOS OS Kernel`,
		`JUNOS Base Version`,
	}, 99},
	{"linux", "uname -a", []string{`Linux`}, 99},
}

// invalidResponsePatterns disqualify a probe output: the command was
// rejected, so its text must not feed the scorer.
var invalidResponsePatterns = []*regexp.Regexp{
	regexp.MustCompile(`% Invalid input detected`),
	regexp.MustCompile(`syntax error, expecting`),
	regexp.MustCompile(`Error: Unrecognized command`),
	regexp.MustCompile(`%Error`),
	regexp.MustCompile(`command not found`),
	regexp.MustCompile(`Syntax Error: unexpected argument`),
	regexp.MustCompile(`% Unrecognized command found at`),
}

// Detector scores probe output against the bucket table over one connection.
type Detector struct {
	conn  *connection.BaseConnection
	cache map[string]string
}

// Autodetect connects to the device, identifies its type, and disconnects.
// The config's device type must be "autodetect". Returns empty when no
// bucket clears the threshold.
func Autodetect(cfg device.Config) (device.DeviceType, error) {
	if cfg.DeviceType != device.Autodetect {
		return "", errors.New(errors.ErrAutodetect,
			"device type must be \"autodetect\" for detection", "")
	}

	conn, err := connection.Connect(connection.ConnectParams{
		Host:           cfg.Host,
		Username:       cfg.Username,
		Password:       cfg.Password,
		KeyFile:        cfg.KeyFile,
		Port:           cfg.Port,
		ConnectTimeout: cfg.ConnectTimeout,
		DeviceID:       cfg.ID(),
		SessionLogPath: cfg.SessionLogPath,
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = conn.Close() }()

	return DetectWithConnection(conn)
}

// DetectWithConnection runs the probe sequence over an existing connection.
// The caller keeps ownership of the connection.
func DetectWithConnection(conn *connection.BaseConnection) (device.DeviceType, error) {
	d := &Detector{conn: conn, cache: make(map[string]string)}
	return d.run()
}

func (d *Detector) run() (device.DeviceType, error) {
	// A permissive suffix class: the dialect is unknown, so accept any of
	// the prompt metacharacters the supported vendors use.
	if _, err := d.conn.SetBasePrompt(`[>#%$]`); err != nil {
		return "", err
	}

	scores := make(map[device.DeviceType]int)
	order := make([]device.DeviceType, 0, len(probes))

	for _, p := range probes {
		weight := d.score(p)
		if weight == 0 {
			continue
		}
		if _, seen := scores[p.bucket]; !seen {
			order = append(order, p.bucket)
		}
		scores[p.bucket] += weight
		logging.L().Debug("autodetect probe matched",
			zap.String("bucket", string(p.bucket)), zap.Int("score", scores[p.bucket]))

		if scores[p.bucket] >= confidentScore {
			return p.bucket, nil
		}
	}

	best := device.DeviceType("")
	bestScore := 0
	for _, bucket := range order {
		if scores[bucket] > bestScore {
			best = bucket
			bestScore = scores[bucket]
		}
	}
	if bestScore < scoreThreshold {
		return "", nil
	}
	return best, nil
}

// score sends the probe command (cached per command text) and returns the
// probe's weight when any of its patterns matches, else zero.
func (d *Detector) score(p probe) int {
	output, ok := d.cache[p.cmd]
	if !ok {
		out, err := d.conn.SendCommand(p.cmd, &connection.SendCommandOptions{
			ReadTimeout: 10 * time.Second,
			StripPrompt: true, StripCommand: true, Normalize: true,
		})
		if err != nil {
			logging.L().Debug("autodetect probe failed",
				zap.String("cmd", p.cmd), zap.Error(err))
			d.cache[p.cmd] = ""
			return 0
		}
		d.cache[p.cmd] = out
		output = out
	}
	if output == "" {
		return 0
	}

	for _, invalid := range invalidResponsePatterns {
		if invalid.MatchString(output) {
			return 0
		}
	}

	total := 0
	for _, pattern := range p.patterns {
		if regexp.MustCompile(pattern).MatchString(output) {
			total += p.weight
		}
	}
	if total > p.weight {
		// Multiple patterns of one probe are alternative spellings of the
		// same fact; they confirm, not multiply.
		total = p.weight
	}
	return total
}
