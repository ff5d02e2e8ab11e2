package connection

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/moimran/netssh-go/internal/errors"
	"github.com/moimran/netssh-go/internal/logging"
	"github.com/moimran/netssh-go/internal/metrics"
	"github.com/moimran/netssh-go/pkg/settings"
)

// PTY geometry requested for the interactive shell. A wide terminal keeps
// devices from wrapping long config lines mid-token.
const (
	ptyWidth  = 511
	ptyHeight = 1000
)

// StrictHostKeyChecking controls host key verification. Network gear rarely
// lands in known_hosts, so the default is off; automation environments that
// maintain known_hosts can turn it on.
var StrictHostKeyChecking = false

// ConnectParams carries everything Connect needs to reach a device.
type ConnectParams struct {
	Host           string
	Username       string
	Password       string
	KeyFile        string
	Port           uint16
	ConnectTimeout time.Duration

	// DeviceID labels the session transcript; defaults to Host.
	DeviceID string

	// SessionLogPath, when set, writes this session's transcript to the
	// given file regardless of the global session-log setting.
	SessionLogPath string
}

// resolvedParams is ConnectParams after ~/.ssh/config resolution.
type resolvedParams struct {
	ConnectParams
	address string
}

// resolve fills missing fields from ~/.ssh/config and settings, the way an
// interactive ssh invocation would.
func resolve(p ConnectParams) resolvedParams {
	s := settings.Get()

	r := resolvedParams{ConnectParams: p}
	if r.Port == 0 {
		r.Port = s.Network.DefaultSSHPort
		if port := ssh_config.Get(p.Host, "Port"); port != "" && port != "22" {
			if n, err := strconv.ParseUint(port, 10, 16); err == nil {
				r.Port = uint16(n)
			}
		}
	}
	if r.Username == "" {
		r.Username = ssh_config.Get(p.Host, "User")
	}
	if r.KeyFile == "" {
		if identity := ssh_config.Get(p.Host, "IdentityFile"); identity != "" {
			r.KeyFile = expandHome(identity)
		}
	}
	if hostname := ssh_config.Get(p.Host, "HostName"); hostname != "" {
		r.address = net.JoinHostPort(hostname, strconv.Itoa(int(r.Port)))
	} else {
		r.address = net.JoinHostPort(p.Host, strconv.Itoa(int(r.Port)))
	}
	if r.ConnectTimeout == 0 {
		r.ConnectTimeout = s.ConnectTimeout()
	}
	if r.DeviceID == "" {
		r.DeviceID = p.Host
	}
	return r
}

// dial establishes the SSH client connection: TCP connect with timeout,
// handshake, then authentication (password, keyboard-interactive, key).
func dial(p resolvedParams) (*ssh.Client, error) {
	config, err := clientConfig(p)
	if err != nil {
		return nil, err
	}

	conn, err := net.DialTimeout("tcp", p.address, p.ConnectTimeout)
	if err != nil {
		metrics.ConnectionsFailed.WithLabelValues(string(connectKind(err))).Inc()
		return nil, errors.NewConnect(connectKind(err),
			fmt.Sprintf("cannot reach %s at %s", p.Host, p.address), err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, p.address, config)
	if err != nil {
		_ = conn.Close()
		kind := errors.ConnectNetwork
		if strings.Contains(err.Error(), "unable to authenticate") ||
			strings.Contains(err.Error(), "no supported methods") {
			kind = errors.ConnectAuth
		}
		metrics.ConnectionsFailed.WithLabelValues(string(kind)).Inc()
		return nil, errors.NewConnect(kind,
			fmt.Sprintf("SSH handshake with %s failed", p.Host), err)
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// clientConfig assembles the auth chain. Password is tried first (network
// devices overwhelmingly use it), then keyboard-interactive answering with
// the same password, then key files.
func clientConfig(p resolvedParams) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod

	if p.Password != "" {
		password := p.Password
		methods = append(methods, ssh.Password(password))
		methods = append(methods, ssh.KeyboardInteractive(
			func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = password
				}
				return answers, nil
			}))
	}

	keyPaths := []string{}
	if p.KeyFile != "" {
		keyPaths = append(keyPaths, p.KeyFile)
	}
	home, _ := os.UserHomeDir()
	if home != "" {
		keyPaths = append(keyPaths,
			filepath.Join(home, ".ssh", "id_ed25519"),
			filepath.Join(home, ".ssh", "id_rsa"))
	}
	for _, path := range keyPaths {
		if auth := keyFileAuth(path); auth != nil {
			methods = append(methods, auth)
		}
	}

	if len(methods) == 0 {
		return nil, errors.NewConnect(errors.ConnectAuth,
			fmt.Sprintf("no authentication methods available for %s", p.Host), nil)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // devices rarely live in known_hosts
	if StrictHostKeyChecking {
		knownHostsPath := filepath.Join(home, ".ssh", "known_hosts")
		cb, err := knownhosts.New(knownHostsPath)
		if err != nil {
			return nil, errors.NewConnect(errors.ConnectAuth,
				"failed to load known_hosts", err)
		}
		hostKeyCallback = cb
	}

	s := settings.Get()
	return &ssh.ClientConfig{
		User:            p.Username,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         time.Duration(s.SSH.AuthTimeoutSecs) * time.Second,
	}, nil
}

// keyFileAuth loads a private key file, or returns nil when unusable.
func keyFileAuth(path string) ssh.AuthMethod {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil
	}
	return ssh.PublicKeys(signer)
}

// openShell opens the interactive channel: session, PTY, shell.
func openShell(client *ssh.Client) (*ssh.Session, *sshTransport, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, nil, errors.NewConnect(errors.ConnectChannelOpen,
			"failed to open SSH channel", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 115200,
		ssh.TTY_OP_OSPEED: 115200,
	}
	if err := session.RequestPty("vt100", ptyHeight, ptyWidth, modes); err != nil {
		_ = session.Close()
		return nil, nil, errors.NewConnect(errors.ConnectChannelOpen,
			"PTY request failed", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		return nil, nil, errors.NewConnect(errors.ConnectChannelOpen,
			"stdin pipe failed", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, nil, errors.NewConnect(errors.ConnectChannelOpen,
			"stdout pipe failed", err)
	}

	if err := session.Shell(); err != nil {
		_ = session.Close()
		return nil, nil, errors.NewConnect(errors.ConnectChannelOpen,
			"shell request failed", err)
	}

	return session, &sshTransport{stdin: stdin, stdout: stdout, session: session}, nil
}

// sshTransport adapts an *ssh.Session's pipes to channel.Transport.
type sshTransport struct {
	stdin   interface{ Write([]byte) (int, error) }
	stdout  interface{ Read([]byte) (int, error) }
	session *ssh.Session
}

func (t *sshTransport) Read(p []byte) (int, error)  { return t.stdout.Read(p) }
func (t *sshTransport) Write(p []byte) (int, error) { return t.stdin.Write(p) }
func (t *sshTransport) Close() error                { return t.session.Close() }

// keepalive sends SSH keepalive requests until stop closes.
func keepalive(client *ssh.Client, stop <-chan struct{}) {
	interval := time.Duration(settings.Get().SSH.KeepaliveIntervalSecs) * time.Second
	if interval == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, _, err := client.SendRequest("keepalive@netssh-go", true, nil); err != nil {
				logging.L().Debug("keepalive failed", zap.Error(err))
				return
			}
		}
	}
}

// connectKind classifies a dial error.
func connectKind(err error) errors.ConnectKind {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.ConnectTimeout
	}
	return errors.ConnectNetwork
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
