// Package sessionlog writes append-only per-session transcripts of bytes
// sent to and received from a device.
//
// Format: one line per write, `<ISO8601> <direction> <bytes>` where direction
// is ">>" (sent) or "<<" (received). Non-printable bytes are escaped unless
// binary logging is enabled.
package sessionlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moimran/netssh-go/internal/logging"
)

// Direction marks which side of the conversation produced the bytes.
type Direction string

const (
	// Sent marks bytes written to the device.
	Sent Direction = ">>"
	// Received marks bytes read from the device.
	Received Direction = "<<"
)

// Writer is an append-only transcript writer for one session.
// A nil *Writer is valid and discards everything, so callers never need to
// guard their Write calls.
type Writer struct {
	mu        sync.Mutex
	file      *os.File
	sessionID string
	binary    bool
	warned    bool
}

// Config controls transcript creation.
type Config struct {
	Enabled       bool
	Dir           string
	Path          string // explicit file path; overrides Dir
	LogBinaryData bool
}

// Open creates a transcript writer for a new session. Returns nil (a valid,
// discarding writer) when logging is disabled. Log errors never fail the
// session: on open failure a warning is logged and nil is returned.
func Open(deviceID string, cfg Config) *Writer {
	if !cfg.Enabled {
		return nil
	}

	sessionID := uuid.NewString()
	path := cfg.Path
	if path == "" {
		dir := cfg.Dir
		if dir == "" {
			dir = "logs"
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logging.L().Warn("session log directory",
				zap.String("dir", dir), zap.Error(err))
			return nil
		}
		path = filepath.Join(dir, fmt.Sprintf("%s-%s.log", sanitize(deviceID), sessionID))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logging.L().Warn("session log open",
			zap.String("path", path), zap.Error(err))
		return nil
	}

	return &Writer{file: f, sessionID: sessionID, binary: cfg.LogBinaryData}
}

// SessionID returns the id assigned at Open, or empty for a nil writer.
func (w *Writer) SessionID() string {
	if w == nil {
		return ""
	}
	return w.sessionID
}

// Write appends one transcript line. Errors are swallowed after a single
// warning; transcripts must never fail the operation they record.
func (w *Writer) Write(dir Direction, data []byte) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return
	}

	payload := string(data)
	if !w.binary {
		payload = escape(payload)
	}
	line := time.Now().UTC().Format(time.RFC3339Nano) + " " + string(dir) + " " + payload + "\n"
	if _, err := w.file.WriteString(line); err != nil && !w.warned {
		w.warned = true
		logging.L().Warn("session log write", zap.Error(err))
	}
}

// Close closes the underlying file.
func (w *Writer) Close() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
}

// escape renders non-printable bytes as Go escape sequences while keeping
// printable text readable. Newlines and carriage returns are escaped so each
// transcript entry stays on one line.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			b.WriteString(fmt.Sprintf(`\x%02x`, r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sanitize keeps device ids filesystem-safe for use in file names.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
