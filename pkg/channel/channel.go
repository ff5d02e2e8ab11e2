// Package channel provides byte-level read/write over one interactive SSH
// channel. Reads are pattern-terminated: callers accumulate output until a
// regex matches or a deadline passes.
package channel

import (
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/moimran/netssh-go/internal/bufpool"
	"github.com/moimran/netssh-go/internal/errors"
	"github.com/moimran/netssh-go/internal/sessionlog"
	"github.com/moimran/netssh-go/pkg/settings"
)

// Transport is the byte stream under a Channel. The real implementation is
// an SSH session with a PTY; tests substitute a scripted fake.
type Transport interface {
	io.Reader
	io.Writer
	Close() error
}

const (
	// readChunkSize is the unit the background reader pulls from the wire.
	readChunkSize = 4096
	// pollInterval is how long a single ReadBuffer call waits for data
	// before reporting an empty read.
	pollInterval = 100 * time.Millisecond
	// writeRetries bounds re-attempts on a short write.
	writeRetries = 3
)

// Channel owns one interactive SSH channel: a background reader draining the
// transport into chunks, a pooled accumulation buffer, and the session
// transcript. A Channel is not safe for concurrent use; it is pinned to one
// task at a time.
type Channel struct {
	transport Transport
	log       *sessionlog.Writer
	pool      *bufpool.Pool
	lease     *bufpool.Lease

	readCh  chan []byte
	readErr chan error
	done    chan struct{}

	// pending holds bytes received but not yet consumed: the tail of a
	// chunk left over after a pattern matched mid-chunk.
	pending []byte

	maxDrain int
}

// New wraps a transport. The pool supplies the accumulation buffer; log may
// be nil.
func New(transport Transport, pool *bufpool.Pool, log *sessionlog.Writer) *Channel {
	s := settings.Get()
	c := &Channel{
		transport: transport,
		log:       log,
		pool:      pool,
		lease:     pool.Acquire(s.Buffer.ReadBufferSize),
		readCh:    make(chan []byte, 64),
		readErr:   make(chan error, 1),
		done:      make(chan struct{}),
		maxDrain:  s.Buffer.ReadBufferSize,
	}
	go c.readLoop()
	return c
}

// readLoop drains the transport into readCh until EOF, error, or Close.
func (c *Channel) readLoop() {
	for {
		chunk := make([]byte, readChunkSize)
		n, err := c.transport.Read(chunk)
		if n > 0 {
			select {
			case c.readCh <- chunk[:n]:
			case <-c.done:
				return
			}
		}
		if err != nil {
			select {
			case c.readErr <- err:
			default:
			}
			return
		}
	}
}

// WriteChannel writes all bytes to the transport. A short write is retried;
// persistent short writes fail with an IO error.
func (c *Channel) WriteChannel(data []byte) error {
	c.log.Write(sessionlog.Sent, data)

	remaining := data
	for attempt := 0; attempt <= writeRetries; attempt++ {
		n, err := c.transport.Write(remaining)
		if err != nil {
			return errors.Wrap(err, errors.ErrIO, "write to channel failed")
		}
		remaining = remaining[n:]
		if len(remaining) == 0 {
			return nil
		}
	}
	return errors.New(errors.ErrIO,
		"partial write to channel after retries", "")
}

// ReadBuffer returns at most maxBytes (zero: no limit) of the bytes that
// arrived in one chunk, waiting up to the poll interval. A nil slice with nil
// error means nothing arrived yet; the caller's deadline governs how long to
// keep polling. Bytes left over from a previous pattern-terminated read, or
// beyond maxBytes, are served first on the next call.
func (c *Channel) ReadBuffer(maxBytes int) ([]byte, error) {
	if len(c.pending) > 0 {
		chunk := c.pending
		if maxBytes > 0 && len(chunk) > maxBytes {
			chunk = chunk[:maxBytes]
			c.pending = c.pending[maxBytes:]
		} else {
			c.pending = nil
		}
		// Pending bytes were already logged when they first arrived.
		return chunk, nil
	}

	select {
	case chunk := <-c.readCh:
		c.log.Write(sessionlog.Received, chunk)
		if maxBytes > 0 && len(chunk) > maxBytes {
			c.pending = append(c.pending, chunk[maxBytes:]...)
			chunk = chunk[:maxBytes]
		}
		return chunk, nil
	case err := <-c.readErr:
		if err == io.EOF {
			return nil, errors.New(errors.ErrIO, "channel closed by remote", "")
		}
		return nil, errors.Wrap(err, errors.ErrIO, "read from channel failed")
	case <-time.After(pollInterval):
		return nil, nil
	}
}

// ReadChannel drains currently available bytes, up to the configured read
// buffer size, without waiting beyond one poll interval.
func (c *Channel) ReadChannel() (string, error) {
	var b strings.Builder
	for b.Len() < c.maxDrain {
		chunk, err := c.ReadBuffer(0)
		if err != nil {
			return b.String(), err
		}
		if chunk == nil {
			break
		}
		b.Write(chunk)
	}
	return b.String(), nil
}

// ReadUntilPattern accumulates output until pattern matches anywhere in the
// accumulated text, or the deadline passes. A zero deadline falls back to the
// settings pattern-match timeout. On timeout the accumulated buffer travels
// with the error for diagnostics.
func (c *Channel) ReadUntilPattern(pattern *regexp.Regexp, deadline time.Duration) (string, error) {
	return c.readUntil(pattern, deadline, false)
}

// ReadUntilPrompt accumulates output until the last non-empty line matches
// the prompt regex, or the deadline passes.
func (c *Channel) ReadUntilPrompt(prompt *regexp.Regexp, deadline time.Duration) (string, error) {
	return c.readUntil(prompt, deadline, true)
}

func (c *Channel) readUntil(pattern *regexp.Regexp, deadline time.Duration, lastLine bool) (string, error) {
	if deadline == 0 {
		deadline = settings.Get().PatternTimeout()
	}
	start := time.Now()

	buf := c.lease.Bytes()[:0]
	defer func() { c.lease.SetBytes(buf[:0]) }()

	for {
		if time.Since(start) > deadline {
			return "", errors.NewPatternTimeout(pattern.String(), string(buf))
		}

		chunk, err := c.ReadBuffer(0)
		if err != nil {
			return "", err
		}
		if chunk == nil {
			continue
		}
		buf = append(buf, chunk...)

		if lastLine {
			if line := lastNonEmptyLine(string(buf)); line != "" && pattern.MatchString(line) {
				return string(buf), nil
			}
		} else if loc := pattern.FindIndex(buf); loc != nil {
			// Return through the match; anything after it stays pending for
			// the next read.
			if loc[1] < len(buf) {
				c.pending = append(c.pending, buf[loc[1]:]...)
			}
			return string(buf[:loc[1]]), nil
		}
	}
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

// Close tears down the reader and the transport and releases the pooled
// buffer. Safe to call more than once.
func (c *Channel) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	err := c.transport.Close()
	if c.lease != nil {
		c.lease.Release()
		c.lease = nil
	}
	c.log.Close()
	return err
}
