package parallel

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moimran/netssh-go/internal/logging"
	"github.com/moimran/netssh-go/internal/metrics"
	"github.com/moimran/netssh-go/pkg/device"
)

// cacheKey identifies a reusable connection. One entry per credential and
// endpoint tuple.
type cacheKey struct {
	user       string
	host       string
	port       uint16
	deviceType device.DeviceType
}

func keyFor(cfg device.Config) cacheKey {
	return cacheKey{
		user:       cfg.Username,
		host:       cfg.Host,
		port:       cfg.Port,
		deviceType: cfg.DeviceType,
	}
}

// cacheEntry is a parked connection with its last activity time.
type cacheEntry struct {
	conn     device.NetworkDeviceConnection
	lastUsed time.Time
}

// connCache holds idle connections between jobs. The lock guards only the
// map; a connection is either in the map or checked out to exactly one
// worker, never both.
type connCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry

	idleTimeout time.Duration
	reaperStop  chan struct{}
	reaperOnce  sync.Once
}

func newConnCache(idleTimeout time.Duration) *connCache {
	return &connCache{
		entries:     make(map[cacheKey]cacheEntry),
		idleTimeout: idleTimeout,
		reaperStop:  make(chan struct{}),
	}
}

// checkout removes and returns the entry for key, if present.
func (c *connCache) checkout(key cacheKey) (device.NetworkDeviceConnection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	delete(c.entries, key)
	metrics.CachedConnections.Set(float64(len(c.entries)))
	return entry.conn, true
}

// park returns a connection to the cache, stamping its activity time. Any
// entry already under the key is closed and replaced.
func (c *connCache) park(key cacheKey, conn device.NetworkDeviceConnection) {
	c.mu.Lock()
	if old, ok := c.entries[key]; ok {
		_ = old.conn.Close()
	}
	c.entries[key] = cacheEntry{conn: conn, lastUsed: time.Now()}
	metrics.CachedConnections.Set(float64(len(c.entries)))
	c.mu.Unlock()

	c.reaperOnce.Do(func() { go c.reap() })
}

// reap closes entries idle past the timeout.
func (c *connCache) reap() {
	interval := c.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.reaperStop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-c.idleTimeout)
			c.mu.Lock()
			for key, entry := range c.entries {
				if entry.lastUsed.Before(cutoff) {
					delete(c.entries, key)
					_ = entry.conn.Close()
					logging.L().Debug("evicted idle connection",
						zap.String("host", key.host))
				}
			}
			metrics.CachedConnections.Set(float64(len(c.entries)))
			c.mu.Unlock()
		}
	}
}

// close shuts the reaper and every parked connection.
func (c *connCache) close() {
	select {
	case <-c.reaperStop:
	default:
		close(c.reaperStop)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		_ = entry.conn.Close()
		delete(c.entries, key)
	}
	metrics.CachedConnections.Set(0)
}

// size reports the number of parked connections.
func (c *connCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
