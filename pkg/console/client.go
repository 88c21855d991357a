package console

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ClientConnection is the per-socket state for one connected console client.
//
// Mutable counters are written only by the owning reader goroutine; the
// cleanup sweep and reporting queries read them through atomics. The socket
// is closed exactly once, whichever of the reader, the sweep, or Stop gets
// there first.
type ClientConnection struct {
	// ID is the remote endpoint (host:port). An endpoint can briefly
	// repeat across a reconnect, so it is not a tracking key.
	ID string

	// SessionID is unique per accepted connection and keys the
	// connection map
	SessionID string

	conn    net.Conn
	timeout time.Duration

	lastActivity atomic.Int64 // unix nanoseconds
	commandCount atomic.Uint64

	closeOnce sync.Once
}

func newClientConnection(id, sessionID string, conn net.Conn, timeout time.Duration) *ClientConnection {
	c := &ClientConnection{
		ID:        id,
		SessionID: sessionID,
		conn:      conn,
		timeout:   timeout,
	}
	c.touch()
	return c
}

// touch records activity. Called by the owning reader only.
func (c *ClientConnection) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// recordCommand bumps the command counter. Called by the owning reader only.
func (c *ClientConnection) recordCommand() {
	c.commandCount.Add(1)
}

// LastActivity returns the time of the most recent read or command.
func (c *ClientConnection) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// CommandCount returns how many commands this connection has produced.
func (c *ClientConnection) CommandCount() uint64 {
	return c.commandCount.Load()
}

// IdleFor returns how long the connection has been inactive.
func (c *ClientConnection) IdleFor(now time.Time) time.Duration {
	return now.Sub(c.LastActivity())
}

// IsAlive reports whether the connection is within its idle timeout.
func (c *ClientConnection) IsAlive(now time.Time) bool {
	return c.IdleFor(now) <= c.timeout
}

// close shuts the socket down exactly once. Any blocked read unblocks with
// an error, which the reader treats as a normal disconnect.
func (c *ClientConnection) close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}

// ClientInfo is a point-in-time snapshot of one connection, safe to hand to
// reporting code.
type ClientInfo struct {
	ID           string
	SessionID    string
	CommandCount uint64
	IdleFor      time.Duration
}

// snapshot captures the connection state for reporting.
func (c *ClientConnection) snapshot(now time.Time) ClientInfo {
	return ClientInfo{
		ID:           c.ID,
		SessionID:    c.SessionID,
		CommandCount: c.CommandCount(),
		IdleFor:      c.IdleFor(now),
	}
}
