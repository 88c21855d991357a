package console

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/avolpe/remcon/internal/logger"
	"github.com/avolpe/remcon/internal/ratelimiter"
	"github.com/avolpe/remcon/pkg/config"
	"github.com/avolpe/remcon/pkg/pool"
	"github.com/avolpe/remcon/pkg/stats"
)

// ConnectionManager owns the listening socket and all per-connection reader
// goroutines. It accepts connections, enforces the IP allow-list and the
// connection ceiling, paces each connection's reads and commands, and feeds
// parsed commands into the shared queue drained by the dispatcher.
//
// Lifecycle:
//  1. NewConnectionManager with an explicit configuration value
//  2. Start() binds and begins accepting (idempotent; warns if running)
//  3. Stop() closes the listener and all sockets, joins readers with a
//     bounded wait, and clears the connection map (always safe)
//
// Thread safety: all exported methods are safe for concurrent use.
type ConnectionManager struct {
	config  config.ServerConfig
	metrics stats.ConsoleMetrics
	events  *EventSink

	// queue is the only structure routinely touched by both reader
	// goroutines and the dispatcher tick: concurrent enqueue, single
	// consumer dequeue, both non-blocking.
	queue chan *Command

	cmdPool *pool.Pool[*Command]
	bufPool *pool.Pool[[]byte]
	accPool *pool.Pool[*strings.Builder]

	// ingest caps sustained command ingestion across all connections;
	// the per-connection interval pacers bound a single client, this
	// bounds the aggregate.
	ingest *ratelimiter.RateLimiter

	// allowed is the precomputed allow-list; nil means allow all
	allowed map[string]struct{}

	mu       sync.Mutex
	running  bool
	listener net.Listener
	shutdown chan struct{}

	// clients is keyed by SessionID, not endpoint: an endpoint can be
	// reused by a reconnect before the old reader's cleanup runs, and the
	// stale reader must never remove the new client's entry.
	clients   sync.Map // SessionID -> *ClientConnection
	connCount atomic.Int32

	// workers tracks the accept loop, the sweep loop, and every reader
	workers sync.WaitGroup
}

// NewConnectionManager creates a manager in a stopped state.
//
// The metrics collector may be nil; a no-op implementation is used.
func NewConnectionManager(cfg config.ServerConfig, metrics stats.ConsoleMetrics, events *EventSink) *ConnectionManager {
	if metrics == nil {
		metrics = stats.NoopConsoleMetrics{}
	}
	if events == nil {
		events = NewEventSink(0)
	}

	var allowed map[string]struct{}
	if len(cfg.AllowedIPs) > 0 {
		allowed = make(map[string]struct{}, len(cfg.AllowedIPs))
		for _, ip := range cfg.AllowedIPs {
			allowed[ip] = struct{}{}
		}
	}

	return &ConnectionManager{
		config:  cfg,
		metrics: metrics,
		events:  events,
		queue:   make(chan *Command, cfg.QueueSize),
		cmdPool: pool.New(cfg.QueueSize, func() *Command { return &Command{} },
			pool.WithReleaseHook[*Command](func(c *Command) { c.reset() })),
		bufPool: pool.NewBufferPool(cfg.MaxConnections, cfg.BufferSize),
		accPool: pool.NewBuilderPool(cfg.MaxConnections),
		ingest: ratelimiter.New(uint(cfg.MaxCommandsPerSecond),
			uint(cfg.MaxCommandsPerSecond)),
		allowed: allowed,
	}
}

// Start binds the listening socket and begins accepting connections.
//
// Returns a bind error if the port is unavailable. Calling Start while
// already running is a no-op with a warning.
func (m *ConnectionManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		logger.Warn("Console server already running on port %d, ignoring Start", m.config.Port)
		return nil
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", m.config.Port))
	if err != nil {
		return fmt.Errorf("failed to bind console port %d: %w", m.config.Port, err)
	}

	m.listener = listener
	m.shutdown = make(chan struct{})
	m.running = true

	m.workers.Add(2)
	go m.acceptLoop(listener, m.shutdown)
	go m.sweepLoop(m.shutdown)

	logger.Info("Console server listening on port %d (max_connections=%d allow_list=%d entries)",
		m.config.Port, m.config.MaxConnections, len(m.allowed))
	return nil
}

// Stop signals the accept loop and all readers to exit, closes the
// listening socket, joins background work with a bounded wait, and clears
// the connection map. Always safe to call, including when not running or
// after a previous Stop.
func (m *ConnectionManager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.shutdown)
	_ = m.listener.Close()
	m.mu.Unlock()

	// Closing the sockets unblocks any reader stuck in Read.
	m.clients.Range(func(_, value any) bool {
		value.(*ClientConnection).close()
		return true
	})

	done := make(chan struct{})
	go func() {
		m.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Console server stopped gracefully")
	case <-time.After(m.config.ShutdownTimeout):
		logger.Warn("Console server shutdown timed out after %v, abandoning stragglers",
			m.config.ShutdownTimeout)
	}

	m.clients.Range(func(key, _ any) bool {
		m.clients.Delete(key)
		return true
	})
	m.connCount.Store(0)
	m.metrics.SetActiveConnections(0)

	m.drainQueue()
	m.cmdPool.Clear()
	m.bufPool.Clear()
	m.accPool.Clear()
}

// Running reports whether the manager is accepting connections.
func (m *ConnectionManager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Port returns the actual bound port, which differs from the configured one
// when the configuration requested port 0. Returns 0 when not running.
func (m *ConnectionManager) Port() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.listener == nil {
		return 0
	}
	return m.listener.Addr().(*net.TCPAddr).Port
}

// TryDequeueCommand pops one queued command without blocking. Returns nil if
// the queue is empty. Called only by the dispatcher tick.
func (m *ConnectionManager) TryDequeueCommand() *Command {
	select {
	case cmd := <-m.queue:
		return cmd
	default:
		return nil
	}
}

// ReleaseCommand returns a processed command record to the pool. Called by
// the dispatcher once it has finished with the record.
func (m *ConnectionManager) ReleaseCommand(cmd *Command) {
	if cmd != nil {
		m.cmdPool.Release(cmd)
	}
}

// QueueLen returns the number of commands waiting for dispatch.
func (m *ConnectionManager) QueueLen() int {
	return len(m.queue)
}

// ConnectionCount returns the number of live connections.
func (m *ConnectionManager) ConnectionCount() int {
	return int(m.connCount.Load())
}

// Clients returns a snapshot of all tracked connections for reporting.
func (m *ConnectionManager) Clients() []ClientInfo {
	now := time.Now()
	infos := make([]ClientInfo, 0, 8)
	m.clients.Range(func(_, value any) bool {
		infos = append(infos, value.(*ClientConnection).snapshot(now))
		return true
	})
	return infos
}

// CleanupTimedOutConnections closes and removes every connection whose idle
// time exceeds the configured timeout. The owning reader observes the closed
// socket and performs the map removal and disconnect event itself.
func (m *ConnectionManager) CleanupTimedOutConnections() {
	now := time.Now()
	m.clients.Range(func(_, value any) bool {
		client := value.(*ClientConnection)
		if !client.IsAlive(now) {
			logger.Info("Evicting idle console client %s (inactive %v)",
				client.ID, client.IdleFor(now).Round(time.Second))
			client.close()
		}
		return true
	})
}

// acceptLoop accepts connections until shutdown. Policy checks happen here
// so a rejected socket is closed before any state mutation.
func (m *ConnectionManager) acceptLoop(listener net.Listener, shutdown chan struct{}) {
	defer m.workers.Done()

	for {
		tcpConn, err := listener.Accept()
		if err != nil {
			select {
			case <-shutdown:
				// Expected interrupt: the listener was closed by Stop.
				return
			default:
				logger.Error("Error accepting console connection: %v", err)
				m.events.Emit(EventServerError, "", fmt.Sprintf("accept error: %v", err))
				continue
			}
		}

		remote := tcpConn.RemoteAddr().String()

		if !m.addressAllowed(remote) {
			logger.Warn("Rejecting console connection from %s: not in allow-list", remote)
			m.metrics.RecordConnectionRejected("allowlist")
			_ = tcpConn.Close()
			continue
		}

		if int(m.connCount.Load()) >= m.config.MaxConnections {
			logger.Warn("Rejecting console connection from %s: at ceiling of %d",
				remote, m.config.MaxConnections)
			m.metrics.RecordConnectionRejected("capacity")
			_ = tcpConn.Close()
			continue
		}

		client := newClientConnection(remote, uuid.NewString(), tcpConn, m.config.IdleTimeout)
		m.clients.Store(client.SessionID, client)
		current := m.connCount.Add(1)
		m.metrics.RecordConnectionAccepted()
		m.metrics.SetActiveConnections(current)

		logger.Info("Console client connected: %s (session %s, active %d)",
			client.ID, client.SessionID, current)
		m.events.Emit(EventClientConnected, client.ID, "client connected")

		m.workers.Add(1)
		go m.readLoop(client, shutdown)
	}
}

// addressAllowed checks the connection's source address against the
// allow-list. An empty allow-list admits everyone.
func (m *ConnectionManager) addressAllowed(remote string) bool {
	if m.allowed == nil {
		return true
	}
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return false
	}
	_, ok := m.allowed[host]
	return ok
}

// sweepLoop runs the idle-connection sweep on its own ticker, decoupled from
// the host's tick cadence.
func (m *ConnectionManager) sweepLoop(shutdown chan struct{}) {
	defer m.workers.Done()

	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupTimedOutConnections()
		case <-shutdown:
			return
		}
	}
}

// drainQueue releases every queued command back to the pool at shutdown.
func (m *ConnectionManager) drainQueue() {
	for {
		select {
		case cmd := <-m.queue:
			m.cmdPool.Release(cmd)
		default:
			return
		}
	}
}
