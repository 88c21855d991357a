package console

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolpe/remcon/pkg/config"
)

// waitFor polls a condition until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// waitDequeue polls the queue until a command arrives.
func waitDequeue(t *testing.T, m *ConnectionManager, timeout time.Duration) *Command {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cmd := m.TryDequeueCommand(); cmd != nil {
			return cmd
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no command dequeued in time")
	return nil
}

func startManager(t *testing.T, cfg config.ServerConfig) *ConnectionManager {
	t.Helper()
	m := NewConnectionManager(cfg, nil, NewEventSink(64))
	require.NoError(t, m.Start())
	t.Cleanup(m.Stop)
	return m
}

func dialManager(t *testing.T, m *ConnectionManager) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", m.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// sendLine writes one command and pauses long enough for the read burst to
// end, so consecutive commands are framed separately.
func sendLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	_, err := conn.Write([]byte(line + "\n"))
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
}

func TestStartStopLifecycle(t *testing.T) {
	m := NewConnectionManager(testServerConfig(), nil, nil)

	assert.False(t, m.Running())
	assert.Equal(t, 0, m.Port())

	require.NoError(t, m.Start())
	assert.True(t, m.Running())
	assert.Greater(t, m.Port(), 0)

	// Second Start is a warned no-op, not an error.
	require.NoError(t, m.Start())

	m.Stop()
	assert.False(t, m.Running())

	// Stop when already stopped is safe.
	m.Stop()
}

func TestRestartAfterStop(t *testing.T) {
	m := NewConnectionManager(testServerConfig(), nil, nil)

	require.NoError(t, m.Start())
	m.Stop()

	require.NoError(t, m.Start())
	defer m.Stop()

	conn := dialManager(t, m)
	sendLine(t, conn, "help")

	cmd := waitDequeue(t, m, time.Second)
	assert.Equal(t, "help", cmd.Text)
}

func TestCommandRoundTripPreservesOrder(t *testing.T) {
	m := startManager(t, testServerConfig())
	conn := dialManager(t, m)

	sendLine(t, conn, "first")
	sendLine(t, conn, "second")
	sendLine(t, conn, "third")

	for _, want := range []string{"first", "second", "third"} {
		cmd := waitDequeue(t, m, time.Second)
		assert.Equal(t, want, cmd.Text)
		assert.NotEmpty(t, cmd.ClientID)
		assert.False(t, cmd.ReceivedAt.IsZero())
		m.ReleaseCommand(cmd)
	}
}

func TestWhitespaceOnlyInputIgnored(t *testing.T) {
	m := startManager(t, testServerConfig())
	conn := dialManager(t, m)

	sendLine(t, conn, "   \r")
	sendLine(t, conn, "real")

	cmd := waitDequeue(t, m, time.Second)
	assert.Equal(t, "real", cmd.Text, "blank lines must never become commands")
}

func TestConnectionCeilingRejectsExtra(t *testing.T) {
	cfg := testServerConfig()
	cfg.MaxConnections = 1
	m := startManager(t, cfg)

	first := dialManager(t, m)
	waitFor(t, time.Second, func() bool { return m.ConnectionCount() == 1 },
		"first connection registered")

	second := dialManager(t, m)
	require.NoError(t, second.SetReadDeadline(time.Now().Add(time.Second)))
	_, err := second.Read(make([]byte, 1))
	assert.Error(t, err, "connection beyond the ceiling must be closed immediately")
	assert.Equal(t, 1, m.ConnectionCount())

	// The slot frees once the first client leaves.
	require.NoError(t, first.Close())
	waitFor(t, time.Second, func() bool { return m.ConnectionCount() == 0 },
		"first connection removed")

	dialManager(t, m)
	waitFor(t, time.Second, func() bool { return m.ConnectionCount() == 1 },
		"third connection registered")
}

func TestAllowListRejectsUnlistedAddress(t *testing.T) {
	cfg := testServerConfig()
	cfg.AllowedIPs = []string{"203.0.113.1"}
	m := startManager(t, cfg)

	conn := dialManager(t, m)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err := conn.Read(make([]byte, 1))
	assert.Error(t, err, "unlisted source must be closed before registration")
	assert.Equal(t, 0, m.ConnectionCount())
}

func TestAllowListAdmitsListedAddress(t *testing.T) {
	cfg := testServerConfig()
	cfg.AllowedIPs = []string{"127.0.0.1"}
	m := startManager(t, cfg)

	dialManager(t, m)
	waitFor(t, time.Second, func() bool { return m.ConnectionCount() == 1 },
		"listed source admitted")
}

func TestOversizedCommandDropped(t *testing.T) {
	cfg := testServerConfig()
	cfg.MaxCommandLength = 16
	m := startManager(t, cfg)
	conn := dialManager(t, m)

	long := make([]byte, 40)
	for i := range long {
		long[i] = 'x'
	}
	sendLine(t, conn, string(long))
	sendLine(t, conn, "short")

	cmd := waitDequeue(t, m, time.Second)
	assert.Equal(t, "short", cmd.Text, "the oversized command must be dropped whole")
	assert.Nil(t, m.TryDequeueCommand())
}

func TestOversizedCommandSpanningBuffers(t *testing.T) {
	cfg := testServerConfig()
	cfg.BufferSize = 64
	cfg.MaxCommandLength = 100
	m := startManager(t, cfg)
	conn := dialManager(t, m)

	// Larger than both the read buffer and the limit, sent as one burst.
	big := make([]byte, 200)
	for i := range big {
		big[i] = 'y'
	}
	sendLine(t, conn, string(big))
	sendLine(t, conn, "after")

	cmd := waitDequeue(t, m, time.Second)
	assert.Equal(t, "after", cmd.Text,
		"input spanning several reads is still one command, dropped once")
}

func TestAggregateRateCapDropsExcess(t *testing.T) {
	cfg := testServerConfig()
	cfg.MaxCommandsPerSecond = 1
	m := startManager(t, cfg)
	conn := dialManager(t, m)

	sendLine(t, conn, "inside")
	sendLine(t, conn, "excess")

	waitFor(t, time.Second, func() bool {
		clients := m.Clients()
		return len(clients) == 1 && clients[0].CommandCount >= 2
	}, "both commands read")

	cmd := waitDequeue(t, m, time.Second)
	assert.Equal(t, "inside", cmd.Text)
	assert.Nil(t, m.TryDequeueCommand(),
		"the command above the aggregate cap must be dropped, not queued")
}

func TestQueueFullDropsNewest(t *testing.T) {
	cfg := testServerConfig()
	cfg.QueueSize = 1
	m := startManager(t, cfg)
	conn := dialManager(t, m)

	sendLine(t, conn, "kept")
	sendLine(t, conn, "dropped")

	waitFor(t, time.Second, func() bool {
		clients := m.Clients()
		return len(clients) == 1 && clients[0].CommandCount >= 2
	}, "both commands read")

	cmd := waitDequeue(t, m, time.Second)
	assert.Equal(t, "kept", cmd.Text)
	assert.Nil(t, m.TryDequeueCommand(), "overflow command must be dropped, not queued")
}

func TestIdleConnectionEvicted(t *testing.T) {
	cfg := testServerConfig()
	cfg.IdleTimeout = 50 * time.Millisecond
	cfg.CleanupInterval = 20 * time.Millisecond
	m := startManager(t, cfg)

	dialManager(t, m)
	waitFor(t, time.Second, func() bool { return m.ConnectionCount() == 1 },
		"connection registered")

	waitFor(t, 2*time.Second, func() bool { return m.ConnectionCount() == 0 },
		"idle connection evicted")
}

func TestStopClosesClients(t *testing.T) {
	m := NewConnectionManager(testServerConfig(), nil, nil)
	require.NoError(t, m.Start())

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", m.Port()))
	require.NoError(t, err)
	defer conn.Close()

	waitFor(t, time.Second, func() bool { return m.ConnectionCount() == 1 },
		"connection registered")

	m.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err, "client sockets must be closed by Stop")
	assert.Equal(t, 0, m.ConnectionCount())
}

func TestClientsSnapshot(t *testing.T) {
	m := startManager(t, testServerConfig())
	conn := dialManager(t, m)

	sendLine(t, conn, "help")
	waitDequeue(t, m, time.Second)

	clients := m.Clients()
	require.Len(t, clients, 1)
	assert.NotEmpty(t, clients[0].ID)
	assert.NotEmpty(t, clients[0].SessionID)
	assert.Equal(t, uint64(1), clients[0].CommandCount)
}

func TestEndpointReuseKeepsNewClientTracked(t *testing.T) {
	m := NewConnectionManager(testServerConfig(), nil, NewEventSink(64))
	shutdown := make(chan struct{})
	defer close(shutdown)

	endpoint := "127.0.0.1:60000"

	oldSrv, oldCli := net.Pipe()
	old := newClientConnection(endpoint, "session-old", oldSrv, time.Minute)
	m.clients.Store(old.SessionID, old)
	m.connCount.Add(1)

	// Same endpoint reconnects before the old reader's cleanup has run.
	freshSrv, freshCli := net.Pipe()
	defer freshSrv.Close()
	defer freshCli.Close()
	fresh := newClientConnection(endpoint, "session-new", freshSrv, time.Minute)
	m.clients.Store(fresh.SessionID, fresh)
	m.connCount.Add(1)

	m.workers.Add(1)
	go m.readLoop(old, shutdown)
	require.NoError(t, oldCli.Close())

	waitFor(t, time.Second, func() bool { return m.ConnectionCount() == 1 },
		"old reader cleaned up")

	clients := m.Clients()
	require.Len(t, clients, 1)
	assert.Equal(t, "session-new", clients[0].SessionID,
		"stale cleanup must not remove the reconnected client")
}

func TestConnectionEvents(t *testing.T) {
	events := NewEventSink(64)
	m := NewConnectionManager(testServerConfig(), nil, events)
	require.NoError(t, m.Start())
	defer m.Stop()

	conn := dialManager(t, m)
	waitFor(t, time.Second, func() bool { return m.ConnectionCount() == 1 },
		"connection registered")
	require.NoError(t, conn.Close())
	waitFor(t, time.Second, func() bool { return m.ConnectionCount() == 0 },
		"connection removed")

	var kinds []EventKind
	for {
		select {
		case ev := <-events.Events():
			kinds = append(kinds, ev.Kind)
			continue
		default:
		}
		break
	}
	assert.Contains(t, kinds, EventClientConnected)
	assert.Contains(t, kinds, EventClientDisconnected)
}
