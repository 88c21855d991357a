package console

import (
	"context"
	"time"

	"github.com/avolpe/remcon/internal/logger"
	"github.com/avolpe/remcon/internal/ratelimiter"
)

// readLoop turns one client's byte stream into discrete Command values.
//
// Framing is accumulate-and-trim: bytes are appended to a pooled
// accumulator, and a command is recognized once a read ends a burst (returns
// less than a full buffer) and the accumulated text trims to something
// non-empty. A full-buffer read is treated as a continuation of the same
// burst, so oversized input is collected whole and dropped whole.
//
// Pacing: a minimum inter-read delay and a minimum inter-command delay are
// enforced by sleeping the remainder of the interval, bounding the
// worst-case ingestion rate from a single hostile or buggy client.
//
// Every exit path closes the socket, removes the connection from the map,
// emits clientDisconnected, and returns the pooled buffer and accumulator.
func (m *ConnectionManager) readLoop(client *ClientConnection, shutdown chan struct{}) {
	buf := m.bufPool.Acquire()
	acc := m.accPool.Acquire()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in console reader for %s: %v", client.ID, r)
		}

		client.close()
		m.clients.Delete(client.SessionID)
		current := m.connCount.Add(-1)
		m.metrics.RecordConnectionClosed()
		m.metrics.SetActiveConnections(current)

		m.bufPool.Release(buf)
		m.accPool.Release(acc)

		logger.Info("Console client disconnected: %s (active %d)", client.ID, current)
		m.events.Emit(EventClientDisconnected, client.ID, "client disconnected")
		m.workers.Done()
	}()

	// Pacing contexts are cancelled by shutdown so a throttled reader
	// never delays Stop.
	paceCtx, cancelPace := context.WithCancel(context.Background())
	defer cancelPace()
	readerDone := make(chan struct{})
	defer close(readerDone)
	go func() {
		select {
		case <-shutdown:
			cancelPace()
		case <-readerDone:
		}
	}()

	readPacer := ratelimiter.NewInterval(m.config.ReadThrottle)
	commandPacer := ratelimiter.NewInterval(m.config.CommandThrottle)

	for {
		select {
		case <-shutdown:
			return
		default:
		}

		if err := readPacer.Pace(paceCtx); err != nil {
			return
		}

		// The idle deadline lets the blocking read cooperate with the
		// cleanup sweep: an evicted socket errors out of Read.
		if err := client.conn.SetReadDeadline(time.Now().Add(m.config.IdleTimeout)); err != nil {
			logger.Debug("Failed to set read deadline for %s: %v", client.ID, err)
		}

		n, err := client.conn.Read(buf)
		if n > 0 {
			client.touch()
			acc.Write(buf[:n])
		}
		if err != nil {
			// Stream end, reset, timeout, or eviction: all ordinary
			// disconnects, never surfaced as server errors.
			logger.Debug("Console read ended for %s: %v", client.ID, err)
			return
		}

		if n == len(buf) {
			// Mid-burst; keep accumulating before recognizing a line.
			continue
		}

		line := trimLine(acc.String())
		acc.Reset()
		if line == "" {
			continue
		}

		if len(line) > m.config.MaxCommandLength {
			logger.Warn("Dropping %d-byte command from %s: exceeds limit of %d",
				len(line), client.ID, m.config.MaxCommandLength)
			m.metrics.RecordCommandDropped("too_long")
			continue
		}

		if err := commandPacer.Pace(paceCtx); err != nil {
			return
		}

		m.enqueue(client, line)
	}
}

// enqueue hands one accepted command line to the shared queue.
func (m *ConnectionManager) enqueue(client *ClientConnection, line string) {
	client.touch()
	client.recordCommand()

	if !m.ingest.Allow() {
		logger.Warn("Aggregate command rate exceeded, dropping command from %s", client.ID)
		m.metrics.RecordCommandDropped("rate_limited")
		return
	}

	cmd := m.cmdPool.Acquire()
	cmd.Text = line
	cmd.ClientID = client.ID
	cmd.ReceivedAt = time.Now()

	select {
	case m.queue <- cmd:
		m.events.Emit(EventCommandReceived, client.ID, line)
	default:
		// Queue full: the dispatcher is not keeping up. Drop rather
		// than block the reader.
		logger.Warn("Command queue full, dropping command from %s", client.ID)
		m.metrics.RecordCommandDropped("queue_full")
		m.cmdPool.Release(cmd)
	}
}

// trimLine trims surrounding whitespace including stray telnet line endings.
func trimLine(s string) string {
	start, end := 0, len(s)
	for start < end && isLineSpace(s[start]) {
		start++
	}
	for end > start && isLineSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isLineSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\x00'
}
