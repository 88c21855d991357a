package console

import (
	"time"

	"github.com/avolpe/remcon/internal/logger"
)

// EventKind tags an Event with its category.
type EventKind int

const (
	EventClientConnected EventKind = iota
	EventClientDisconnected
	EventServerError
	EventCommandReceived
	EventCommandProcessed
	EventCommandError
)

func (k EventKind) String() string {
	switch k {
	case EventClientConnected:
		return "client_connected"
	case EventClientDisconnected:
		return "client_disconnected"
	case EventServerError:
		return "server_error"
	case EventCommandReceived:
		return "command_received"
	case EventCommandProcessed:
		return "command_processed"
	case EventCommandError:
		return "command_error"
	default:
		return "unknown"
	}
}

// Event is one outward notification. ClientID is empty for events without an
// originating connection.
type Event struct {
	Kind     EventKind
	ClientID string
	Message  string
	At       time.Time
}

// EventSink is a single tagged-event channel shared by the connection
// manager and the dispatcher. The host drains it on its own cadence; the
// sink never blocks an emitter. When the buffer is full the oldest event is
// dropped with a log line so notification keeps the same backpressure
// discipline as the command queue.
type EventSink struct {
	ch chan Event
}

// NewEventSink creates a sink with the given buffer size.
func NewEventSink(buffer int) *EventSink {
	if buffer <= 0 {
		buffer = 128
	}
	return &EventSink{ch: make(chan Event, buffer)}
}

// Events returns the receive side for the host to drain.
func (s *EventSink) Events() <-chan Event {
	return s.ch
}

// Emit queues an event without blocking. Safe to call from any goroutine.
func (s *EventSink) Emit(kind EventKind, clientID, message string) {
	ev := Event{Kind: kind, ClientID: clientID, Message: message, At: time.Now()}

	select {
	case s.ch <- ev:
		return
	default:
	}

	// Buffer full: make room by discarding the oldest event. A second
	// emitter may race us for the slot, so the final send stays
	// non-blocking too.
	select {
	case dropped := <-s.ch:
		logger.Warn("Event buffer full, dropping oldest event %s", dropped.Kind)
	default:
	}
	select {
	case s.ch <- ev:
	default:
		logger.Warn("Event buffer full, dropping event %s", ev.Kind)
	}
}
