package console

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avolpe/remcon/internal/logger"
	"github.com/avolpe/remcon/pkg/config"
	"github.com/avolpe/remcon/pkg/stats"
)

// Handler processes one parsed command and returns a short result message.
type Handler func(p *ParsedCommand) (string, error)

// DynamicInvoker resolves a command name plus string arguments against
// pre-authored method bindings. Implemented by pkg/invoke.
type DynamicInvoker interface {
	Invoke(command string, args []string) bool
}

// Dispatcher drains the command queue on the host application's tick,
// parses each command, and routes it to a registered handler or the dynamic
// invoker. It maintains the bounded command history and emits
// processed/error events.
//
// Ownership: Drain, Process, and Stats run on the host tick goroutine only.
// RegisterHandler and GetHistory are safe from any goroutine.
type Dispatcher struct {
	config  config.ConsoleConfig
	manager *ConnectionManager
	events  *EventSink
	metrics stats.ConsoleMetrics
	perf    *stats.PerformanceStats
	invoker DynamicInvoker
	out     io.Writer

	mu       sync.RWMutex
	handlers map[string]Handler

	historyMu sync.Mutex
	history   []Command
}

// NewDispatcher creates a dispatcher bound to a connection manager. The
// metrics collector may be nil.
func NewDispatcher(cfg config.ConsoleConfig, manager *ConnectionManager, events *EventSink, metrics stats.ConsoleMetrics) *Dispatcher {
	if metrics == nil {
		metrics = stats.NoopConsoleMetrics{}
	}
	if events == nil {
		events = NewEventSink(0)
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	if cfg.MaxCommandsPerTick <= 0 {
		cfg.MaxCommandsPerTick = 16
	}

	d := &Dispatcher{
		config:   cfg,
		manager:  manager,
		events:   events,
		metrics:  metrics,
		perf:     stats.NewPerformanceStats(cfg.StatsWindow),
		out:      os.Stdout,
		handlers: make(map[string]Handler),
		history:  make([]Command, 0, cfg.HistorySize),
	}
	registerBuiltins(d)
	return d
}

// SetInvoker attaches the dynamic method invoker consulted for verbs with no
// registered handler. Call before the first Drain.
func (d *Dispatcher) SetInvoker(invoker DynamicInvoker) {
	d.invoker = invoker
}

// SetOutput redirects local console output (help, clients, history
// listings). Defaults to stdout.
func (d *Dispatcher) SetOutput(w io.Writer) {
	if w != nil {
		d.out = w
	}
}

// RegisterHandler associates a case-insensitive command name with a handler.
// Duplicate registration replaces the prior handler.
func (d *Dispatcher) RegisterHandler(name string, handler Handler) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("%w: command name cannot be empty", ErrInvalidArgument)
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrInvalidArgument)
	}

	d.mu.Lock()
	if _, exists := d.handlers[name]; exists {
		logger.Debug("Replacing handler for command %q", name)
	}
	d.handlers[name] = handler
	d.mu.Unlock()
	return nil
}

// Drain processes up to the configured number of queued commands and rolls
// the stats window. Call once per host tick. Returns how many commands were
// processed.
func (d *Dispatcher) Drain() int {
	processed := 0
	for i := 0; i < d.config.MaxCommandsPerTick; i++ {
		cmd := d.manager.TryDequeueCommand()
		if cmd == nil {
			break
		}
		d.Process(cmd)
		d.manager.ReleaseCommand(cmd)
		processed++
	}

	d.perf.Tick(time.Now())
	return processed
}

// Process parses and dispatches one command. Handler failures and panics
// are isolated: they surface as a commandError event and a log line, never
// as a crash of the dispatcher. Returns true if the command succeeded.
//
// The caller retains ownership of cmd; history keeps a value copy.
func (d *Dispatcher) Process(cmd *Command) bool {
	start := time.Now()
	parsed := parseCommand(cmd)
	d.appendHistory(*cmd)

	message, err := d.dispatch(parsed)
	duration := time.Since(start)

	verb := parsed.Verb
	if verb == "" {
		verb = "(empty)"
	}
	d.perf.RecordCommand(duration)
	d.metrics.RecordCommand(verb, duration, err)

	if d.config.SlowCommandThreshold > 0 && duration > d.config.SlowCommandThreshold {
		logger.Warn("Slow command %q from %s took %v (threshold %v)",
			cmd.Text, cmd.ClientID, duration, d.config.SlowCommandThreshold)
	}

	if err != nil {
		logger.Warn("Command %q from %s failed: %v", cmd.Text, cmd.ClientID, err)
		d.events.Emit(EventCommandError, cmd.ClientID, err.Error())
		return false
	}

	d.events.Emit(EventCommandProcessed, cmd.ClientID, message)
	return true
}

// dispatch routes one parsed command. The recover turns a handler panic
// into an ordinary dispatch failure.
func (d *Dispatcher) dispatch(p *ParsedCommand) (message string, err error) {
	defer func() {
		if r := recover(); r != nil {
			message = ""
			err = fmt.Errorf("handler for %q panicked: %v", p.Verb, r)
		}
	}()

	if p.Verb == "" {
		return "", fmt.Errorf("%w: empty input", ErrUnknownCommand)
	}

	// delay blocks the tick on purpose; it exists to exercise the
	// queue under load.
	if p.Verb == "delay" {
		return d.handleDelay(p)
	}

	d.mu.RLock()
	handler, ok := d.handlers[p.Verb]
	d.mu.RUnlock()

	if ok {
		return handler(p)
	}

	if d.invoker != nil && d.invoker.Invoke(p.Verb, p.Args) {
		return fmt.Sprintf("invoked %s", p.Verb), nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownCommand, p.Verb)
}

func (d *Dispatcher) handleDelay(p *ParsedCommand) (string, error) {
	if len(p.Args) != 1 {
		return "", fmt.Errorf("usage: delay <ms>")
	}
	ms, err := strconv.Atoi(p.Args[0])
	if err != nil || ms < 0 {
		return "", fmt.Errorf("delay argument %q is not a non-negative integer", p.Args[0])
	}

	time.Sleep(time.Duration(ms) * time.Millisecond)
	return fmt.Sprintf("delayed %dms", ms), nil
}

// appendHistory keeps a bounded record of received commands, oldest
// evicted first.
func (d *Dispatcher) appendHistory(cmd Command) {
	d.historyMu.Lock()
	defer d.historyMu.Unlock()

	if len(d.history) >= d.config.HistorySize {
		copy(d.history, d.history[1:])
		d.history = d.history[:len(d.history)-1]
	}
	d.history = append(d.history, cmd)
}

// GetHistory returns a copy of the command history, newest last.
func (d *Dispatcher) GetHistory() []Command {
	d.historyMu.Lock()
	defer d.historyMu.Unlock()

	out := make([]Command, len(d.history))
	copy(out, d.history)
	return out
}

// ClearHistory empties the command history.
func (d *Dispatcher) ClearHistory() {
	d.historyMu.Lock()
	defer d.historyMu.Unlock()
	d.history = d.history[:0]
}

// Stats returns the current performance counters. Tick-goroutine only.
func (d *Dispatcher) Stats() stats.Snapshot {
	return d.perf.Snapshot()
}

// handlerNames returns the sorted registered command names for help output.
func (d *Dispatcher) handlerNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	return names
}
