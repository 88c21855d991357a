// Package stats provides performance accounting for the command console:
// a rolling per-window counter owned by the dispatcher tick loop, plus
// optional Prometheus metrics and the HTTP server that exposes them.
package stats

import (
	"time"

	"github.com/avolpe/remcon/internal/logger"
)

// PerformanceStats tracks command throughput and latency over a rolling
// window.
//
// Ownership: all methods are called from the dispatcher's tick loop only.
// No internal locking; concurrent use from other goroutines is a bug.
type PerformanceStats struct {
	windowLength time.Duration

	totalCommands      uint64
	commandsThisWindow uint64
	peakPerWindow      uint64
	rollingAverageMs   float64
	windowStart        time.Time
}

// Snapshot is a point-in-time copy of the counters, safe to hand to
// reporting code.
type Snapshot struct {
	TotalCommands      uint64
	CommandsThisWindow uint64
	PeakPerWindow      uint64
	RollingAverageMs   float64
	WindowStart        time.Time
}

// ewmaAlpha weights the rolling latency average toward recent commands.
const ewmaAlpha = 0.2

// NewPerformanceStats creates a PerformanceStats with the given window
// length. A zero windowLength defaults to one second.
func NewPerformanceStats(windowLength time.Duration) *PerformanceStats {
	if windowLength <= 0 {
		windowLength = time.Second
	}
	return &PerformanceStats{
		windowLength: windowLength,
		windowStart:  time.Now(),
	}
}

// RecordCommand accounts for one processed command and its handling time.
func (s *PerformanceStats) RecordCommand(duration time.Duration) {
	s.totalCommands++
	s.commandsThisWindow++

	ms := float64(duration.Microseconds()) / 1000.0
	if s.rollingAverageMs == 0 {
		s.rollingAverageMs = ms
	} else {
		s.rollingAverageMs = ewmaAlpha*ms + (1-ewmaAlpha)*s.rollingAverageMs
	}
}

// Tick rolls the window over if it has elapsed, updating the peak and
// resetting the per-window counter. Call once per dispatcher tick.
func (s *PerformanceStats) Tick(now time.Time) {
	if now.Sub(s.windowStart) < s.windowLength {
		return
	}

	if s.commandsThisWindow > s.peakPerWindow {
		s.peakPerWindow = s.commandsThisWindow
	}
	if s.commandsThisWindow > 0 {
		logger.Debug("Console throughput: %d commands this window (peak %d, avg %.2fms)",
			s.commandsThisWindow, s.peakPerWindow, s.rollingAverageMs)
	}

	s.commandsThisWindow = 0
	s.windowStart = now
}

// Snapshot returns a copy of the current counters.
func (s *PerformanceStats) Snapshot() Snapshot {
	return Snapshot{
		TotalCommands:      s.totalCommands,
		CommandsThisWindow: s.commandsThisWindow,
		PeakPerWindow:      s.peakPerWindow,
		RollingAverageMs:   s.rollingAverageMs,
		WindowStart:        s.windowStart,
	}
}
