package stats

import (
	"testing"
	"time"
)

func TestRecordCommandCounters(t *testing.T) {
	s := NewPerformanceStats(time.Second)

	for i := 0; i < 5; i++ {
		s.RecordCommand(2 * time.Millisecond)
	}

	snap := s.Snapshot()
	if snap.TotalCommands != 5 {
		t.Errorf("TotalCommands = %d, expected 5", snap.TotalCommands)
	}
	if snap.CommandsThisWindow != 5 {
		t.Errorf("CommandsThisWindow = %d, expected 5", snap.CommandsThisWindow)
	}
	if snap.RollingAverageMs <= 0 {
		t.Errorf("RollingAverageMs = %f, expected > 0", snap.RollingAverageMs)
	}
}

func TestTickRollsWindow(t *testing.T) {
	s := NewPerformanceStats(10 * time.Millisecond)

	s.RecordCommand(time.Millisecond)
	s.RecordCommand(time.Millisecond)
	s.RecordCommand(time.Millisecond)

	// Before the window elapses the counters are untouched.
	s.Tick(s.windowStart.Add(5 * time.Millisecond))
	if snap := s.Snapshot(); snap.CommandsThisWindow != 3 {
		t.Fatalf("window rolled early: CommandsThisWindow = %d", snap.CommandsThisWindow)
	}

	rollover := s.windowStart.Add(11 * time.Millisecond)
	s.Tick(rollover)

	snap := s.Snapshot()
	if snap.CommandsThisWindow != 0 {
		t.Errorf("CommandsThisWindow = %d after rollover, expected 0", snap.CommandsThisWindow)
	}
	if snap.PeakPerWindow != 3 {
		t.Errorf("PeakPerWindow = %d, expected 3", snap.PeakPerWindow)
	}
	if !snap.WindowStart.Equal(rollover) {
		t.Errorf("WindowStart not advanced: %v", snap.WindowStart)
	}
	if snap.TotalCommands != 3 {
		t.Errorf("TotalCommands = %d, expected 3 (rollover must not reset totals)", snap.TotalCommands)
	}
}

func TestPeakKeepsMaximum(t *testing.T) {
	s := NewPerformanceStats(10 * time.Millisecond)

	for i := 0; i < 7; i++ {
		s.RecordCommand(time.Millisecond)
	}
	s.Tick(s.windowStart.Add(11 * time.Millisecond))

	s.RecordCommand(time.Millisecond)
	s.Tick(s.windowStart.Add(11 * time.Millisecond))

	if snap := s.Snapshot(); snap.PeakPerWindow != 7 {
		t.Errorf("PeakPerWindow = %d, expected 7", snap.PeakPerWindow)
	}
}

func TestNoopMetricsIsSafe(t *testing.T) {
	var m ConsoleMetrics = NoopConsoleMetrics{}
	m.RecordCommand("help", time.Millisecond, nil)
	m.RecordCommandDropped("too_long")
	m.SetActiveConnections(3)
	m.RecordConnectionAccepted()
	m.RecordConnectionRejected("capacity")
	m.RecordConnectionClosed()
}
