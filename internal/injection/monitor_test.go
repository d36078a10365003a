package injection

import (
	"testing"
	"time"
)

func TestMonitorStartStopNoTarget(t *testing.T) {
	m := NewMonitor("definitely-not-a-real-process.exe", time.Second)

	m.Start()
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	if got := m.State(); got != MonitorStopped {
		t.Errorf("state after Stop = %v, want Stopped", got)
	}
}

func TestMonitorResumeIdempotent(t *testing.T) {
	m := NewMonitor("definitely-not-a-real-process.exe", time.Second)

	m.Start()
	m.Resume()
	m.Resume()
	m.Stop()

	if got := m.State(); got != MonitorStopped {
		t.Errorf("state after double Resume + Stop = %v, want Stopped", got)
	}
}

func TestMonitorStartWhileRunningIsNoop(t *testing.T) {
	m := NewMonitor("definitely-not-a-real-process.exe", time.Second)

	m.Start()
	m.Start()

	if got := m.State(); got == MonitorStopped {
		t.Errorf("state after second Start = %v, want not Stopped", got)
	}

	m.Stop()
}
