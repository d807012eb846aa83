//go:build !integration

package usecase

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerTable_ScheduleAndFire(t *testing.T) {
	tt := NewTimerTable()
	defer tt.Stop()

	fired := make(chan struct{})
	tt.Schedule("chan-1", TimerNotify, 5*time.Millisecond, func() { close(fired) })

	if !tt.Pending("chan-1", TimerNotify) {
		t.Fatal("expected timer pending")
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	// The fired timer removes itself.
	deadline := time.Now().Add(time.Second)
	for tt.Pending("chan-1", TimerNotify) {
		if time.Now().After(deadline) {
			t.Fatal("fired timer still listed as pending")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTimerTable_CancelStopsCallback(t *testing.T) {
	tt := NewTimerTable()
	defer tt.Stop()

	var fired atomic.Int32
	tt.Schedule("chan-1", TimerNotify, 20*time.Millisecond, func() { fired.Add(1) })
	tt.Cancel("chan-1", TimerNotify)

	if tt.Pending("chan-1", TimerNotify) {
		t.Fatal("cancelled timer still pending")
	}
	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("cancelled timer fired")
	}
}

func TestTimerTable_ScheduleReplacesPrevious(t *testing.T) {
	tt := NewTimerTable()
	defer tt.Stop()

	fired := make(chan string, 2)
	tt.Schedule("chan-1", TimerNotify, 20*time.Millisecond, func() { fired <- "first" })
	tt.Schedule("chan-1", TimerNotify, 20*time.Millisecond, func() { fired <- "second" })

	select {
	case got := <-fired:
		if got != "second" {
			t.Fatalf("expected replacement to fire, got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("replacement never fired")
	}
	select {
	case got := <-fired:
		t.Fatalf("replaced timer fired too: %q", got)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestTimerTable_CancelAllAndStop(t *testing.T) {
	tt := NewTimerTable()

	var fired atomic.Int32
	tt.Schedule("chan-1", TimerNotify, 20*time.Millisecond, func() { fired.Add(1) })
	tt.Schedule("chan-1", TimerExpire, 20*time.Millisecond, func() { fired.Add(1) })
	tt.Schedule("chan-2", TimerNotify, 20*time.Millisecond, func() { fired.Add(1) })

	tt.CancelAll("chan-1")
	if tt.Pending("chan-1", TimerNotify) || tt.Pending("chan-1", TimerExpire) {
		t.Fatal("expected chan-1 timers cancelled")
	}
	if !tt.Pending("chan-2", TimerNotify) {
		t.Fatal("chan-2 timer must survive chan-1 cancellation")
	}

	tt.Stop()
	if tt.Pending("chan-2", TimerNotify) {
		t.Fatal("Stop left a timer pending")
	}
	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("stopped timers fired %d times", fired.Load())
	}
}
