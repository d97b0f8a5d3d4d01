package kapacitor

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

// fakeProbe scripts Exited and PortOpen answers and records calls.
type fakeProbe struct {
	mu         sync.Mutex
	exitedAt   int // poll number (1-based) from which Exited is true; 0 = never
	openAt     int // port poll number from which PortOpen is true; 0 = never
	polls      int
	portPolls  int
	portPollAt []time.Time
}

func (f *fakeProbe) Exited() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return f.exitedAt > 0 && f.polls >= f.exitedAt
}

func (f *fakeProbe) PortOpen(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.portPolls++
	f.portPollAt = append(f.portPollAt, time.Now())
	return f.openAt > 0 && f.portPolls >= f.openAt
}

func TestWaitReady_PortNeverOpens(t *testing.T) {
	probe := &fakeProbe{}
	interval := 20 * time.Millisecond

	err := WaitReady(context.Background(), probe, Policy{MaxAttempts: 5, Interval: interval})

	var notReady *NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("WaitReady() error = %v, want *NotReadyError", err)
	}
	if !errors.Is(err, ErrNotReady) {
		t.Error("error does not wrap ErrNotReady")
	}
	if notReady.Attempts != 5 {
		t.Errorf("Attempts = %d, want 5", notReady.Attempts)
	}
	if probe.portPolls != 5 {
		t.Errorf("port polls = %d, want exactly 5", probe.portPolls)
	}
	for i := 1; i < len(probe.portPollAt); i++ {
		if gap := probe.portPollAt[i].Sub(probe.portPollAt[i-1]); gap < interval {
			t.Errorf("gap between poll %d and %d = %v, want >= %v", i, i+1, gap, interval)
		}
	}
}

func TestWaitReady_ExitedOnFirstPoll(t *testing.T) {
	probe := &fakeProbe{exitedAt: 1}

	err := WaitReady(context.Background(), probe, Policy{MaxAttempts: 50, Interval: time.Second})

	if !errors.Is(err, ErrDaemonExited) {
		t.Fatalf("WaitReady() error = %v, want ErrDaemonExited", err)
	}
	if probe.portPolls != 0 {
		t.Errorf("port polls = %d, want 0", probe.portPolls)
	}
}

func TestWaitReady_ExitedTakesPrecedence(t *testing.T) {
	// Exits on the third poll; the port would have opened on the third port poll.
	probe := &fakeProbe{exitedAt: 3, openAt: 3}

	err := WaitReady(context.Background(), probe, Policy{MaxAttempts: 10, Interval: time.Millisecond})

	if !errors.Is(err, ErrDaemonExited) {
		t.Fatalf("WaitReady() error = %v, want ErrDaemonExited", err)
	}
	if probe.portPolls != 2 {
		t.Errorf("port polls = %d, want 2", probe.portPolls)
	}
}

func TestWaitReady_BecomesReady(t *testing.T) {
	probe := &fakeProbe{openAt: 3}
	var states []ReadinessState

	err := WaitReady(context.Background(), probe, Policy{
		MaxAttempts: 5,
		Interval:    time.Millisecond,
		OnPoll:      func(s ReadinessState) { states = append(states, s) },
	})
	if err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	if probe.portPolls != 3 {
		t.Errorf("port polls = %d, want 3", probe.portPolls)
	}
	if len(states) != 3 {
		t.Fatalf("observed %d states, want 3", len(states))
	}
	last := states[2]
	if !last.DaemonAlive || !last.PortOpen || last.Attempt != 3 {
		t.Errorf("last state = %+v, want alive, open, attempt 3", last)
	}
	if states[0].PortOpen {
		t.Error("first state reports port open")
	}
}

func TestWaitReady_ContextCancelled(t *testing.T) {
	probe := &fakeProbe{}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	err := WaitReady(ctx, probe, Policy{MaxAttempts: 1000, Interval: 10 * time.Millisecond})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitReady() error = %v, want context.Canceled", err)
	}
	if probe.portPolls >= 1000 {
		t.Errorf("port polls = %d, wait was not aborted", probe.portPolls)
	}
}

type staticExit bool

func (s staticExit) Exited() bool { return bool(s) }

func TestDaemonProbe_PortOpen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	probe := NewDaemonProbe(staticExit(false), "127.0.0.1", port, 200*time.Millisecond)
	if !probe.PortOpen(context.Background()) {
		t.Error("PortOpen() = false with a listener")
	}

	ln.Close() //nolint:errcheck // Test cleanup
	if probe.PortOpen(context.Background()) {
		t.Error("PortOpen() = true after listener closed")
	}
}

func TestDaemonProbe_Exited(t *testing.T) {
	if !NewDaemonProbe(staticExit(true), "localhost", 9092, 0).Exited() {
		t.Error("Exited() = false, want true")
	}
	probe := NewDaemonProbe(staticExit(false), "localhost", 9092, 0)
	if probe.Exited() {
		t.Error("Exited() = true, want false")
	}
	if probe.Addr() != "localhost:9092" {
		t.Errorf("Addr() = %q, want localhost:9092", probe.Addr())
	}
}
