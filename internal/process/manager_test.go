package process

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingLogger captures Debug lines for output capture tests.
type recordingLogger struct {
	noopLogger
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Debug(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprint(append([]any{msg}, args...)...))
}

func (l *recordingLogger) joined() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

// eventuallyContains polls the captured output until it holds every want.
func eventuallyContains(t *testing.T, l *recordingLogger, wants ...string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		out := l.joined()
		missing := ""
		for _, w := range wants {
			if !strings.Contains(out, w) {
				missing = w
				break
			}
		}
		if missing == "" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("captured output missing %q:\n%s", missing, out)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitExited(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit in time")
	}
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(Config{
		Name:   "test-proc",
		Binary: "/usr/bin/test",
		Args:   []string{"--flag"},
	})

	if m.config.Name != "test-proc" {
		t.Errorf("Name = %q, want %q", m.config.Name, "test-proc")
	}
	if m.config.GracefulTimeout != 10*time.Second {
		t.Errorf("GracefulTimeout = %v, want %v", m.config.GracefulTimeout, 10*time.Second)
	}
}

func TestManager_InitialState(t *testing.T) {
	m := NewManager(Config{
		Name:   "test",
		Binary: "/bin/true",
	})

	if got := m.Stats().Status; got != StatusStopped {
		t.Errorf("initial Stats().Status = %q, want %q", got, StatusStopped)
	}
	if m.Exited() {
		t.Error("Exited() = true before Start()")
	}
	if m.PID() != 0 {
		t.Errorf("PID() = %d, want 0", m.PID())
	}
	if stats := m.Stats(); stats.Uptime != 0 || stats.LastError != "" {
		t.Errorf("Stats() = %+v, want no uptime and no error", stats)
	}
}

func TestManager_Stats(t *testing.T) {
	m := NewManager(Config{
		Name:   "stats-test",
		Binary: "/bin/echo",
	})

	stats := m.Stats()
	if stats.Name != "stats-test" {
		t.Errorf("Stats.Name = %q, want %q", stats.Name, "stats-test")
	}
	if stats.Status != StatusStopped {
		t.Errorf("Stats.Status = %q, want %q", stats.Status, StatusStopped)
	}
	if stats.PID != 0 {
		t.Errorf("Stats.PID = %d, want 0", stats.PID)
	}
}

func TestManager_StopWhenNotStarted(t *testing.T) {
	m := NewManager(Config{
		Name:   "test",
		Binary: "/bin/true",
	})

	if err := m.Stop(); err != nil {
		t.Errorf("Stop() on unstarted process error = %v, want nil", err)
	}
}

func TestManager_StartTwice(t *testing.T) {
	m := NewManager(Config{
		Name:            "test",
		Binary:          "/bin/sleep",
		Args:            []string{"10"},
		GracefulTimeout: 2 * time.Second,
	})

	if err := m.Start(); err != nil {
		t.Fatalf("first Start() error: %v", err)
	}
	defer m.Stop() //nolint:errcheck // Test cleanup

	err := m.Start()
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestManager_StartAndStop(t *testing.T) {
	m := NewManager(Config{
		Name:            "test-sleep",
		Binary:          "/bin/sleep",
		Args:            []string{"60"},
		GracefulTimeout: 2 * time.Second,
	})

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if got := m.Stats().Status; got != StatusRunning {
		t.Errorf("Stats().Status = %q, want %q", got, StatusRunning)
	}
	if m.PID() == 0 {
		t.Error("PID() = 0 after Start()")
	}
	if m.Exited() {
		t.Error("Exited() = true while running")
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	if !m.Exited() {
		t.Error("Exited() = false after Stop()")
	}
	if got := m.Stats().Status; got != StatusExited {
		t.Errorf("Stats().Status = %q, want %q", got, StatusExited)
	}
}

func TestManager_StopKillsProcessGroup(t *testing.T) {
	// The shell ignores SIGTERM, so only SIGKILL to the group ends it.
	m := NewManager(Config{
		Name:            "stubborn",
		Binary:          "/bin/sh",
		Args:            []string{"-c", "trap '' TERM; sleep 60 & wait"},
		GracefulTimeout: 200 * time.Millisecond,
	})

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Let the shell install its trap.
	time.Sleep(100 * time.Millisecond)

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if !m.Exited() {
		t.Error("Exited() = false after Stop()")
	}
}

func TestManager_DetectsCrash(t *testing.T) {
	var (
		mu     sync.Mutex
		gotErr error
		calls  int
	)
	m := NewManager(Config{
		Name:   "crasher",
		Binary: "/bin/sh",
		Args:   []string{"-c", "exit 3"},
		OnExit: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			gotErr = err
			calls++
		},
	})

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitExited(t, m)

	if !m.Exited() {
		t.Error("Exited() = false after child exit")
	}
	if stats := m.Stats(); stats.LastError == "" || stats.Status != StatusExited {
		t.Errorf("Stats() = %+v, want exited with exit status 3", stats)
	}

	// OnExit runs after done is closed.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("OnExit called %d times, want 1", calls)
	}
	if gotErr == nil {
		t.Error("OnExit error = nil, want exit status 3")
	}
}

func TestManager_StartWithInvalidBinary(t *testing.T) {
	m := NewManager(Config{
		Name:   "bad-binary",
		Binary: "/nonexistent/binary",
	})

	if err := m.Start(); err == nil {
		t.Fatal("Start() with invalid binary expected error, got nil")
	}
	if got := m.Stats().Status; got != StatusStopped {
		t.Errorf("Stats().Status = %q, want %q", got, StatusStopped)
	}
	if m.Exited() {
		t.Error("Exited() = true for a process that never started")
	}
}

func TestManager_CapturesOutputLines(t *testing.T) {
	logger := &recordingLogger{}
	m := NewManager(Config{
		Name:   "echo",
		Binary: "/bin/sh",
		Args:   []string{"-c", "echo first; echo second; echo oops >&2"},
	})
	m.SetLogger(logger)

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitExited(t, m)

	eventuallyContains(t, logger, "first", "second", "oops", "stderr")
}

func TestManager_PassesEnvAndWorkDir(t *testing.T) {
	dir := t.TempDir()
	logger := &recordingLogger{}
	m := NewManager(Config{
		Name:    "env",
		Binary:  "/bin/sh",
		Args:    []string{"-c", "echo $TSA_PROCESS_TEST; pwd"},
		Env:     []string{"TSA_PROCESS_TEST=from-config"},
		WorkDir: dir,
	})
	m.SetLogger(logger)

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitExited(t, m)

	eventuallyContains(t, logger, "from-config", dir)
}
