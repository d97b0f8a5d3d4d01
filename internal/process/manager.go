package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status represents the current state of a managed process.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusExited  Status = "exited"
)

// maxLineSize bounds a single captured output line.
const maxLineSize = 64 * 1024

// ErrAlreadyStarted is returned when Start is called twice on one Manager.
var ErrAlreadyStarted = errors.New("process already started")

// Config holds configuration for a managed subprocess.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path to the executable.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format),
	// appended to the parent environment. Later entries win.
	Env []string

	// WorkDir is the working directory for the process.
	// If empty, inherits from parent process.
	WorkDir string

	// GracefulTimeout is how long Stop waits after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration

	// OnExit is called once when the process exits, with the Wait error.
	OnExit func(err error)
}

// Logger defines the logging interface for the process manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager owns one spawned child process.
//
// The child runs in its own process group and is never restarted: once it
// exits, Exited reports true for the rest of the Manager's life. The exit
// is observed through the child's own Wait, so a crashed child is detected
// without inspecting the process table.
//
// Thread Safety: All methods are safe for concurrent use.
type Manager struct {
	config Config
	logger Logger

	mu        sync.RWMutex
	cmd       *exec.Cmd
	status    Status
	exitErr   error
	startTime time.Time

	done chan struct{}
}

// NewManager creates a new process manager with the given configuration.
func NewManager(cfg Config) *Manager {
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 10 * time.Second
	}

	return &Manager{
		config: cfg,
		logger: noopLogger{},
		status: StatusStopped,
		done:   make(chan struct{}),
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Start spawns the subprocess and returns as soon as it is running.
// The returned error covers the spawn only (binary not found, fork failure).
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cmd != nil {
		return fmt.Errorf("%s: %w", m.config.Name, ErrAlreadyStarted)
	}

	m.logger.Info("starting process",
		"name", m.config.Name,
		"binary", m.config.Binary,
		"args", m.config.Args,
	)

	cmd := exec.Command(m.config.Binary, m.config.Args...) //nolint:gosec // binary comes from supervisor settings

	// Own process group so shutdown can signal the daemon and its UDF children together.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	cmd.Env = append(os.Environ(), m.config.Env...)

	if m.config.WorkDir != "" {
		cmd.Dir = m.config.WorkDir
	}

	// Plain OS pipes: Wait returns as soon as the child exits, even if a
	// grandchild still holds the write ends.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)
		return fmt.Errorf("creating stderr pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	err = cmd.Start()
	closeAll(stdoutW, stderrW)
	if err != nil {
		closeAll(stdoutR, stderrR)
		return fmt.Errorf("starting %s: %w", m.config.Name, err)
	}

	m.cmd = cmd
	m.status = StatusRunning
	m.startTime = time.Now()

	go m.captureOutput("stdout", stdoutR)
	go m.captureOutput("stderr", stderrR)
	go m.wait(cmd)

	m.logger.Info("process started",
		"name", m.config.Name,
		"pid", cmd.Process.Pid,
	)

	return nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		f.Close() //nolint:errcheck,gosec // best effort
	}
}

// captureOutput logs each line the child writes to the given stream.
func (m *Manager) captureOutput(stream string, r io.ReadCloser) {
	defer r.Close() //nolint:errcheck // read side only

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		m.logger.Debug("process output",
			"name", m.config.Name,
			"stream", stream,
			"output", scanner.Text(),
		)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		m.logger.Debug("output stream closed",
			"name", m.config.Name,
			"stream", stream,
			"error", err,
		)
	}
}

// wait reaps the child and records its exit.
func (m *Manager) wait(cmd *exec.Cmd) {
	err := cmd.Wait()

	m.mu.Lock()
	m.status = StatusExited
	m.exitErr = err
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("process exited", "name", m.config.Name, "error", err)
	} else {
		m.logger.Info("process exited", "name", m.config.Name)
	}

	close(m.done)

	if m.config.OnExit != nil {
		m.config.OnExit(err)
	}
}

// Exited reports whether the child has exited and been reaped.
func (m *Manager) Exited() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when the child exits.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Stop terminates the child's process group.
// It sends SIGTERM, waits up to GracefulTimeout, then sends SIGKILL.
func (m *Manager) Stop() error {
	m.mu.RLock()
	cmd := m.cmd
	m.mu.RUnlock()

	if cmd == nil || cmd.Process == nil || m.Exited() {
		return nil
	}

	pid := cmd.Process.Pid
	m.logger.Info("stopping process", "name", m.config.Name, "pid", pid)

	// Negative PID signals the whole group created via Setpgid.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			m.logger.Warn("failed to send SIGTERM to process group", "name", m.config.Name, "error", err)
		}
	}

	select {
	case <-m.done:
		m.logger.Info("process stopped gracefully", "name", m.config.Name)
		return nil
	case <-time.After(m.config.GracefulTimeout):
		m.logger.Warn("graceful shutdown timeout, sending SIGKILL",
			"name", m.config.Name,
			"timeout", m.config.GracefulTimeout,
		)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("killing process group %s: %w", m.config.Name, err)
		}
	}

	<-m.done
	m.logger.Info("process killed", "name", m.config.Name)

	return nil
}

// PID returns the process ID, or 0 if never started.
func (m *Manager) PID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cmd != nil && m.cmd.Process != nil {
		return m.cmd.Process.Pid
	}
	return 0
}

// Stats returns statistics about the managed process.
type Stats struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	PID       int           `json:"pid,omitempty"`
	Uptime    time.Duration `json:"uptime,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

// Stats returns current statistics for the process.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Name:   m.config.Name,
		Status: m.status,
	}
	if m.cmd != nil && m.cmd.Process != nil {
		stats.PID = m.cmd.Process.Pid
	}
	if m.status == StatusRunning {
		stats.Uptime = time.Since(m.startTime)
	}
	if m.exitErr != nil {
		stats.LastError = m.exitErr.Error()
	}
	return stats
}
