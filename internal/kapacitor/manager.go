package kapacitor

import (
	"context"
	"fmt"
	"os"

	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/config"
	"github.com/nerrad567/analytics-supervisor/internal/process"
)

// Logger defines the logging interface for the kapacitor manager.
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

// Manager launches the kapacitord daemon and exposes its readiness probe.
type Manager struct {
	settings *config.Config
	plan     LaunchPlan
	process  *process.Manager
	logger   Logger

	// setenv mutates the supervisor's own environment. Replaced in tests.
	setenv func(key, value string) error
}

// NewManager creates a manager for one launch of the daemon.
func NewManager(settings *config.Config, env config.Env) *Manager {
	return &Manager{
		settings: settings,
		plan:     Plan(settings, env),
		logger:   noopLogger{},
		setenv:   os.Setenv,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Plan returns the launch plan in effect.
func (m *Manager) Plan() LaunchPlan {
	return m.plan
}

// Launch rewrites the daemon URLs, stages certificates in secure mode and
// spawns the daemon in the background. It does not wait for readiness.
// The only error is a failed spawn, wrapped in ErrLaunch.
func (m *Manager) Launch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.process != nil {
		return fmt.Errorf("%w: %w", ErrLaunch, process.ErrAlreadyStarted)
	}

	// Sibling code in this process (and anything it execs) reads the
	// rewritten values from the environment.
	for _, kv := range m.plan.envPairs() {
		if err := m.setenv(kv[0], kv[1]); err != nil {
			m.logger.Warn("failed to set environment", "key", kv[0], "error", err)
		}
	}

	if m.plan.Secure {
		staged := ProvisionCertificates(m.logger, DefaultCertCopies(m.settings.Certs))
		m.logger.Debug("certificates staged", "count", staged)
	}

	m.logger.Info("starting kapacitor",
		"binary", m.settings.Daemon.Binary,
		"config", m.plan.ConfigPath,
		"secure", m.plan.Secure,
		"kapacitor_url", m.plan.KapacitorURL,
	)

	proc := process.NewManager(process.Config{
		Name:            "kapacitord",
		Binary:          m.settings.Daemon.Binary,
		Args:            m.plan.Args,
		Env:             m.plan.Env(),
		WorkDir:         m.settings.Daemon.WorkDir,
		GracefulTimeout: m.settings.Daemon.GracefulTimeout,
		OnExit: func(err error) {
			m.logger.Warn("kapacitord exited", "error", err)
		},
	})
	proc.SetLogger(m.logger)

	if err := proc.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	m.process = proc

	m.logger.Info("started kapacitor successfully", "pid", proc.PID())
	return nil
}

// Probe returns the readiness probe for the launched daemon.
func (m *Manager) Probe() *DaemonProbe {
	return NewDaemonProbe(m, m.plan.Host, m.settings.Daemon.ControlPort, m.settings.Readiness.DialTimeout)
}

// Exited reports whether the launched daemon has exited.
func (m *Manager) Exited() bool {
	return m.process != nil && m.process.Exited()
}

// Done returns a channel closed when the launched daemon exits. It is nil,
// and so never ready, before Launch.
func (m *Manager) Done() <-chan struct{} {
	if m.process == nil {
		return nil
	}
	return m.process.Done()
}

// Stats returns the daemon process statistics.
func (m *Manager) Stats() process.Stats {
	if m.process == nil {
		return process.Stats{Name: "kapacitord", Status: process.StatusStopped}
	}
	return m.process.Stats()
}

// Stop terminates the daemon's process group.
func (m *Manager) Stop() error {
	if m.process == nil {
		return nil
	}
	m.logger.Info("stopping kapacitor")
	return m.process.Stop()
}
