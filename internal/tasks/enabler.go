package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/config"
)

// Logger defines the logging interface for the task enabler.
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

// Options tune an Enabler.
type Options struct {
	// RetryCount is the total number of define+enable attempts per task.
	RetryCount int

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration

	// OnAttempt, if set, observes every attempt. err is nil on success.
	OnAttempt func(task string, attempt int, err error)
}

// Enabler defines and enables tasks on a ready daemon.
type Enabler struct {
	ctrl   Controller
	opts   Options
	logger Logger
}

// NewEnabler creates an Enabler. A RetryCount below 1 is treated as 1.
func NewEnabler(ctrl Controller, opts Options) *Enabler {
	if opts.RetryCount < 1 {
		opts.RetryCount = 1
	}
	return &Enabler{ctrl: ctrl, opts: opts, logger: noopLogger{}}
}

// SetLogger sets the logger for the enabler.
func (e *Enabler) SetLogger(logger Logger) {
	e.logger = logger
}

// ValidateTasks checks every entry before any control command is issued.
// The first entry without a tick script or task name fails the whole set.
func ValidateTasks(tasks []config.Task) error {
	for i, t := range tasks {
		if t.TickScript == "" {
			return fmt.Errorf("task %d: %w", i, ErrMissingTickScript)
		}
		if t.TaskName == "" {
			return fmt.Errorf("task %d: %w", i, ErrMissingTaskName)
		}
	}
	return nil
}

// EnableTask defines then enables one task, retrying the pair with a fixed
// delay. Within an attempt Enable only runs after Define succeeded.
// Running out of attempts returns *EnableError.
func (e *Enabler) EnableTask(ctx context.Context, task config.Task) error {
	attempts := 0
	op := func() error {
		attempts++
		err := e.attempt(ctx, task)
		if e.opts.OnAttempt != nil {
			e.opts.OnAttempt(task.TaskName, attempts, err)
		}
		if err != nil {
			e.logger.Warn("cannot communicate to kapacitor, retrying",
				"task", task.TaskName,
				"attempt", attempts,
				"error", err,
			)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(e.opts.RetryDelay), uint64(e.opts.RetryCount-1)),
		ctx,
	)

	err := backoff.Retry(op, b)
	if err == nil {
		e.logger.Info("kapacitor task enabled", "task", task.TaskName, "attempts", attempts)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &EnableError{TaskName: task.TaskName, Attempts: attempts, Err: err}
}

func (e *Enabler) attempt(ctx context.Context, task config.Task) error {
	if err := e.ctrl.Define(ctx, task.TaskName, task.TickScript); err != nil {
		return fmt.Errorf("define: %w", err)
	}
	if err := e.ctrl.Enable(ctx, task.TaskName); err != nil {
		return fmt.Errorf("enable: %w", err)
	}
	return nil
}

// EnableTasks validates all tasks, then enables them in order.
// The first failure stops the loop and is returned.
func (e *Enabler) EnableTasks(ctx context.Context, tasks []config.Task) error {
	if err := ValidateTasks(tasks); err != nil {
		return err
	}
	for _, t := range tasks {
		e.logger.Info("enabling task", "task", t.TaskName, "tick_script", t.TickScript)
		if err := e.EnableTask(ctx, t); err != nil {
			return err
		}
	}
	e.logger.Info("kapacitor initialized successfully, ready to receive data", "tasks", len(tasks))
	return nil
}
