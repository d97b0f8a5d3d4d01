package tasks

import (
	"errors"
	"fmt"
)

// Configuration errors reported by ValidateTasks.
var (
	ErrMissingTickScript = errors.New("tick_script key is missing in config, please provide the tick script to run")
	ErrMissingTaskName   = errors.New("task_name key is missing in config, please provide the task name")
)

// EnableError reports a task that could not be defined and enabled within
// its retry budget. It is fatal for the supervisor.
type EnableError struct {
	TaskName string
	Attempts int
	Err      error
}

func (e *EnableError) Error() string {
	return fmt.Sprintf("task %q not enabled after %d attempts: %v", e.TaskName, e.Attempts, e.Err)
}

func (e *EnableError) Unwrap() error {
	return e.Err
}

// CommandError is a failed control CLI invocation.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%v: %v", e.Args, e.Err)
	}
	return fmt.Sprintf("%v: %v: %s", e.Args, e.Err, e.Output)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
