package kapacitor

import (
	"errors"
	"fmt"
)

// Sentinel errors for daemon launch and readiness.
var (
	// ErrLaunch wraps a failure to spawn the daemon process.
	ErrLaunch = errors.New("kapacitor is not starting")

	// ErrDaemonExited is returned when the daemon exits before its control
	// port opens. It is never retried.
	ErrDaemonExited = errors.New("kapacitor failed to start, verify the kapacitor logs for UDF/kapacitor errors")

	// ErrNotReady is wrapped by NotReadyError when the attempt budget runs out.
	ErrNotReady = errors.New("kapacitor control port not ready")
)

// NotReadyError reports that the control port never accepted a connection.
type NotReadyError struct {
	// Attempts is the number of port polls performed.
	Attempts int
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("error connecting to kapacitor daemon after %d attempts", e.Attempts)
}

func (e *NotReadyError) Unwrap() error {
	return ErrNotReady
}
