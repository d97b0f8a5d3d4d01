package kapacitor

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Probe answers the two readiness questions about the daemon.
type Probe interface {
	// Exited reports whether the daemon process has already exited.
	Exited() bool

	// PortOpen makes a single connection attempt to the control port.
	PortOpen(ctx context.Context) bool
}

// ReadinessState is recomputed on every poll.
type ReadinessState struct {
	Attempt     int
	DaemonAlive bool
	PortOpen    bool
}

// Policy bounds the readiness wait as attempts times a fixed interval.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration

	// OnPoll, if set, observes every poll.
	OnPoll func(ReadinessState)
}

// WaitReady polls probe until the control port accepts a connection.
//
// Every poll checks Exited first; an exited daemon ends the wait at once
// with ErrDaemonExited and does not count against the attempt budget. After
// MaxAttempts port polls spaced by Interval it returns *NotReadyError.
// Cancelling ctx aborts the wait with the context's error.
func WaitReady(ctx context.Context, probe Probe, policy Policy) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	attempts := 0
	op := func() error {
		if probe.Exited() {
			policy.observe(ReadinessState{Attempt: attempts})
			return backoff.Permanent(ErrDaemonExited)
		}
		attempts++
		open := probe.PortOpen(ctx)
		policy.observe(ReadinessState{Attempt: attempts, DaemonAlive: true, PortOpen: open})
		if open {
			return nil
		}
		return ErrNotReady
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Interval), uint64(policy.MaxAttempts-1)),
		ctx,
	)

	err := backoff.Retry(op, b)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotReady):
		return &NotReadyError{Attempts: attempts}
	default:
		return err
	}
}

func (p Policy) observe(s ReadinessState) {
	if p.OnPoll != nil {
		p.OnPoll(s)
	}
}

// exitReporter is satisfied by process.Manager.
type exitReporter interface {
	Exited() bool
}

// DaemonProbe probes a spawned daemon over TCP.
type DaemonProbe struct {
	proc        exitReporter
	addr        string
	dialTimeout time.Duration
}

// NewDaemonProbe returns a probe for the daemon at host:port.
func NewDaemonProbe(proc exitReporter, host string, port int, dialTimeout time.Duration) *DaemonProbe {
	if dialTimeout <= 0 {
		dialTimeout = 500 * time.Millisecond
	}
	return &DaemonProbe{
		proc:        proc,
		addr:        net.JoinHostPort(host, strconv.Itoa(port)),
		dialTimeout: dialTimeout,
	}
}

// Addr returns the probed address.
func (p *DaemonProbe) Addr() string {
	return p.addr
}

// Exited reports whether the daemon process has exited.
func (p *DaemonProbe) Exited() bool {
	return p.proc.Exited()
}

// PortOpen reports whether one TCP connect to the control port succeeds.
func (p *DaemonProbe) PortOpen(ctx context.Context) bool {
	d := net.Dialer{Timeout: p.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return false
	}
	conn.Close() //nolint:errcheck,gosec // probe only
	return true
}
