package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// State is the watcher's lifecycle state.
type State int32

const (
	// StateWatching is the initial state.
	StateWatching State = iota

	// StateTerminated is terminal: the exit function has been called.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateWatching:
		return "watching"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ExitCode is passed to the exit function when the config file changes.
const ExitCode = 1

// ExitFunc ends the process. os.Exit in production.
type ExitFunc func(code int)

// Watcher terminates the process when the config file is modified, so the
// container orchestrator restarts it with the new configuration.
//
// The file's directory is watched rather than the file, so a file replaced
// by rename (as config.Store and most editors do) is still observed.
type Watcher struct {
	path   string
	name   string
	exit   ExitFunc
	logger *slog.Logger

	state atomic.Int32
	once  sync.Once

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a watcher for path. A nil exit defaults to os.Exit and a nil
// logger to slog.Default.
func New(path string, exit ExitFunc, logger *slog.Logger) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if exit == nil {
		exit = os.Exit
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		path:   absPath,
		name:   filepath.Base(absPath),
		exit:   exit,
		logger: logger.With(slog.String("component", "config_watcher"), slog.String("path", absPath)),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// Start begins watching in the background. It returns once the watch is
// registered; events arriving later are handled on a separate goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	w.fsw = fsw

	go w.eventLoop(ctx)
	w.logger.Info("monitoring config file for changes")
	return nil
}

// Stop ends the event loop and releases the OS watch.
func (w *Watcher) Stop() error {
	if w.fsw == nil {
		return nil
	}
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	<-w.doneCh
	return w.fsw.Close()
}

// State returns the current state.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("config watcher stopped (context cancelled)")
			return
		case <-w.stopCh:
			w.logger.Debug("config watcher stopped")
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				w.logger.Warn("config watcher event channel closed")
				return
			}
			w.HandleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.logger.Warn("config watcher error channel closed")
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// Matches reports whether event is a modification of the watched file.
func (w *Watcher) Matches(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != w.name {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// HandleEvent moves the watcher to StateTerminated and calls the exit
// function when event matches. The exit function runs at most once, however
// many matching events arrive. It reports whether the event matched.
func (w *Watcher) HandleEvent(event fsnotify.Event) bool {
	if !w.Matches(event) {
		w.logger.Debug("ignoring event", "op", event.Op.String(), "event_path", event.Name)
		return false
	}

	w.once.Do(func() {
		w.state.Store(int32(StateTerminated))
		w.logger.Info("config file has been modified, exiting to restart container", "op", event.Op.String())
		w.exit(ExitCode)
	})
	return true
}
