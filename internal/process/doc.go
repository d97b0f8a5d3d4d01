// Package process owns the lifecycle of a single spawned child process.
//
// It is used for the analytics daemon, which the supervisor starts once and
// never restarts itself: a crash is fatal and the container orchestrator
// brings the whole container back.
//
// Features:
//   - Spawn in a dedicated process group
//   - Exit detection through the child's own Wait (Exited, Done, ExitError)
//   - Line-based capture of stdout/stderr into the logger
//   - Group-wide SIGTERM then SIGKILL on Stop
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:            "kapacitord",
//	    Binary:          "kapacitord",
//	    Args:            []string{"-hostname", host, "-config", "config/kapacitor.conf"},
//	    GracefulTimeout: 10 * time.Second,
//	})
//	if err := mgr.Start(); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
package process
