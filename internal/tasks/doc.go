// Package tasks defines and enables processing tasks on the analytics daemon.
//
// Each task is registered with "define" and started with "enable" through
// the daemon's CLI. The pair is retried a fixed number of times with a fixed
// delay; exhausting the budget is an *EnableError, never a silent success.
// All entries are validated before the first command runs.
package tasks
