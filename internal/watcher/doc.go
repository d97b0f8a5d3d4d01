// Package watcher restarts the supervisor when its configuration file changes.
//
// There is no in-place reload. A write to the watched file moves the
// watcher from StateWatching to StateTerminated and exits the process with
// a non-zero status; the orchestrator starts a fresh container that reads
// the new file.
package watcher
