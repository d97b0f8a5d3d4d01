// Package supervisor runs the analytics container's startup sequence.
//
// Run loads the application config and watches it, renders the daemon
// configuration, checks the host identifier and task list, installs UDF
// requirements, starts the alert and ingestion listeners, launches the
// daemon, waits once for its control port and enables every task. It then
// blocks until its context is cancelled and stops the daemon's process
// group on the way out.
//
// Every step is fatal except the requirements install, the MQTT status
// publisher and the upstream InfluxDB probe.
package supervisor
