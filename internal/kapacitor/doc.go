// Package kapacitor launches the kapacitord analytics daemon and decides
// when it is ready.
//
// Launch selects the secure or devmode variant from SECURE_MODE: the wire
// scheme of KAPACITOR_URL and KAPACITOR_INFLUXDB_0_URLS_0 is rewritten
// (host and port untouched), KAPACITOR_UNSAFE_SSL is set, the server
// certificate, key and CA are staged with 0400 permissions, and the daemon
// is spawned with -hostname and -config.
//
// WaitReady polls a Probe with a fixed attempt budget. A daemon that exits
// during the wait is reported immediately as ErrDaemonExited; a port that
// never opens is reported as *NotReadyError. Both are fatal for the
// supervisor.
//
//	mgr := kapacitor.NewManager(settings, env)
//	if err := mgr.Launch(ctx); err != nil {
//	    return err
//	}
//	err := kapacitor.WaitReady(ctx, mgr.Probe(), kapacitor.Policy{
//	    MaxAttempts: 50,
//	    Interval:    time.Second,
//	})
package kapacitor
