// Package config handles loading and validating supervisor configuration.
//
// Three sources are covered:
//   - Supervisor settings: optional YAML file over hard-coded defaults, then
//     TSA_* environment overrides
//   - The JSON application config (/app/config.json) shared with the daemon
//   - The container environment contract (KAPACITOR_*, SECURE_MODE, Appname)
//
// The application config is read once at startup. Store is its only writer;
// a persisted change is picked up by restarting the process, never by
// mutating the running configuration.
//
// Usage:
//
//	cfg, err := config.LoadOrDefault(os.Getenv("TSA_CONFIG"))
//	if err != nil {
//	    return err
//	}
//	store, err := config.OpenStore(cfg.Paths.AppConfig)
//	if err != nil {
//	    return err
//	}
//	app, err := store.Snapshot()
//	if err != nil {
//	    return err
//	}
//	if err := app.CheckTasks(); err != nil {
//	    return err
//	}
package config
