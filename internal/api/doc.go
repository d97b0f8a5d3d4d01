// Package api hosts the supervisor's HTTP listeners.
//
// Server owns a listener, the shared middleware stack (request ID, request
// logging and metrics, panic recovery, body size limit) and graceful
// shutdown. The routes come from the component that creates it:
//
//   - Ingest: GET / liveness, POST /input forwarding JSON data points to
//     the daemon as line protocol, POST /config_change persisting config
//     patches through config.Store
//   - alerts.Forwarder: POST /opcua_alerts
//
// Usage:
//
//	ingest := api.NewIngest(writer, store, logger)
//	server, err := api.New(api.Deps{
//	    Name:    "ingest",
//	    Host:    cfg.Ingest.Host,
//	    Port:    cfg.Ingest.Port,
//	    Logger:  logger,
//	    Routes:  ingest.Routes,
//	    Metrics: true,
//	})
//	if err := server.Start(ctx); err != nil {
//	    return err
//	}
//	defer server.Close()
//
// Error bodies are {"detail": "...", "code": "..."}.
package api
