// Package influxdb holds the supervisor's InfluxDB touch points.
//
// It wraps the official influxdb-client-go v2 library for two jobs:
//
//   - Client pings the daemon's upstream InfluxDB before launch, so a
//     misconfigured KAPACITOR_INFLUXDB_0_URLS_0 shows up in the supervisor
//     log rather than only in the daemon's.
//   - Point encodes ingestion requests into line protocol using the
//     library's write.Point encoder.
//
// # Usage
//
//	client := influxdb.NewClient(plan.InfluxURL, "", plan.UnsafeSSL)
//	defer client.Close()
//	if err := client.HealthCheck(ctx); err != nil {
//	    logger.Warn("upstream data source unreachable", "error", err)
//	}
//
//	line, err := point.LineProtocol(time.Now)
package influxdb
