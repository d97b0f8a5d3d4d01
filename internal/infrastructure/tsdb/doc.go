// Package tsdb writes line protocol into the analytics daemon.
//
// The daemon exposes an InfluxDB-compatible write endpoint at
// /kapacitor/v1/write?db=<db>&rp=<rp>. Points POSTed there are fed to the
// tasks subscribed to that database and retention policy, which is how
// the ingestion endpoint injects data without going through InfluxDB.
//
// # Usage
//
//	client, err := tsdb.New(tsdb.Options{
//	    BaseURL:         plan.KapacitorURL,
//	    Database:        "datain",
//	    RetentionPolicy: "autogen",
//	})
//	if err != nil {
//	    return err
//	}
//	res, err := client.Write(ctx, "sensor_data,device=a temperature=23.5")
//	if err == nil && !res.Accepted() {
//	    // Relay res.StatusCode and res.Body
//	}
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package tsdb
