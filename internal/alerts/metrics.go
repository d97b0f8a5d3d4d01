package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// alertsTotal counts alerts received on /opcua_alerts.
// Labels:
//   - outcome: "forwarded", "failed" (sink error), "invalid" (bad body)
var alertsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tsa_alerts_total",
		Help: "Total number of alerts received for OPC-UA forwarding",
	},
	[]string{"outcome"},
)
