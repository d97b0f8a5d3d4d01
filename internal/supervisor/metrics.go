package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nerrad567/analytics-supervisor/internal/kapacitor"
)

var (
	// daemonUp is 1 while the daemon is launched and has not exited.
	daemonUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tsa_daemon_up",
		Help: "Whether the analytics daemon is running (1) or not (0)",
	})

	// readinessPolls counts readiness polls.
	// Labels:
	//   - result: "open", "closed", "exited"
	readinessPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsa_readiness_polls_total",
			Help: "Total number of daemon readiness polls",
		},
		[]string{"result"},
	)

	// taskAttempts counts define+enable attempts per outcome.
	taskAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsa_task_enable_attempts_total",
			Help: "Total number of task define+enable attempts",
		},
		[]string{"outcome"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tsa_build_info",
			Help: "Supervisor build information",
		},
		[]string{"version"},
	)
)

func observePoll(s kapacitor.ReadinessState) {
	switch {
	case !s.DaemonAlive:
		readinessPolls.WithLabelValues("exited").Inc()
	case s.PortOpen:
		readinessPolls.WithLabelValues("open").Inc()
	default:
		readinessPolls.WithLabelValues("closed").Inc()
	}
}

func observeAttempt(_ string, _ int, err error) {
	if err != nil {
		taskAttempts.WithLabelValues("failure").Inc()
		return
	}
	taskAttempts.WithLabelValues("success").Inc()
}
