package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds all checks behind one GET /health.
const healthCheckTimeout = 2 * time.Second

// HealthChecker is a dependency reported on GET /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// handleHealth runs the server's own check and every dependency check.
// Any failure turns the answer into 503 with status "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Checks:  make(map[string]string, len(s.checks)+1),
	}
	code := http.StatusOK

	record := func(name string, err error) {
		if err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			return
		}
		resp.Checks[name] = "ok"
	}

	record(s.name, s.HealthCheck(ctx))
	for name, c := range s.checks {
		record(name, c.HealthCheck(ctx))
	}

	if code != http.StatusOK {
		s.logger.Warn("health check degraded", "checks", resp.Checks)
	}
	WriteJSON(w, code, resp)
}
