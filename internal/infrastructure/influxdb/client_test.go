package influxdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/influxdb"
)

// =============================================================================
// Health Check Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/ping") {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := influxdb.NewClient(srv.URL, "", false)
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if client.URL() != srv.URL {
		t.Errorf("URL() = %q, want %q", client.URL(), srv.URL)
	}
}

func TestHealthCheck_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := influxdb.NewClient(srv.URL, "", false)
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() error = nil for 503")
	}
}

func TestHealthCheck_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := influxdb.NewClient(url, "", false)
	defer client.Close()

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("HealthCheck() error = %v, want ErrConnectionFailed", err)
	}
}

func TestHealthCheck_InsecureTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	insecure := influxdb.NewClient(srv.URL, "", true)
	defer insecure.Close()
	if err := insecure.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() with skip-verify error = %v", err)
	}

	strict := influxdb.NewClient(srv.URL, "", false)
	defer strict.Close()
	if err := strict.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() against self-signed cert error = nil")
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	client := influxdb.NewClient("http://127.0.0.1:1", "", false)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() with cancelled context error = nil")
	}
}

func TestClose_Nil(t *testing.T) {
	var c influxdb.Client
	c.Close()
}
