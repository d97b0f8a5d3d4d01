package alerts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/nerrad567/analytics-supervisor/internal/api"
)

// sendTimeout bounds a single sink write.
const sendTimeout = 5 * time.Second

// Logger defines the logging interface for the alerts package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink delivers one alert message.
type Sink interface {
	Send(ctx context.Context, message string) error
}

// Forwarder receives alerts from the daemon's HTTP alert handler and
// passes them to a Sink.
type Forwarder struct {
	sink   Sink
	logger Logger
}

// NewForwarder creates a forwarder for sink.
func NewForwarder(sink Sink) *Forwarder {
	return &Forwarder{sink: sink, logger: noopLogger{}}
}

// SetLogger sets the logger for the forwarder.
func (f *Forwarder) SetLogger(logger Logger) {
	f.logger = logger
}

// Routes mounts the alert endpoints.
func (f *Forwarder) Routes(r chi.Router) {
	r.Get("/", f.handleRoot)
	r.Post("/opcua_alerts", f.handleAlert)
}

// AlertResponse is the body returned for every accepted alert.
type AlertResponse struct {
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

func (f *Forwarder) handleRoot(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, http.StatusOK, api.MessageResponse{Message: "Alert server is running"})
}

// handleAlert reads {"message": ...} and forwards it. Sink failures are
// logged and do not change the response: the daemon must not retry alerts.
func (f *Forwarder) handleAlert(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrCodeBadRequest, err.Error())
		return
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		alertsTotal.WithLabelValues("invalid").Inc()
		api.WriteError(w, http.StatusBadRequest, api.ErrCodeBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	message := messageOf(body)

	ctx, cancel := context.WithTimeout(r.Context(), sendTimeout)
	defer cancel()
	if err := f.sink.Send(ctx, message); err != nil {
		alertsTotal.WithLabelValues("failed").Inc()
		f.logger.Error("forwarding alert failed", "error", err)
	} else {
		alertsTotal.WithLabelValues("forwarded").Inc()
		f.logger.Debug("alert sent to opc-ua server", "message", message)
	}

	api.WriteJSON(w, http.StatusOK, AlertResponse{
		StatusCode: http.StatusOK,
		Status:     "success",
		Message:    "Alert received",
	})
}

func messageOf(body map[string]any) string {
	switch v := body["message"].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
