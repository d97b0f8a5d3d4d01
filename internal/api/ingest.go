package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/config"
	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/influxdb"
	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/logging"
	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/tsdb"
)

// Response messages of the ingestion endpoints.
const (
	msgInputRunning = "Input server is running"
	msgDataSent     = "Data sent to Time series Analytics microservice"
	msgConfigSaved  = "Configuration updated successfully"
)

// PointWriter forwards line protocol to the analytics daemon.
type PointWriter interface {
	Write(ctx context.Context, lines ...string) (tsdb.WriteResult, error)
}

// ConfigStore persists configuration patches.
type ConfigStore interface {
	Apply(patch map[string]any) ([]config.Change, error)
}

// Ingest serves the data ingestion and configuration change endpoints.
type Ingest struct {
	writer PointWriter
	store  ConfigStore
	logger *logging.Logger
	now    func() time.Time
}

// NewIngest creates the ingestion handlers. Either collaborator may be nil,
// in which case its endpoint answers 503.
func NewIngest(writer PointWriter, store ConfigStore, logger *logging.Logger) *Ingest {
	return &Ingest{
		writer: writer,
		store:  store,
		logger: logger.With("component", "ingest"),
		now:    time.Now,
	}
}

// Routes mounts the ingestion endpoints.
func (i *Ingest) Routes(r chi.Router) {
	r.Get("/", i.handleRoot)
	r.Post("/input", i.handleInput)
	r.Post("/config_change", i.handleConfigChange)
}

// StatusResponse is the success body of the ingestion endpoints.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MessageResponse is the body of liveness endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

func (i *Ingest) handleRoot(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, MessageResponse{Message: msgInputRunning})
}

// inputRequest accepts tag values of any JSON type; they are stringified.
type inputRequest struct {
	Measurement string         `json:"measurement"`
	Tags        map[string]any `json:"tags"`
	Fields      map[string]any `json:"fields"`
	Timestamp   *int64         `json:"timestamp"`
}

func (req inputRequest) point() influxdb.Point {
	tags := make(map[string]string, len(req.Tags))
	for k, v := range req.Tags {
		if s, ok := v.(string); ok {
			tags[k] = s
			continue
		}
		tags[k] = fmt.Sprint(v)
	}
	return influxdb.Point{
		Measurement: req.Measurement,
		Tags:        tags,
		Fields:      req.Fields,
		Timestamp:   req.Timestamp,
	}
}

// handleInput converts a JSON data point to line protocol and forwards it
// to the daemon's write endpoint. A non-204 answer from the daemon is
// relayed with its status code and body.
func (i *Ingest) handleInput(w http.ResponseWriter, r *http.Request) {
	if i.writer == nil {
		WriteError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "daemon write endpoint not configured")
		return
	}

	var req inputRequest
	if !DecodeJSON(w, r, &req) {
		ingestPointsTotal.WithLabelValues("invalid").Inc()
		return
	}

	line, err := req.point().LineProtocol(i.now)
	if err != nil {
		ingestPointsTotal.WithLabelValues("invalid").Inc()
		WriteError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
		return
	}
	i.logger.Debug("received data point", "line", line)

	res, err := i.writer.Write(r.Context(), line)
	if err != nil {
		ingestPointsTotal.WithLabelValues("error").Inc()
		i.logger.Error("forwarding data point failed", "error", err)
		writeInternalError(w, err.Error())
		return
	}
	if !res.Accepted() {
		ingestPointsTotal.WithLabelValues("rejected").Inc()
		i.logger.Warn("daemon rejected data point", "status", res.StatusCode, "body", res.Body)
		WriteError(w, res.StatusCode, ErrCodeUpstream, res.Body)
		return
	}

	ingestPointsTotal.WithLabelValues("accepted").Inc()
	WriteJSON(w, http.StatusOK, StatusResponse{Status: "success", Message: msgDataSent})
}

type configChangeRequest struct {
	Config map[string]any `json:"config"`
}

// handleConfigChange merges the posted keys into the application config
// file. The config watcher then restarts the process to apply them.
func (i *Ingest) handleConfigChange(w http.ResponseWriter, r *http.Request) {
	if i.store == nil {
		WriteError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "configuration store not available")
		return
	}

	var req configChangeRequest
	if !DecodeJSON(w, r, &req) {
		configChangesTotal.WithLabelValues("invalid").Inc()
		return
	}
	if req.Config == nil {
		configChangesTotal.WithLabelValues("invalid").Inc()
		WriteError(w, http.StatusUnprocessableEntity, ErrCodeValidation, "config object is required")
		return
	}

	i.logger.Debug("configuration change received", "keys", len(req.Config))

	changes, err := i.store.Apply(req.Config)
	if err != nil {
		configChangesTotal.WithLabelValues("error").Inc()
		if errors.Is(err, config.ErrPersist) {
			i.logger.Error("failed to write configuration to file", "error", err)
			writeInternalError(w, config.ErrPersist.Error())
			return
		}
		writeBadRequest(w, err.Error())
		return
	}

	for _, c := range changes {
		if c.Action == config.ActionAdded {
			i.logger.Warn("key not found in current configuration, adding it", "key", c.Key)
			continue
		}
		i.logger.Info("updating key in current configuration", "key", c.Key, "action", c.Action)
	}

	configChangesTotal.WithLabelValues("applied").Inc()
	WriteJSON(w, http.StatusOK, StatusResponse{Status: "success", Message: msgConfigSaved})
}
