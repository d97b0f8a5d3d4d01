package config

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Sentinel errors for the application config document.
var (
	// ErrMissingConfigSection is returned when the top-level "config" object is absent.
	ErrMissingConfigSection = errors.New("config key is missing in app configuration")

	// ErrMissingTasks is returned when the "task" collection is absent.
	ErrMissingTasks = errors.New("task key is missing in config")

	// ErrPersist is returned by Store.Apply when the document cannot be written.
	ErrPersist = errors.New("failed to write configuration to file")
)

// AppConfig is the JSON application configuration shared with the daemon
// and its HTTP collaborators.
type AppConfig struct {
	Config Section `json:"config"`

	hasTasks bool
}

// Section is the body of the top-level "config" key.
type Section struct {
	Tasks  []Task  `json:"task"`
	Alerts *Alerts `json:"alerts,omitempty"`
}

// Task is one processing task registered with the daemon.
type Task struct {
	TaskName   string `json:"task_name"`
	TickScript string `json:"tick_script"`
	UDFs       []UDF  `json:"udfs,omitempty"`
}

// UDF describes a stream-processing plugin run by the daemon for a task.
// Only Name is required; the remaining fields fall back to daemon defaults
// when the daemon config is rendered.
type UDF struct {
	Name    string            `json:"name"`
	Prog    string            `json:"prog,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Timeout string            `json:"timeout,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Alerts holds transport-specific alert targets.
type Alerts struct {
	MQTT  *MQTTAlert  `json:"mqtt,omitempty"`
	OPCUA *OPCUAAlert `json:"opcua,omitempty"`
}

// MQTTAlert is the broker the daemon publishes alerts to.
type MQTTAlert struct {
	Host  string `json:"mqtt_broker_host"`
	Port  int    `json:"mqtt_broker_port"`
	Name  string `json:"name,omitempty"`
	Topic string `json:"topic,omitempty"`
}

// OPCUAAlert is the OPC-UA node alerts are written to.
type OPCUAAlert struct {
	Server         string `json:"opcua_server"`
	NamespaceIndex uint16 `json:"namespace"`
	NodeID         uint32 `json:"node_id"`
}

func fromDocument(doc map[string]any) (*AppConfig, error) {
	section, ok := doc["config"].(map[string]any)
	if !ok {
		return nil, ErrMissingConfigSection
	}

	// Round-trip through JSON to get the typed view.
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding app config: %w", err)
	}
	cfg := &AppConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding app config: %w", err)
	}
	_, cfg.hasTasks = section["task"]
	return cfg, nil
}

// CheckTasks reports ErrMissingTasks when the document has no "task" key.
// Per-entry validation happens when tasks are enabled.
func (a *AppConfig) CheckTasks() error {
	if !a.hasTasks {
		return ErrMissingTasks
	}
	return nil
}

// MQTT returns the MQTT alert target, or nil.
func (a *AppConfig) MQTT() *MQTTAlert {
	if a.Config.Alerts == nil {
		return nil
	}
	return a.Config.Alerts.MQTT
}

// OPCUA returns the OPC-UA alert target, or nil.
func (a *AppConfig) OPCUA() *OPCUAAlert {
	if a.Config.Alerts == nil {
		return nil
	}
	return a.Config.Alerts.OPCUA
}

// NodeRef formats the OPC-UA node reference, e.g. "ns=3;i=1001".
func (o *OPCUAAlert) NodeRef() string {
	return fmt.Sprintf("ns=%d;i=%d", o.NamespaceIndex, o.NodeID)
}
