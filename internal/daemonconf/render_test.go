package daemonconf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml"

	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/config"
)

const template = `
hostname = "localhost"
data_dir = "/tmp/.kapacitor"

[http]
  bind-address = ":9092"

[[mqtt]]
  enabled = true
  name = "MQTT_BROKER_NAME"
  default = true
  url = "tcp://MQTT_BROKER_HOST:MQTT_BROKER_PORT"

[udf]
[udf.functions]
`

func parseApp(t *testing.T, doc string) *config.AppConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("writing app config: %v", err)
	}
	store, err := config.OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore() error: %v", err)
	}
	app, err := store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	return app
}

func loadTemplate(t *testing.T) *toml.Tree {
	t.Helper()
	tree, err := toml.Load(template)
	if err != nil {
		t.Fatalf("toml.Load() error: %v", err)
	}
	return tree
}

var testOpts = Options{UDFDir: "/app/udfs", UDFPackageDir: "/tmp/py_package"}

func TestRender_BrokerPlaceholders(t *testing.T) {
	app := parseApp(t, `{"config": {"task": [], "alerts": {"mqtt": {
		"mqtt_broker_host": "ia-mqtt-broker", "mqtt_broker_port": 1883, "name": "my_mqtt_broker"}}}}`)

	out, err := Render(loadTemplate(t), app, testOpts)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	brokers, ok := out.Get("mqtt").([]*toml.Tree)
	if !ok || len(brokers) != 1 {
		t.Fatalf("mqtt = %#v, want one table", out.Get("mqtt"))
	}
	if got := brokers[0].Get("url"); got != "tcp://ia-mqtt-broker:1883" {
		t.Errorf("url = %v, want tcp://ia-mqtt-broker:1883", got)
	}
	if got := brokers[0].Get("name"); got != "my_mqtt_broker" {
		t.Errorf("name = %v, want my_mqtt_broker", got)
	}
	if got := out.Get("hostname"); got != "localhost" {
		t.Errorf("hostname = %v, want untouched", got)
	}
}

func TestRender_NoMQTTKeepsPlaceholders(t *testing.T) {
	app := parseApp(t, `{"config": {"task": []}}`)

	out, err := Render(loadTemplate(t), app, testOpts)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	brokers := out.Get("mqtt").([]*toml.Tree)
	if got := brokers[0].Get("url"); got != "tcp://MQTT_BROKER_HOST:MQTT_BROKER_PORT" {
		t.Errorf("url = %v, want placeholders untouched", got)
	}
}

func TestRender_DoesNotMutateTemplate(t *testing.T) {
	tmpl := loadTemplate(t)
	app := parseApp(t, `{"config": {"task": [{"task_name": "a", "tick_script": "a.tick", "udfs": [{"name": "a"}]}],
		"alerts": {"mqtt": {"mqtt_broker_host": "broker", "mqtt_broker_port": 1883}}}}`)

	if _, err := Render(tmpl, app, testOpts); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if tmpl.Has("udf.functions.a") {
		t.Error("template gained udf.functions.a")
	}
	if !strings.Contains(tmpl.String(), "MQTT_BROKER_HOST") {
		t.Error("template placeholders were replaced in place")
	}
}

func TestRender_UDFDefaults(t *testing.T) {
	app := parseApp(t, `{"config": {"task": [
		{"task_name": "temperature_classifier", "tick_script": "temperature_classifier.tick",
		 "udfs": [{"name": "temperature_classifier"}]}]}}`)

	out, err := Render(loadTemplate(t), app, testOpts)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	base := []string{"udf", "functions", "temperature_classifier"}
	if got := out.GetPath(append(base, "prog")); got != DefaultUDFProg {
		t.Errorf("prog = %v, want %s", got, DefaultUDFProg)
	}
	if got := out.GetPath(append(base, "timeout")); got != DefaultUDFTimeout {
		t.Errorf("timeout = %v, want %s", got, DefaultUDFTimeout)
	}
	args, ok := out.GetPath(append(base, "args")).([]interface{})
	if !ok || len(args) != 2 || args[1] != "/app/udfs/temperature_classifier.py" {
		t.Errorf("args = %#v", out.GetPath(append(base, "args")))
	}
	if got := out.GetPath(append(base, "env", "PYTHONPATH")); got != "/tmp/py_package:/app/udfs" {
		t.Errorf("PYTHONPATH = %v, want /tmp/py_package:/app/udfs", got)
	}
}

func TestRender_UDFOverrides(t *testing.T) {
	app := parseApp(t, `{"config": {"task": [
		{"task_name": "t", "tick_script": "t.tick", "udfs": [{
			"name": "custom", "prog": "/usr/bin/python3.11", "args": ["-m", "custom_udf"],
			"timeout": "5s", "env": {"PYTHONPATH": "/opt/custom", "MODE": "fast"}}]}]}}`)

	out, err := Render(loadTemplate(t), app, testOpts)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	base := []string{"udf", "functions", "custom"}
	tests := []struct {
		path []string
		want interface{}
	}{
		{append(base, "prog"), "/usr/bin/python3.11"},
		{append(base, "timeout"), "5s"},
		{append(base, "env", "PYTHONPATH"), "/opt/custom"},
		{append(base, "env", "MODE"), "fast"},
	}
	for _, tt := range tests {
		if got := out.GetPath(tt.path); got != tt.want {
			t.Errorf("%s = %v, want %v", strings.Join(tt.path, "."), got, tt.want)
		}
	}
	args := out.GetPath(append(base, "args")).([]interface{})
	if len(args) != 2 || args[0] != "-m" || args[1] != "custom_udf" {
		t.Errorf("args = %#v", args)
	}
}

func TestRender_UDFWithoutName(t *testing.T) {
	app := parseApp(t, `{"config": {"task": [{"task_name": "t", "tick_script": "t.tick", "udfs": [{}]}]}}`)

	if _, err := Render(loadTemplate(t), app, testOpts); err == nil {
		t.Error("Render() error = nil for unnamed udf")
	}
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "kapacitor.conf.tmpl")
	if err := os.WriteFile(tmplPath, []byte(template), 0600); err != nil {
		t.Fatalf("writing template: %v", err)
	}
	outPath := filepath.Join(dir, "config", "kapacitor.conf")
	app := parseApp(t, `{"config": {"task": [{"task_name": "a", "tick_script": "a.tick", "udfs": [{"name": "a"}]}],
		"alerts": {"mqtt": {"mqtt_broker_host": "broker", "mqtt_broker_port": 1884}}}}`)

	if err := RenderFile(tmplPath, outPath, app, testOpts); err != nil {
		t.Fatalf("RenderFile() error: %v", err)
	}

	written, err := toml.LoadFile(outPath)
	if err != nil {
		t.Fatalf("rendered file is not valid TOML: %v", err)
	}
	if !written.Has("udf.functions.a.prog") {
		t.Error("rendered file missing udf.functions.a")
	}
	if !strings.Contains(written.String(), "tcp://broker:1884") {
		t.Errorf("rendered file missing broker url:\n%s", written.String())
	}
}

func TestRenderFile_BadTemplate(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "broken.conf")
	if err := os.WriteFile(tmplPath, []byte("[http\nbind = "), 0600); err != nil {
		t.Fatalf("writing template: %v", err)
	}
	app := parseApp(t, `{"config": {"task": []}}`)

	err := RenderFile(tmplPath, filepath.Join(dir, "out.conf"), app, testOpts)
	if !errors.Is(err, ErrTemplate) {
		t.Errorf("RenderFile() error = %v, want ErrTemplate", err)
	}

	err = RenderFile(filepath.Join(dir, "missing.conf"), filepath.Join(dir, "out.conf"), app, testOpts)
	if !errors.Is(err, ErrTemplate) {
		t.Errorf("RenderFile() missing template error = %v, want ErrTemplate", err)
	}
}

func TestOptionsFromPaths(t *testing.T) {
	opts := OptionsFromPaths(config.PathsConfig{UDFDir: "/u", UDFPackageDir: "/p"})
	if opts.UDFDir != "/u" || opts.UDFPackageDir != "/p" {
		t.Errorf("OptionsFromPaths() = %+v", opts)
	}
}
