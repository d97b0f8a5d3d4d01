package daemonconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"

	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/config"
)

// Placeholder tokens substituted into template string values.
const (
	PlaceholderBrokerHost = "MQTT_BROKER_HOST"
	PlaceholderBrokerPort = "MQTT_BROKER_PORT"
	PlaceholderBrokerName = "MQTT_BROKER_NAME"
)

// UDF defaults applied when a task's UDF entry leaves a field unset.
const (
	DefaultUDFProg    = "python3"
	DefaultUDFTimeout = "20s"
)

// ErrTemplate is returned when the daemon template cannot be read or parsed.
var ErrTemplate = errors.New("daemon config template invalid")

// Options controls rendering.
type Options struct {
	// UDFDir holds the UDF programs; default args point at <UDFDir>/<name>.py.
	UDFDir string

	// UDFPackageDir is added to each UDF's PYTHONPATH.
	UDFPackageDir string
}

// OptionsFromPaths builds Options from supervisor settings.
func OptionsFromPaths(p config.PathsConfig) Options {
	return Options{UDFDir: p.UDFDir, UDFPackageDir: p.UDFPackageDir}
}

// Render returns a copy of tmpl with broker placeholders replaced and every
// task's UDFs registered under udf.functions.<name>.
func Render(tmpl *toml.Tree, app *config.AppConfig, opts Options) (*toml.Tree, error) {
	out, err := toml.Load(tmpl.String())
	if err != nil {
		return nil, fmt.Errorf("copying template: %w", err)
	}

	if mqtt := app.MQTT(); mqtt != nil {
		replacer := strings.NewReplacer(
			PlaceholderBrokerHost, mqtt.Host,
			PlaceholderBrokerPort, strconv.Itoa(mqtt.Port),
			PlaceholderBrokerName, mqtt.Name,
		)
		substitute(out, replacer)
	}

	for _, task := range app.Config.Tasks {
		for _, udf := range task.UDFs {
			if udf.Name == "" {
				return nil, fmt.Errorf("task %q: udf without name", task.TaskName)
			}
			registerUDF(out, udf, opts)
		}
	}
	return out, nil
}

// RenderFile loads the template at templatePath, renders it and writes the
// result to outputPath.
func RenderFile(templatePath, outputPath string, app *config.AppConfig, opts Options) error {
	tmpl, err := toml.LoadFile(templatePath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTemplate, err)
	}

	rendered, err := Render(tmpl, app, opts)
	if err != nil {
		return err
	}

	text, err := rendered.ToTomlString()
	if err != nil {
		return fmt.Errorf("encoding daemon config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil { //nolint:gosec // config dir is read by the daemon
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(text), 0o644); err != nil { //nolint:gosec // daemon config, not secret
		return fmt.Errorf("writing daemon config: %w", err)
	}
	return nil
}

// substitute rewrites every string leaf of t in place.
func substitute(t *toml.Tree, r *strings.Replacer) {
	for _, key := range t.Keys() {
		path := []string{key}
		switch v := t.GetPath(path).(type) {
		case *toml.Tree:
			substitute(v, r)
		case []*toml.Tree:
			for _, sub := range v {
				substitute(sub, r)
			}
		case string:
			t.SetPath(path, r.Replace(v))
		case []interface{}:
			changed := false
			for i, item := range v {
				if s, ok := item.(string); ok {
					v[i] = r.Replace(s)
					changed = true
				}
			}
			if changed {
				t.SetPath(path, v)
			}
		}
	}
}

func registerUDF(t *toml.Tree, udf config.UDF, opts Options) {
	base := []string{"udf", "functions", udf.Name}

	prog := udf.Prog
	if prog == "" {
		prog = DefaultUDFProg
	}
	args := udf.Args
	if len(args) == 0 {
		args = []string{"-u", filepath.Join(opts.UDFDir, udf.Name+".py")}
	}
	timeout := udf.Timeout
	if timeout == "" {
		timeout = DefaultUDFTimeout
	}

	argList := make([]interface{}, len(args))
	for i, a := range args {
		argList[i] = a
	}

	t.SetPath(append(base, "prog"), prog)
	t.SetPath(append(base, "args"), argList)
	t.SetPath(append(base, "timeout"), timeout)

	pythonPath := strings.Join(nonEmpty(opts.UDFPackageDir, opts.UDFDir), ":")
	if pythonPath != "" {
		t.SetPath(append(base, "env", "PYTHONPATH"), pythonPath)
	}
	for k, v := range udf.Env {
		t.SetPath(append(base, "env", k), v)
	}
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
