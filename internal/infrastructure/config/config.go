package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the supervisor's own configuration.
// All values have defaults, may be overridden from a YAML file and then by
// environment variables.
type Config struct {
	Daemon    DaemonConfig    `yaml:"daemon"`
	Readiness ReadinessConfig `yaml:"readiness"`
	Tasks     TasksConfig     `yaml:"tasks"`
	Certs     CertsConfig     `yaml:"certs"`
	Paths     PathsConfig     `yaml:"paths"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DaemonConfig describes how the analytics daemon is launched.
type DaemonConfig struct {
	// Binary is the daemon executable (kapacitord).
	Binary string `yaml:"binary"`

	// CLI is the control-plane executable used to define and enable tasks.
	CLI string `yaml:"cli"`

	// WorkDir is the daemon's working directory. Config paths are relative to it.
	WorkDir string `yaml:"work_dir"`

	// ConfigDir holds the production and devmode config variants.
	ConfigDir string `yaml:"config_dir"`

	// ProdConfig is the config file used in secure mode.
	ProdConfig string `yaml:"prod_config"`

	// DevConfig is the config file used when secure mode is off.
	DevConfig string `yaml:"dev_config"`

	// ControlPort is the TCP port probed for readiness.
	ControlPort int `yaml:"control_port"`

	// GracefulTimeout is how long the daemon gets between SIGTERM and SIGKILL
	// when the supervisor shuts down on a signal.
	GracefulTimeout time.Duration `yaml:"graceful_timeout"`
}

// ReadinessConfig bounds the wait for the daemon's control port.
type ReadinessConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	PollInterval time.Duration `yaml:"poll_interval"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
}

// TasksConfig bounds task definition retries.
type TasksConfig struct {
	RetryCount int           `yaml:"retry_count"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	ScriptsDir string        `yaml:"scripts_dir"`
	SkipVerify bool          `yaml:"skip_verify"`
}

// CertsConfig lists the secret-mounted certificate material and where it is staged.
type CertsConfig struct {
	CACert     string `yaml:"ca_cert"`
	ServerKey  string `yaml:"server_key"`
	ServerCert string `yaml:"server_cert"`
	StageDir   string `yaml:"stage_dir"`
}

// PathsConfig holds file locations used during startup.
type PathsConfig struct {
	// AppConfig is the JSON application configuration that is also watched.
	AppConfig string `yaml:"app_config"`

	// DaemonTemplate is the daemon TOML template. Empty disables rendering.
	DaemonTemplate string `yaml:"daemon_template"`

	// UDFRequirements is a pip requirements file for task-local scripts.
	UDFRequirements string `yaml:"udf_requirements"`

	// UDFPackageDir is the pip --target directory.
	UDFPackageDir string `yaml:"udf_package_dir"`

	// UDFDir is where the UDF programs live.
	UDFDir string `yaml:"udf_dir"`
}

// IngestConfig configures the HTTP ingestion endpoint.
type IngestConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	RP       string `yaml:"retention_policy"`
}

// AlertsConfig configures the OPC-UA alert forwarder listener.
type AlertsConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern TSA_SECTION_KEY, for example
// TSA_DAEMON_BINARY or TSA_READINESS_MAX_ATTEMPTS. KAPACITOR_LOGGING_LEVEL
// sets the log level for compatibility with the daemon's own environment.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it is non-empty, otherwise it returns the
// defaults with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config matching the container image layout.
func defaultConfig() *Config {
	return &Config{
		Daemon: DaemonConfig{
			Binary:          "kapacitord",
			CLI:             "kapacitor",
			WorkDir:         "",
			ConfigDir:       "config",
			ProdConfig:      "kapacitor.conf",
			DevConfig:       "kapacitor_devmode.conf",
			ControlPort:     9092,
			GracefulTimeout: 10 * time.Second,
		},
		Readiness: ReadinessConfig{
			MaxAttempts:  50,
			PollInterval: time.Second,
			DialTimeout:  500 * time.Millisecond,
		},
		Tasks: TasksConfig{
			RetryCount: 5,
			RetryDelay: 100 * time.Millisecond,
			ScriptsDir: "tick_scripts",
			SkipVerify: true,
		},
		Certs: CertsConfig{
			CACert:     "/run/secrets/Kapacitor_Server/ca_certificate.pem",
			ServerKey:  "/run/secrets/Kapacitor_Server/Kapacitor_Server_server_key.pem",
			ServerCert: "/run/secrets/Kapacitor_Server/Kapacitor_Server_server_certificate.pem",
			StageDir:   os.TempDir(),
		},
		Paths: PathsConfig{
			AppConfig:       "/app/config.json",
			UDFRequirements: "/app/udfs/requirements.txt",
			UDFPackageDir:   "/tmp/py_package",
			UDFDir:          "/app/udfs",
		},
		Ingest: IngestConfig{
			Enabled:  true,
			Host:     "0.0.0.0",
			Port:     5000,
			Database: "datain",
			RP:       "autogen",
		},
		Alerts: AlertsConfig{
			Host: "0.0.0.0",
			Port: 5001,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TSA_DAEMON_BINARY"); v != "" {
		cfg.Daemon.Binary = v
	}
	if v := os.Getenv("TSA_DAEMON_CLI"); v != "" {
		cfg.Daemon.CLI = v
	}
	if v := os.Getenv("TSA_DAEMON_WORK_DIR"); v != "" {
		cfg.Daemon.WorkDir = v
	}
	if v := os.Getenv("TSA_APP_CONFIG"); v != "" {
		cfg.Paths.AppConfig = v
	}
	if v := os.Getenv("TSA_DAEMON_TEMPLATE"); v != "" {
		cfg.Paths.DaemonTemplate = v
	}
	if v, ok := envInt("TSA_READINESS_MAX_ATTEMPTS"); ok {
		cfg.Readiness.MaxAttempts = v
	}
	if v, ok := envDuration("TSA_READINESS_POLL_INTERVAL"); ok {
		cfg.Readiness.PollInterval = v
	}
	if v, ok := envInt("TSA_TASKS_RETRY_COUNT"); ok {
		cfg.Tasks.RetryCount = v
	}
	if v, ok := envDuration("TSA_TASKS_RETRY_DELAY"); ok {
		cfg.Tasks.RetryDelay = v
	}
	if v, ok := envInt("TSA_INGEST_PORT"); ok {
		cfg.Ingest.Port = v
	}
	if v := os.Getenv("TSA_INGEST_ENABLED"); v != "" {
		cfg.Ingest.Enabled = strings.EqualFold(v, "true")
	}
	if v, ok := envInt("TSA_ALERTS_PORT"); ok {
		cfg.Alerts.Port = v
	}

	// Logging
	if v := os.Getenv("KAPACITOR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TSA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Daemon.Binary == "" {
		errs = append(errs, "daemon.binary is required")
	}
	if c.Daemon.CLI == "" {
		errs = append(errs, "daemon.cli is required")
	}
	if c.Daemon.ControlPort < 1 || c.Daemon.ControlPort > 65535 {
		errs = append(errs, "daemon.control_port must be between 1 and 65535")
	}
	if c.Readiness.MaxAttempts < 1 {
		errs = append(errs, "readiness.max_attempts must be at least 1")
	}
	if c.Readiness.PollInterval < 0 {
		errs = append(errs, "readiness.poll_interval must not be negative")
	}
	if c.Tasks.RetryCount < 1 {
		errs = append(errs, "tasks.retry_count must be at least 1")
	}
	if c.Tasks.RetryDelay < 0 {
		errs = append(errs, "tasks.retry_delay must not be negative")
	}
	if c.Paths.AppConfig == "" {
		errs = append(errs, "paths.app_config is required")
	}
	if c.Ingest.Enabled && (c.Ingest.Port < 1 || c.Ingest.Port > 65535) {
		errs = append(errs, "ingest.port must be between 1 and 65535")
	}
	if c.Alerts.Port < 1 || c.Alerts.Port > 65535 {
		errs = append(errs, "alerts.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DaemonConfigPath returns the config variant for the given mode, relative to
// the daemon's working directory.
func (c *Config) DaemonConfigPath(secure bool) string {
	name := c.Daemon.DevConfig
	if secure {
		name = c.Daemon.ProdConfig
	}
	if c.Daemon.ConfigDir == "" {
		return name
	}
	return c.Daemon.ConfigDir + "/" + name
}
