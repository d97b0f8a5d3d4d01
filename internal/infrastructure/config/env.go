package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names shared with the daemon and its siblings.
const (
	EnvKapacitorURL = "KAPACITOR_URL"
	EnvInfluxURL    = "KAPACITOR_INFLUXDB_0_URLS_0"
	EnvUnsafeSSL    = "KAPACITOR_UNSAFE_SSL"
	EnvSecureMode   = "SECURE_MODE"
	EnvHost         = "KAPACITOR_SERVER"
	EnvLogLevel     = "KAPACITOR_LOGGING_LEVEL"
	EnvAppName      = "Appname"
)

// DefaultAppName is used when Appname is unset.
const DefaultAppName = "Kapacitor"

// ErrMissingHost is returned when the host identifier is unset or empty.
var ErrMissingHost = errors.New("kapacitor hostname is not set in the container")

// Env is a snapshot of the container environment.
type Env struct {
	KapacitorURL string
	InfluxURL    string
	SecureMode   bool
	Host         string
	LogLevel     string
	AppName      string
}

// FromEnviron builds an Env using getenv (normally os.Getenv).
// SECURE_MODE defaults to "true"; any other value than "true" (case-insensitive)
// disables secure mode.
func FromEnviron(getenv func(string) string) Env {
	mode := getenv(EnvSecureMode)
	if mode == "" {
		mode = "true"
	}
	app := getenv(EnvAppName)
	if app == "" {
		app = DefaultAppName
	}
	return Env{
		KapacitorURL: getenv(EnvKapacitorURL),
		InfluxURL:    getenv(EnvInfluxURL),
		SecureMode:   strings.EqualFold(mode, "true"),
		Host:         strings.TrimSpace(getenv(EnvHost)),
		LogLevel:     getenv(EnvLogLevel),
		AppName:      app,
	}
}

// RequireHost returns ErrMissingHost when no host identifier is set.
func (e Env) RequireHost() error {
	if e.Host == "" {
		return ErrMissingHost
	}
	return nil
}

// LoadDotEnv seeds the process environment from a .env file.
// Variables already set are left untouched. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
