// Time-Series Analytics supervisor.
//
// Entry point of the analytics container: it prepares the kapacitord
// daemon's configuration and certificates, launches the daemon, waits for
// its control port, enables the configured tasks and then serves the
// ingestion and alert endpoints until it is signalled. Any startup failure
// exits with status 1.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/config"
	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/logging"
	"github.com/nerrad567/analytics-supervisor/internal/supervisor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Environment variables naming the supervisor's own files.
const (
	envConfigPath = "TSA_CONFIG"
	envDotEnvPath = "TSA_DOTENV"

	defaultDotEnvPath = ".env"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	if err := config.LoadDotEnv(getDotEnvPath()); err != nil {
		return err
	}

	configPath := os.Getenv(envConfigPath)
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		// Settings carry the log format, so this one goes out with defaults.
		logging.Default().Error("loading config failed", "path", configPath, "error", err)
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting time-series analytics supervisor",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
		"level", cfg.Logging.Level,
	)

	env := config.FromEnviron(os.Getenv)
	sup, err := supervisor.New(supervisor.Options{
		Settings: cfg,
		Env:      env,
		Logger:   log,
		Version:  version,
	})
	if err != nil {
		return err
	}

	if err := sup.Run(ctx); err != nil {
		log.Error("supervisor stopped", "error", err)
		return err
	}

	log.Info("supervisor stopped")
	return nil
}

// getDotEnvPath returns the .env file seeded into the environment.
func getDotEnvPath() string {
	if path := os.Getenv(envDotEnvPath); path != "" {
		return path
	}
	return defaultDotEnvPath
}
