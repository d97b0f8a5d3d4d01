package kapacitor

import (
	"strings"

	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/config"
)

// Wire schemes.
const (
	SchemeHTTPS = "https"
	SchemeHTTP  = "http"
)

// Scheme returns the daemon's wire scheme for the given mode.
func Scheme(secure bool) string {
	if secure {
		return SchemeHTTPS
	}
	return SchemeHTTP
}

// RewriteURL replaces the scheme of raw, keeping everything after "://".
// A value without a scheme is treated as a bare host:port.
// An empty value stays empty.
func RewriteURL(raw, scheme string) string {
	if raw == "" {
		return ""
	}
	rest := raw
	if _, after, ok := strings.Cut(raw, "://"); ok {
		rest = after
	}
	return scheme + "://" + rest
}

// LaunchPlan is everything needed to start the daemon in one mode.
type LaunchPlan struct {
	Secure       bool
	Host         string
	KapacitorURL string
	InfluxURL    string
	UnsafeSSL    string
	ConfigPath   string
	Args         []string
}

// Plan derives the launch plan from settings and the container environment.
func Plan(settings *config.Config, env config.Env) LaunchPlan {
	scheme := Scheme(env.SecureMode)
	unsafeSSL := "true"
	if env.SecureMode {
		unsafeSSL = "false"
	}
	configPath := settings.DaemonConfigPath(env.SecureMode)

	return LaunchPlan{
		Secure:       env.SecureMode,
		Host:         env.Host,
		KapacitorURL: RewriteURL(env.KapacitorURL, scheme),
		InfluxURL:    RewriteURL(env.InfluxURL, scheme),
		UnsafeSSL:    unsafeSSL,
		ConfigPath:   configPath,
		Args:         []string{"-hostname", env.Host, "-config", configPath},
	}
}

// Env returns the rewritten variables in key=value form.
func (p LaunchPlan) Env() []string {
	return []string{
		config.EnvKapacitorURL + "=" + p.KapacitorURL,
		config.EnvUnsafeSSL + "=" + p.UnsafeSSL,
		config.EnvInfluxURL + "=" + p.InfluxURL,
	}
}

// envPairs returns the rewritten variables as key/value pairs for os.Setenv.
func (p LaunchPlan) envPairs() [][2]string {
	return [][2]string{
		{config.EnvKapacitorURL, p.KapacitorURL},
		{config.EnvUnsafeSSL, p.UnsafeSSL},
		{config.EnvInfluxURL, p.InfluxURL},
	}
}
