package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/analytics-supervisor/internal/alerts"
	"github.com/nerrad567/analytics-supervisor/internal/api"
	"github.com/nerrad567/analytics-supervisor/internal/daemonconf"
	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/config"
	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/influxdb"
	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/logging"
	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/mqtt"
	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/tsdb"
	"github.com/nerrad567/analytics-supervisor/internal/kapacitor"
	"github.com/nerrad567/analytics-supervisor/internal/process"
	"github.com/nerrad567/analytics-supervisor/internal/tasks"
	"github.com/nerrad567/analytics-supervisor/internal/watcher"
)

// Construction errors.
var (
	ErrNoSettings = errors.New("supervisor: settings are required")
	ErrNoLogger   = errors.New("supervisor: logger is required")
)

// Daemon is the launched analytics daemon. *kapacitor.Manager implements it.
type Daemon interface {
	Launch(ctx context.Context) error
	Plan() kapacitor.LaunchPlan
	Probe() *kapacitor.DaemonProbe
	Exited() bool
	Done() <-chan struct{}
	Stats() process.Stats
	Stop() error
}

// Options holds the supervisor's collaborators. Settings and Logger are
// required; the rest default to the production implementations.
type Options struct {
	Settings *config.Config
	Env      config.Env
	Logger   *logging.Logger
	Version  string

	// Exit is called by the config watcher. Defaults to os.Exit.
	Exit watcher.ExitFunc

	// Daemon defaults to kapacitor.NewManager(Settings, Env).
	Daemon Daemon

	// Controller defaults to the daemon's CLI.
	Controller tasks.Controller

	// Installer defaults to PipInstall.
	Installer Installer
}

// Supervisor runs the startup sequence and then keeps the daemon and its
// HTTP collaborators alive until its context is cancelled.
type Supervisor struct {
	settings *config.Config
	env      config.Env
	logger   *logging.Logger
	version  string

	exit    watcher.ExitFunc
	daemon  Daemon
	ctrl    tasks.Controller
	install Installer

	status *mqtt.Client
	writer *tsdb.Client
}

// New creates a Supervisor.
func New(opts Options) (*Supervisor, error) {
	if opts.Settings == nil {
		return nil, ErrNoSettings
	}
	if opts.Logger == nil {
		return nil, ErrNoLogger
	}

	s := &Supervisor{
		settings: opts.Settings,
		env:      opts.Env,
		logger:   opts.Logger,
		version:  opts.Version,
		exit:     opts.Exit,
		daemon:   opts.Daemon,
		ctrl:     opts.Controller,
		install:  opts.Installer,
	}
	if s.exit == nil {
		s.exit = os.Exit
	}
	if s.daemon == nil {
		mgr := kapacitor.NewManager(opts.Settings, opts.Env)
		mgr.SetLogger(opts.Logger.With("component", "kapacitor"))
		s.daemon = mgr
	}
	if s.ctrl == nil {
		s.ctrl = &tasks.CLIController{
			Binary:     opts.Settings.Daemon.CLI,
			ScriptsDir: opts.Settings.Tasks.ScriptsDir,
			SkipVerify: opts.Settings.Tasks.SkipVerify,
			WorkDir:    opts.Settings.Daemon.WorkDir,
		}
	}
	if s.install == nil {
		s.install = PipInstall
	}
	return s, nil
}

// Run executes the startup sequence and blocks until ctx is cancelled.
//
// Every step before the wait is fatal except the UDF requirements install,
// the MQTT status publisher and the upstream checks, which only log. A
// daemon exit after readiness is reported but does not end Run. On return
// the HTTP servers are closed and the daemon's process group is stopped.
func (s *Supervisor) Run(ctx context.Context) error {
	buildInfo.WithLabelValues(s.version).Set(1)

	store, err := config.OpenStore(s.settings.Paths.AppConfig)
	if err != nil {
		return fmt.Errorf("loading app config: %w", err)
	}
	app, err := store.Snapshot()
	if err != nil {
		return fmt.Errorf("loading app config: %w", err)
	}
	s.logger.Info("app config loaded", "path", store.Path(), "tasks", len(app.Config.Tasks))

	w, err := watcher.New(store.Path(), s.exit, s.logger.Logger)
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("starting config watcher: %w", err)
	}
	defer func() {
		if stopErr := w.Stop(); stopErr != nil {
			s.logger.Warn("stopping config watcher", "error", stopErr)
		}
	}()

	if err := s.renderDaemonConfig(app); err != nil {
		return err
	}

	if err := s.env.RequireHost(); err != nil {
		return err
	}
	if err := app.CheckTasks(); err != nil {
		return err
	}

	s.installRequirements(ctx)

	plan := s.daemon.Plan()

	s.connectStatus(app)
	defer s.closeStatus()
	s.publish(mqtt.StateStarting, "")

	servers, sink, err := s.startServers(ctx, app, store, plan)
	defer closeServers(s.logger, servers)
	defer s.writer.Close()
	if err != nil {
		return err
	}

	go s.probeUpstream(ctx, plan)

	if err := s.daemon.Launch(ctx); err != nil {
		s.publish(mqtt.StateOffline, err.Error())
		return err
	}
	daemonUp.Set(1)
	defer s.stopDaemon()

	if sink != nil {
		go s.connectSink(ctx, sink)
	}

	if err := s.waitReady(ctx); err != nil {
		s.publish(mqtt.StateOffline, err.Error())
		return err
	}
	s.publish(mqtt.StateReady, "")
	s.checkWriter(ctx)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go s.watchDaemon(watchCtx)

	enabler := tasks.NewEnabler(s.ctrl, tasks.Options{
		RetryCount: s.settings.Tasks.RetryCount,
		RetryDelay: s.settings.Tasks.RetryDelay,
		OnAttempt:  observeAttempt,
	})
	enabler.SetLogger(s.logger.With("component", "tasks"))
	if err := enabler.EnableTasks(ctx, app.Config.Tasks); err != nil {
		s.publish(mqtt.StateOffline, err.Error())
		return err
	}
	s.publish(mqtt.StateTasksEnabled, "")

	<-ctx.Done()
	s.logger.Info("shutting down")
	s.publish(mqtt.StateStopping, "")
	return nil
}

func (s *Supervisor) renderDaemonConfig(app *config.AppConfig) error {
	tmpl := s.settings.Paths.DaemonTemplate
	if tmpl == "" {
		return nil
	}
	out := s.settings.DaemonConfigPath(s.env.SecureMode)
	if s.settings.Daemon.WorkDir != "" && !filepath.IsAbs(out) {
		out = filepath.Join(s.settings.Daemon.WorkDir, out)
	}
	if err := daemonconf.RenderFile(tmpl, out, app, daemonconf.OptionsFromPaths(s.settings.Paths)); err != nil {
		return fmt.Errorf("rendering daemon config: %w", err)
	}
	s.logger.Info("daemon config rendered", "template", tmpl, "output", out)
	return nil
}

func (s *Supervisor) waitReady(ctx context.Context) error {
	probe := s.daemon.Probe()
	s.logger.Info("waiting for kapacitor", "addr", probe.Addr(), "max_attempts", s.settings.Readiness.MaxAttempts)

	err := kapacitor.WaitReady(ctx, probe, kapacitor.Policy{
		MaxAttempts: s.settings.Readiness.MaxAttempts,
		Interval:    s.settings.Readiness.PollInterval,
		OnPoll: func(st kapacitor.ReadinessState) {
			observePoll(st)
			s.logger.Debug("readiness poll",
				"attempt", st.Attempt,
				"daemon_alive", st.DaemonAlive,
				"port_open", st.PortOpen,
			)
		},
	})
	if err != nil {
		return err
	}
	s.logger.Info("kapacitor daemon is ready")
	return nil
}

// watchDaemon reports an exit of the ready daemon. The supervisor keeps
// serving; GET /health and the status topic show the daemon as down.
func (s *Supervisor) watchDaemon(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-s.daemon.Done():
	}
	if ctx.Err() != nil {
		return
	}

	daemonUp.Set(0)
	st := s.daemon.Stats()
	s.logger.Error("kapacitor exited",
		"pid", st.PID,
		"status", st.Status,
		"error", st.LastError,
	)
	s.publish(mqtt.StateOffline, "kapacitor exited")
}

// checkWriter pings the daemon's HTTP API once it is ready. Best-effort.
func (s *Supervisor) checkWriter(ctx context.Context) {
	if s.writer == nil {
		return
	}
	if err := s.writer.HealthCheck(ctx); err != nil {
		s.logger.Warn("kapacitor write endpoint not healthy", "error", err)
		return
	}
	s.logger.Info("kapacitor write endpoint healthy")
}

func (s *Supervisor) stopDaemon() {
	if err := s.daemon.Stop(); err != nil {
		s.logger.Error("stopping kapacitor", "error", err)
	}
	daemonUp.Set(0)
}

// startServers starts the alert forwarder and the ingestion endpoint.
// The returned servers must be closed even when err is non-nil.
func (s *Supervisor) startServers(ctx context.Context, app *config.AppConfig, store *config.Store, plan kapacitor.LaunchPlan) ([]*api.Server, *alerts.OPCUASink, error) {
	var (
		servers []*api.Server
		sink    *alerts.OPCUASink
	)

	if target := app.OPCUA(); target != nil {
		var err error
		sink, err = alerts.NewOPCUASink(alerts.OPCUAOptionsFor(target, s.env.SecureMode, s.settings.Certs))
		if err != nil {
			return servers, nil, fmt.Errorf("configuring opc-ua alerts: %w", err)
		}
		sink.SetLogger(s.logger.With("component", "opcua"))

		fwd := alerts.NewForwarder(sink)
		fwd.SetLogger(s.logger.With("component", "alerts"))
		srv, err := s.startServer(ctx, "alerts", s.settings.Alerts.Host, s.settings.Alerts.Port, fwd.Routes, false, nil)
		if err != nil {
			return servers, nil, err
		}
		servers = append(servers, srv)
	}

	if s.settings.Ingest.Enabled {
		var (
			writer api.PointWriter
			checks = make(map[string]api.HealthChecker)
		)
		if s.status != nil {
			checks["mqtt"] = s.status
		}
		if plan.KapacitorURL != "" {
			client, err := tsdb.New(tsdb.Options{
				BaseURL:            plan.KapacitorURL,
				Database:           s.settings.Ingest.Database,
				RetentionPolicy:    s.settings.Ingest.RP,
				InsecureSkipVerify: s.settings.Tasks.SkipVerify,
			})
			if err != nil {
				return servers, sink, fmt.Errorf("configuring ingest writer: %w", err)
			}
			writer = client
			s.writer = client
			checks["kapacitor"] = client
		} else {
			s.logger.Warn("KAPACITOR_URL not set, /input is unavailable")
		}

		ingest := api.NewIngest(writer, store, s.logger.With("component", "ingest"))
		srv, err := s.startServer(ctx, "ingest", s.settings.Ingest.Host, s.settings.Ingest.Port, ingest.Routes, true, checks)
		if err != nil {
			return servers, sink, err
		}
		servers = append(servers, srv)
	}

	return servers, sink, nil
}

func (s *Supervisor) startServer(ctx context.Context, name, host string, port int, routes func(chi.Router), metrics bool, checks map[string]api.HealthChecker) (*api.Server, error) {
	srv, err := api.New(api.Deps{
		Name:    name,
		Host:    host,
		Port:    port,
		Logger:  s.logger,
		Routes:  routes,
		Metrics: metrics,
		Version: s.version,
		Checks:  checks,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s server: %w", name, err)
	}
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting %s server: %w", name, err)
	}
	return srv, nil
}

func closeServers(logger *logging.Logger, servers []*api.Server) {
	for _, srv := range servers {
		if err := srv.Close(); err != nil {
			logger.Warn("closing http server", "addr", srv.Addr(), "error", err)
		}
	}
}

func (s *Supervisor) connectSink(ctx context.Context, sink *alerts.OPCUASink) {
	if err := sink.Connect(ctx); err != nil {
		s.logger.Error("opc-ua alert sink unavailable", "error", err)
		return
	}
	<-ctx.Done()
	if err := sink.Close(context.Background()); err != nil {
		s.logger.Warn("closing opc-ua sink", "error", err)
	}
}

// connectStatus connects the MQTT status publisher. Best-effort.
func (s *Supervisor) connectStatus(app *config.AppConfig) {
	broker := app.MQTT()
	if broker == nil || broker.Host == "" {
		return
	}
	client, err := mqtt.Connect(mqtt.OptionsFor(broker, s.env.AppName, s.env.Host))
	if err != nil {
		s.logger.Warn("mqtt status publisher unavailable", "broker", broker.Host, "error", err)
		return
	}
	client.SetLogger(s.logger.With("component", "mqtt"))
	s.status = client
}

func (s *Supervisor) publish(state mqtt.State, reason string) {
	if !s.status.IsConnected() {
		return
	}
	if err := s.status.PublishStatusReason(state, reason); err != nil {
		s.logger.Debug("publishing status failed", "state", state, "error", err)
	}
}

func (s *Supervisor) closeStatus() {
	if s.status == nil {
		return
	}
	if err := s.status.Close(); err != nil {
		s.logger.Debug("closing mqtt status publisher", "error", err)
	}
}

// probeUpstream pings the data source the daemon subscribes to. Best-effort.
func (s *Supervisor) probeUpstream(ctx context.Context, plan kapacitor.LaunchPlan) {
	if plan.InfluxURL == "" {
		return
	}
	client := influxdb.NewClient(plan.InfluxURL, "", plan.UnsafeSSL == "true")
	defer client.Close()

	if err := client.HealthCheck(ctx); err != nil {
		s.logger.Warn("influxdb not reachable", "url", client.URL(), "error", err)
		return
	}
	s.logger.Info("influxdb reachable", "url", client.URL())
}
