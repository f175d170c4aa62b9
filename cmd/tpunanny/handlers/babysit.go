package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"

	"github.com/imamik/tpunanny/internal/config"
	"github.com/imamik/tpunanny/internal/fleet"
	"github.com/imamik/tpunanny/internal/logging"
)

// Output streams - can be replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Babysitter runs a fleet until its context ends - matches fleet.Supervisor.
type Babysitter interface {
	Babysit(ctx context.Context, spec fleet.FleetSpec) error
}

var newSupervisor = func(deps fleet.Dependencies, log logr.Logger) Babysitter {
	return fleet.NewSupervisor(deps, log)
}

// Babysit handles the babysit command.
//
// It keeps every configured worker alive until SIGINT or SIGTERM, runs the
// remote script once per worker incarnation and, when configured, serves
// metrics and archives script transcripts.
func Babysit(ctx context.Context, configPath string, o Overrides, verbosity int) error {
	cfg, err := loadConfig(configPath, o)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	startupScript, err := config.ReadScript(cfg.StartupScript)
	if err != nil {
		return err
	}
	remoteScript, err := config.ReadScript(cfg.RemoteScript)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.New(logging.Options{Verbosity: verbosity, Stream: stderr})
	ctx = logr.NewContext(ctx, log)

	client, runtime, err := newResourceClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	deps := fleet.Dependencies{
		Client:  client,
		Runtime: runtime,
	}
	if remoteScript != "" {
		if deps.Executor, err = newExecutor(cfg); err != nil {
			return err
		}
	}
	if cfg.Archive.Enabled() {
		if deps.Archiver, err = newArchiver(ctx, cfg); err != nil {
			return err
		}
	}

	sinks := logging.WorkerSinks{Dir: cfg.LogDir, Verbosity: verbosity}
	if cfg.StreamLogs {
		sinks.Stream = stdout
	}
	deps.Loggers = sinks.ForWorker

	if cfg.MetricsAddr != "" {
		shutdown, err := startMetricsServer(cfg.MetricsAddr, log)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer shutdown()
	}

	log.Info("Writing worker logs", "logDir", cfg.LogDir)

	spec := fleetSpec(cfg, startupScript, remoteScript)
	if err := newSupervisor(deps, log).Babysit(ctx, spec); err != nil {
		return err
	}
	log.Info("All workers stopped")
	return nil
}

func fleetSpec(cfg *config.Fleet, startupScript, remoteScript string) fleet.FleetSpec {
	return fleet.FleetSpec{
		Project:           cfg.Project,
		Zone:              cfg.Zone,
		AcceleratorType:   cfg.AcceleratorType,
		WorkerPrefix:      cfg.WorkerPrefix,
		Indices:           cfg.Indices,
		Spot:              cfg.UseSpot(),
		StartupScript:     startupScript,
		RemoteScript:      remoteScript,
		ScriptTargets:     cfg.ScriptTargets,
		PollInterval:      cfg.Intervals.Poll,
		ReadyPollInterval: cfg.Intervals.ReadyPoll,
		Cooldown:          cfg.Intervals.Cooldown,
		Stagger:           cfg.Intervals.Stagger,
	}
}
