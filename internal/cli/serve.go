package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/charliek/podlogs/internal/api"
	"github.com/charliek/podlogs/internal/config"
	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/instance"
	"github.com/charliek/podlogs/internal/logs"
	"github.com/charliek/podlogs/internal/supervisor"
)

var servePort int

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local engine emulator",
	Long: `Run the commands under serve.containers as pseudo-containers and serve
their output over a subset of the podman and docker engine APIs.

Point podlogs (or any engine client) at it:
  podlogs serve &
  podlogs view --url tcp://127.0.0.1:8089 web
  DOCKER_HOST=tcp://127.0.0.1:8089 podlogs view --source docker web

Prometheus metrics are served at /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (default from serve.port)")
}

// emulatorService bundles the serve command's components
type emulatorService struct {
	logs       *logs.Manager
	supervisor *supervisor.Supervisor
	server     *api.Server
	metrics    *api.Metrics
	logger     *slog.Logger
}

func newEmulator(cfg *config.Config, configDir string, logger *slog.Logger) (*emulatorService, error) {
	containers, err := cfg.ToDomainContainers(configDir)
	if err != nil {
		return nil, err
	}
	if err := supervisor.ValidateStopSignals(containers); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	metrics := api.NewMetrics()
	logMgr := logs.NewManager(logs.ManagerConfig{
		BufferSize: cfg.Serve.BufferSize,
		OnWrite:    metrics.ObserveWrite,
		OnDrop:     metrics.ObserveDrop,
	})
	sup := supervisor.New(containers, logMgr, nil, supervisor.DefaultSupervisorConfig())
	server := api.NewServer(api.ServerConfig{
		Host: cfg.Serve.Host,
		Port: cfg.Serve.Port,
	}, api.NewHandlers(sup, logMgr, metrics), metrics)

	return &emulatorService{
		logs:       logMgr,
		supervisor: sup,
		server:     server,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

func (e *emulatorService) containerNames() []string {
	infos := e.supervisor.Containers()
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}

// run serves until ctx is done, then stops the server and every container
func (e *emulatorService) run(ctx context.Context) error {
	events := e.supervisor.Subscribe()
	defer e.supervisor.Unsubscribe(events)

	// processes outlive ctx so Stop can end them gracefully
	result, err := e.supervisor.Start(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("starting containers: %w", err)
	}
	for name, startErr := range result.Failed {
		e.logger.Error("failed to start container", "container", name, "error", startErr)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		e.logger.Info("engine emulator listening", "addr", e.server.Addr(), "started", result.Started)
		if err := e.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				e.metrics.ObserveEvent(ev)
				e.logger.Info("container state changed",
					"container", ev.Container,
					"event", ev.Type,
					"pid", ev.Info.PID,
					"exit_code", ev.Info.ExitCode)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		e.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultShutdownTimeout)
		defer cancel()
		if err := e.server.Shutdown(shutdownCtx); err != nil {
			e.logger.Warn("api server shutdown", "error", err)
		}
		if err := e.supervisor.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("stopping containers: %w", err)
		}
		e.logs.Close()
		return nil
	})

	return g.Wait()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, configDir, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Serve.Port = servePort
	}
	logger, closeLog, err := newLogger(cfg.Log, false)
	if err != nil {
		return err
	}
	defer closeLog()

	if len(cfg.Serve.Containers) == 0 {
		return fmt.Errorf("no containers configured under serve.containers")
	}
	if cfg.Serve.Port == 0 {
		if cfg.Serve.Port, err = instance.FreePort(cfg.Serve.Host); err != nil {
			return err
		}
	}

	emu, err := newEmulator(cfg, configDir, logger)
	if err != nil {
		return err
	}

	reg, err := instance.Register(configDir, instance.State{
		Host:       cfg.Serve.Host,
		Port:       cfg.Serve.Port,
		ConfigFile: configPath,
		Containers: emu.containerNames(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Release(); err != nil {
			logger.Warn("releasing instance state", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %d containers on http://%s\n", len(cfg.Serve.Containers), emu.server.Addr())
	return emu.run(ctx)
}
