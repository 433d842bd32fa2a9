package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/capture"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/config"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/events"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/gateway"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/heartbeat"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/orchestrator"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/storage"
)

// NewRunCommand returns the run subcommand: the sidekick daemon.
func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start the sidekick daemon and gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Assistant mode (interview or voice_control)",
			},
		},
		Action: runDaemon,
	}
}

type modeSwitcher interface {
	Mode() string
	SetMode(string) error
}

// applyModeReload switches the assistant mode when the reloaded config
// disagrees with the live mode. The live mode is the baseline, not the
// previous file contents: the mode may have drifted through set_mode over
// the websocket, and a reload that restores an earlier config value must
// still apply. Reports whether the mode changed.
func applyModeReload(o modeSwitcher, next *config.Config) bool {
	if next.Model.Mode == "" || next.Model.Mode == o.Mode() {
		return false
	}
	if err := o.SetMode(next.Model.Mode); err != nil {
		slog.Warn("reloaded mode rejected", "mode", next.Model.Mode, "error", err)
		return false
	}
	return true
}

func runDaemon(_ context.Context, cmd *cli.Command) error {
	// Setup debug logging
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	// Load config
	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", configPath, "error", err)
		cfg = config.Default()
	}

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("mode") {
		cfg.Model.Mode = cmd.String("mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event bus
	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	// Event log
	logDir := cfg.Events.LogDir
	if logDir == "" {
		logDir = filepath.Join(config.SidekickPath(), "events")
	}
	eventLog := storage.NewEventLogger(logDir, bus)
	defer eventLog.Close()

	// Capture source: file replay when configured, otherwise the session
	// runs on typed input only.
	var source capture.Source
	if cfg.Capture.ReplayDir != "" {
		source, err = capture.NewDirSource(cfg.Capture.ReplayDir)
		if err != nil {
			return fmt.Errorf("open capture replay: %w", err)
		}
	}

	// Pipeline
	orch := orchestrator.New(cfg, bus, source)
	if err := orch.Start(ctx); err != nil {
		return err
	}
	defer orch.Close()

	// Heartbeat
	hb := heartbeat.NewWriter(config.HeartbeatPath())
	hb.SetState(orch.Mode(), "ready")
	hb.Start()
	defer hb.Stop()

	// Hot reload on SIGHUP: re-expands env templates and refreshes alias
	// and capture settings on the next restart. Mode changes apply live.
	reloader := config.NewReloader(configPath, config.DotenvPath(), cfg)
	reloader.OnReload(func(_, next *config.Config) {
		if applyModeReload(orch, next) {
			hb.SetState(orch.Mode(), "ready")
		}
	})
	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)
	defer signal.Stop(hupCh)
	go func() {
		for range hupCh {
			if err := reloader.Reload(); err != nil {
				slog.Error("config reload failed", "error", err)
			}
		}
	}()

	// Gateway server
	server := gateway.NewServer(bus, orch, cfg.Gateway.Host, cfg.Gateway.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
