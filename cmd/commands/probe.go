package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/bridge"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/config"
)

// NewProbeCommand returns the probe subcommand: a worker smoke test that
// spawns the configured automation worker, waits for its ready line, and
// asks it for the current UI state.
func NewProbeCommand() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Spawn the automation worker and verify it responds",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "app",
				Usage: "Restrict the UI state query to one application",
			},
		},
		Action: runProbe,
	}
}

func runProbe(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", configPath, "error", err)
		cfg = config.Default()
	}
	if cfg.Worker.Command == "" {
		return fmt.Errorf("no worker command configured")
	}

	b := bridge.New(cfg.Worker)
	defer b.Shutdown()

	fmt.Printf("spawning %s...\n", cfg.Worker.Command)
	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("worker did not become ready: %w", err)
	}
	fmt.Println("worker ready")

	msg := map[string]any{"type": "get_ui_state"}
	if app := cmd.String("app"); app != "" {
		msg["app_name"] = app
	}

	resp, err := b.Call(msg)
	if err != nil {
		return fmt.Errorf("ui state query failed: %w", err)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
