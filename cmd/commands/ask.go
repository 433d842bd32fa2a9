package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	wsclient "github.com/rakshithsajjan/invisible-ai-sidekick/clients/ws"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/events"
)

// NewAskCommand returns the ask subcommand.
func NewAskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Send a text message to the running session and print the reply",
		ArgsUsage: "<message>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "gateway",
				Usage: "Gateway WebSocket URL",
				Value: "ws://127.0.0.1:18700/api/ws",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Switch assistant mode before sending",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "Response timeout in seconds",
				Value: 120,
			},
		},
		Action: runAsk,
	}
}

func runAsk(_ context.Context, cmd *cli.Command) error {
	message := cmd.Args().First()
	if message == "" {
		return fmt.Errorf("usage: sidekick ask <message>")
	}

	timeoutSecs := cmd.Int("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	client, err := wsclient.Dial(ctx, cmd.String("gateway"))
	if err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}
	defer client.Close()

	if mode := cmd.String("mode"); mode != "" {
		if err := client.SetMode(mode); err != nil {
			return fmt.Errorf("set mode: %w", err)
		}
	}

	if err := client.SendText(message); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	// Read frames until the reply surfaces: a ui.text event for a
	// conversational answer, or a command event when the reply was a
	// voice command.
	for {
		frame, err := client.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("timeout waiting for response")
			}
			return fmt.Errorf("read frame: %w", err)
		}

		if frame.Event == "" {
			if frame.Error != "" {
				return fmt.Errorf("gateway error: %s", frame.Error)
			}
			continue
		}

		switch events.EventType(frame.Event) {
		case events.EventUIText:
			var payload events.UITextPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				continue
			}
			fmt.Fprintln(os.Stdout, payload.Content)
			return nil

		case events.EventCommandExecuted:
			var payload events.CommandExecutedPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				continue
			}
			fmt.Fprintf(os.Stdout, "executed: %s\n", payload.Command)
			return nil

		case events.EventCommandError:
			var payload events.CommandErrorPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				continue
			}
			return fmt.Errorf("command %s failed: %s", payload.Command, payload.Error)

		case events.EventModelError:
			var payload events.ModelErrorPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				continue
			}
			return fmt.Errorf("model error: %s", payload.Error)
		}
	}
}
