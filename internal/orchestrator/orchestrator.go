// Package orchestrator wires the pipeline together: worker bridge, model
// session, command router, and the capture pump. It owns startup order,
// bridges component callbacks onto the event bus, and tears everything
// down in reverse on close.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/audio"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/bridge"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/capture"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/config"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/events"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/model"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/router"
)

type Orchestrator struct {
	cfg    *config.Config
	bus    *events.Bus
	bridge *bridge.Bridge
	client *model.Client
	router *router.Router
	source capture.Source

	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// New builds the pipeline from config. Nothing is started until Start.
// source may be nil when the session runs without a capture feed.
func New(cfg *config.Config, bus *events.Bus, source capture.Source) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		bus:    bus,
		bridge: bridge.New(cfg.Worker),
		client: model.New(cfg.Model, bus),
		source: source,
	}
	o.router = router.New(o.bridge, &busSink{bus: bus})
	return o
}

// Start brings the pipeline up: worker bridge first, then the model
// session, then the reply subscription and the capture pump. A worker
// that fails to become ready is killed rather than left dangling.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.bridge.OnDisconnect(func(reason string) {
		o.bus.Publish(events.NewTypedEvent(events.SourceBridge,
			events.BridgeDisconnectedPayload{Reason: reason}))
		if reason != "shutdown" {
			o.publishSystem("Automation worker disconnected. Restart to recover.")
		}
	})

	if err := o.bridge.Start(ctx); err != nil {
		o.bridge.Shutdown()
		return fmt.Errorf("start worker: %w", err)
	}

	mode, err := model.ParseMode(o.cfg.Model.Mode)
	if err != nil {
		o.bridge.Shutdown()
		return err
	}
	if err := o.client.InitializeSession(ctx, mode); err != nil {
		o.bridge.Shutdown()
		return fmt.Errorf("initialize model session: %w", err)
	}

	if o.cfg.Router.AliasFile != "" {
		if err := o.router.LoadAliases(o.cfg.Router.AliasFile); err != nil {
			slog.Warn("alias overrides not loaded", "error", err)
		}
	}

	o.unsubscribe = o.bus.Subscribe(func(e events.Event) {
		payload, ok := events.GetModelResponsePayload(e)
		if !ok {
			return
		}
		o.router.HandleReply(payload.Content)
	}, events.EventModelResponse)

	runCtx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	if o.source != nil {
		pump := capture.NewPump(o.source, o.handleBatch, o.bus, o.cfg.Capture.Interval.Duration())
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			if err := pump.Run(runCtx); err != nil && runCtx.Err() == nil {
				slog.Error("capture pump stopped", "error", err)
			}
		}()
	}

	slog.Info("pipeline started", "mode", string(mode))
	return nil
}

// handleBatch wraps raw PCM in a WAV container and forwards the batch as
// the next model turn. Encoding failures drop the audio but keep the
// frame.
func (o *Orchestrator) handleBatch(ctx context.Context, b capture.Batch) {
	in := model.Input{Image: b.Image}
	if len(b.Audio) > 0 {
		wav, err := audio.EncodeWAV(b.Audio)
		if err != nil {
			slog.Warn("audio chunk dropped", "error", err)
		} else {
			in.Audio = wav
		}
	}
	_ = o.client.SendRealtimeInput(ctx, in)
}

// SendText forwards a typed user message as the next model turn.
func (o *Orchestrator) SendText(ctx context.Context, text string) error {
	return o.client.SendRealtimeInput(ctx, model.Input{Text: text})
}

// Mode returns the active assistant mode.
func (o *Orchestrator) Mode() string {
	return string(o.client.Mode())
}

// SetMode switches the assistant mode mid-session.
func (o *Orchestrator) SetMode(mode string) error {
	m, err := model.ParseMode(mode)
	if err != nil {
		return err
	}
	o.client.SetMode(m)
	slog.Info("mode changed", "mode", mode)
	return nil
}

// Close tears the pipeline down in reverse start order. Idempotent.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		if o.cancel != nil {
			o.cancel()
		}
		if o.unsubscribe != nil {
			o.unsubscribe()
		}
		o.wg.Wait()
		o.client.Close()
		o.bridge.Shutdown()
	})
}

func (o *Orchestrator) publishSystem(content string) {
	o.bus.Publish(events.NewTypedEvent(events.SourceOrchestrator,
		events.UITextPayload{Kind: "system", Content: content}))
}

// busSink forwards router output onto the event bus.
type busSink struct {
	bus *events.Bus
}

func (s *busSink) Feedback(message string) {
	s.bus.Publish(events.NewTypedEvent(events.SourceRouter,
		events.CommandFeedbackPayload{Message: message}))
}

func (s *busSink) CommandExecuted(command string, params map[string]any) {
	s.bus.Publish(events.NewTypedEvent(events.SourceRouter,
		events.CommandExecutedPayload{Command: command, Params: params}))
}

func (s *busSink) CommandError(command string, params map[string]any, err error) {
	s.bus.Publish(events.NewTypedEvent(events.SourceRouter,
		events.CommandErrorPayload{Command: command, Params: params, Error: err.Error()}))
}

func (s *busSink) Text(content string) {
	s.bus.Publish(events.NewTypedEvent(events.SourceRouter,
		events.UITextPayload{Kind: "text", Content: content}))
}
