package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/bridge"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/config"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/events"
)

func testConfig(t *testing.T, apiKey string) *config.Config {
	t.Helper()
	script := filepath.Join(t.TempDir(), "worker.sh")
	content := `#!/bin/sh
echo '{"type":"ready"}'
while read line; do
  echo '{"success":true}'
done
`
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		t.Fatalf("write worker script: %v", err)
	}

	cfg := config.Default()
	cfg.Model.APIKey = apiKey
	cfg.Worker.Command = "/bin/sh"
	cfg.Worker.Args = []string{script}
	cfg.Worker.ReadyTimeout = config.Duration(5 * time.Second)
	return cfg
}

func collect(ch <-chan events.Event) []events.Event {
	time.Sleep(300 * time.Millisecond)
	var out []events.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestCommandReplyFlowsToBridge(t *testing.T) {
	bus := events.NewBus(64)
	t.Cleanup(bus.Close)
	ch, unsub := bus.SubscribeChan(32,
		events.EventCommandFeedback, events.EventCommandExecuted, events.EventUIText)
	defer unsub()

	o := New(testConfig(t, "test-key"), bus, nil)
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer o.Close()

	bus.Publish(events.NewTypedEvent(events.SourceModel, events.ModelResponsePayload{
		Content: `{"command":"open_app","params":{"app":"Safari"}}`,
	}))

	got := collect(ch)
	var feedback, executed int
	for _, e := range got {
		switch e.Type {
		case events.EventCommandFeedback:
			feedback++
		case events.EventCommandExecuted:
			executed++
		case events.EventUIText:
			t.Fatal("command reply must not surface as UI text")
		}
	}
	if feedback != 1 || executed != 1 {
		t.Fatalf("expected 1 feedback and 1 executed event, got %d/%d", feedback, executed)
	}
}

func TestPlainReplySurfacesAsText(t *testing.T) {
	bus := events.NewBus(64)
	t.Cleanup(bus.Close)
	ch, unsub := bus.SubscribeChan(32, events.EventUIText)
	defer unsub()

	o := New(testConfig(t, "test-key"), bus, nil)
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer o.Close()

	bus.Publish(events.NewTypedEvent(events.SourceModel, events.ModelResponsePayload{
		Content: "That error means the file was not found.",
	}))

	got := collect(ch)
	if len(got) != 1 {
		t.Fatalf("expected 1 UI text event, got %d", len(got))
	}
	payload, ok := events.GetUITextPayload(got[0])
	if !ok || payload.Kind != "text" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Content != "That error means the file was not found." {
		t.Fatalf("reply not passed through verbatim: %q", payload.Content)
	}
}

func TestStartFailsWithoutCredential(t *testing.T) {
	bus := events.NewBus(64)
	t.Cleanup(bus.Close)

	o := New(testConfig(t, ""), bus, nil)
	if err := o.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail without an API key")
	}
	if o.bridge.State() != bridge.StateTerminated {
		t.Fatal("worker must be shut down when session setup fails")
	}
}

func TestSetModeValidation(t *testing.T) {
	bus := events.NewBus(64)
	t.Cleanup(bus.Close)

	o := New(testConfig(t, "test-key"), bus, nil)
	if err := o.SetMode("chatty"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if err := o.SetMode("interview"); err != nil {
		t.Fatalf("set mode: %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	bus := events.NewBus(64)
	t.Cleanup(bus.Close)

	o := New(testConfig(t, "test-key"), bus, nil)
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	o.Close()
	o.Close()

	if o.bridge.State() != bridge.StateTerminated {
		t.Fatal("expected terminated worker after close")
	}
}
