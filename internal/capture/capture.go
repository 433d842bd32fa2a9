// Package capture feeds screen and audio batches into the pipeline on a
// timer. Real capture devices live outside this process; the sources here
// replay pre-captured frames, which is also how the pipeline is exercised
// headlessly.
package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/events"
)

// Batch is one capture tick: an optional JPEG frame and an optional chunk
// of raw PCM16LE audio.
type Batch struct {
	Image []byte
	Audio []byte
}

func (b Batch) Empty() bool {
	return len(b.Image) == 0 && len(b.Audio) == 0
}

// Source produces capture batches. Next returns io.EOF when the source is
// exhausted.
type Source interface {
	Next(ctx context.Context) (Batch, error)
}

// Handler consumes one batch. It may block; the pump skips ticks that
// elapse while the handler runs.
type Handler func(ctx context.Context, b Batch)

// Pump polls a Source on a fixed interval and hands each non-empty batch
// to the handler. A size-only event is published per batch so observers
// can see capture activity without raw frames transiting the bus.
type Pump struct {
	src      Source
	handler  Handler
	bus      *events.Bus
	interval time.Duration
}

func NewPump(src Source, handler Handler, bus *events.Bus, interval time.Duration) *Pump {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Pump{src: src, handler: handler, bus: bus, interval: interval}
}

// Run blocks until ctx is cancelled or the source is exhausted.
func (p *Pump) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		batch, err := p.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			slog.Info("capture source exhausted")
			return nil
		}
		if err != nil {
			slog.Warn("capture source failed", "error", err)
			continue
		}
		if batch.Empty() {
			continue
		}

		if p.bus != nil {
			p.bus.Publish(events.NewTypedEvent(events.SourceOrchestrator, events.CaptureBatchPayload{
				ImageBytes: len(batch.Image),
				AudioBytes: len(batch.Audio),
			}))
		}
		p.handler(ctx, batch)
	}
}
