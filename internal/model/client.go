// Package model maintains the conversational session with the remote
// multimodal model. It enforces a pacing floor between requests, builds
// multimodal message parts from capture input, and retries transient
// network failures before surfacing an error event.
package model

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/config"
	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/events"
)

// Fixed request policy. These are deliberate constants, not configuration.
const (
	pacingFloor   = 4000 * time.Millisecond
	sendTimeout   = 30000 * time.Millisecond
	maxImageChars = 200000
	maxRetries    = 2
)

// Input is one multimodal request. Audio carries a complete WAV file,
// Image a JPEG frame. Any combination of fields may be set.
type Input struct {
	Text  string
	Audio []byte
	Image []byte
}

// Client owns the model session. All methods are safe for concurrent use;
// sends are serialized so the pacing floor holds across callers.
type Client struct {
	bus       *events.Bus
	modelName string
	apiKey    string

	// sendMu serializes sendRealtimeInput end to end, including pacing
	// waits and retries.
	sendMu      sync.Mutex
	lastRequest time.Time

	mu        sync.Mutex
	transport transport
	mode      Mode
	history   []*genai.Content
	connected bool
}

// New creates a Client from config. No network activity happens until
// InitializeSession.
func New(cfg config.ModelConfig, bus *events.Bus) *Client {
	return &Client{
		bus:       bus,
		modelName: cfg.Name,
		apiKey:    cfg.APIKey,
		mode:      VoiceControlMode,
	}
}

// Mode returns the active mode.
func (c *Client) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches the active mode without rebuilding the transcript.
// Subsequent contextual instructions use the new mode.
func (c *Client) SetMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
}

// Connected reports whether a session is live.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// InitializeSession seeds a fresh two-turn transcript for mode and emits a
// connected event. It fails without a configured credential, and any
// failure leaves the client uninitialized and safe to retry.
func (c *Client) InitializeSession(ctx context.Context, mode Mode) error {
	if c.apiKey == "" {
		err := ErrNoCredential
		c.publish(events.ModelErrorPayload{Error: err.Error()})
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport == nil {
		tr, err := newGeminiTransport(ctx, c.apiKey, c.modelName)
		if err != nil {
			c.publish(events.ModelErrorPayload{Error: err.Error()})
			return err
		}
		c.transport = tr
	}

	c.mode = mode
	c.history = []*genai.Content{
		{
			Role:  string(genai.RoleUser),
			Parts: []*genai.Part{{Text: systemInstruction(mode)}},
		},
		{
			Role:  string(genai.RoleModel),
			Parts: []*genai.Part{{Text: acknowledgment(mode)}},
		},
	}
	c.connected = true

	slog.Info("model session initialized", "model", c.modelName, "mode", string(mode))
	c.publish(events.SessionConnectedPayload{Mode: string(mode), Model: c.modelName})
	return nil
}

// SendRealtimeInput sends one multimodal turn. Without a session it logs
// and returns nil. Calls are paced at least 4 s apart; oversized images
// are dropped rather than failing the request. Transient network failures
// are retried twice with exponential backoff, then surfaced as an error
// event.
func (c *Client) SendRealtimeInput(ctx context.Context, in Input) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		slog.Error("send dropped, session not initialized")
		return nil
	}
	mode := c.mode
	tr := c.transport
	c.mu.Unlock()

	parts, hasAudio, hasImage := buildParts(mode, in)
	if len(parts) == 0 {
		return nil
	}

	if wait := pacingFloor - time.Since(c.lastRequest); wait > 0 {
		slog.Debug("pacing model request", "wait", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.lastRequest = time.Now()

	c.mu.Lock()
	history := c.history
	c.mu.Unlock()

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		text, err := tr.generate(sendCtx, history, parts)
		cancel()

		if err == nil {
			c.recordTurn(parts, text)
			slog.Debug("model response",
				"duration", time.Since(start),
				"chars", len(text),
				"audio", hasAudio, "image", hasImage)
			c.publish(events.ModelResponsePayload{Content: text, Duration: time.Since(start)})
			return nil
		}

		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("request timeout after %s: %w", sendTimeout, err)
		}
		lastErr = err

		if !isNetworkError(err) || attempt == maxRetries {
			break
		}
		backoff := 1000 * time.Millisecond << attempt
		slog.Warn("transient model failure, retrying",
			"error", err, "attempt", attempt+1, "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	slog.Error("model request failed", "error", lastErr)
	c.publish(events.ModelErrorPayload{Error: lastErr.Error(), Attempts: maxRetries + 1})
	return lastErr
}

// Close discards the session and emits a disconnected event. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.history = nil
	c.mu.Unlock()

	if wasConnected {
		c.publish(events.SessionDisconnectedPayload{Reason: "closed"})
	}
}

// recordTurn appends the exchanged turns to the transcript.
func (c *Client) recordTurn(parts []*genai.Part, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return
	}
	c.history = append(c.history,
		&genai.Content{Role: string(genai.RoleUser), Parts: parts},
		&genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{{Text: reply}}},
	)
}

// buildParts assembles the outbound part sequence. An image whose base64
// encoding exceeds the size cutoff is dropped without failing the request.
// When any non-text part is present, a contextual instruction is appended
// last.
func buildParts(mode Mode, in Input) (parts []*genai.Part, hasAudio, hasImage bool) {
	if in.Text != "" {
		parts = append(parts, &genai.Part{Text: in.Text})
	}
	if len(in.Audio) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: "audio/wav", Data: in.Audio},
		})
		hasAudio = true
	}
	if len(in.Image) > 0 {
		if encoded := base64.StdEncoding.EncodedLen(len(in.Image)); encoded > maxImageChars {
			slog.Warn("dropping oversized image", "encoded_chars", encoded)
		} else {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: in.Image},
			})
			hasImage = true
		}
	}

	if hasAudio || hasImage {
		if instr := contextualInstruction(mode, hasAudio, hasImage); instr != "" {
			parts = append(parts, &genai.Part{Text: instr})
		}
	}
	return parts, hasAudio, hasImage
}

func (c *Client) publish(payload events.EventPayload) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.NewTypedEvent(events.SourceModel, payload))
}
