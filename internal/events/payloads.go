package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// =============================================================================
// SESSION EVENTS
// =============================================================================

type SessionConnectedPayload struct {
	Mode  string `json:"mode"`
	Model string `json:"model,omitempty"`
}

func (SessionConnectedPayload) EventType() EventType { return EventSessionConnected }

type SessionDisconnectedPayload struct {
	Reason string `json:"reason,omitempty"`
}

func (SessionDisconnectedPayload) EventType() EventType { return EventSessionDisconnected }

// =============================================================================
// MODEL EVENTS
// =============================================================================

type ModelResponsePayload struct {
	Content  string        `json:"content"`
	Duration time.Duration `json:"duration,omitempty"`
}

func (ModelResponsePayload) EventType() EventType { return EventModelResponse }

type ModelErrorPayload struct {
	Error    string `json:"error"`
	Attempts int    `json:"attempts,omitempty"`
}

func (ModelErrorPayload) EventType() EventType { return EventModelError }

// =============================================================================
// COMMAND EVENTS
// =============================================================================

type CommandFeedbackPayload struct {
	Message string `json:"message"`
}

func (CommandFeedbackPayload) EventType() EventType { return EventCommandFeedback }

type CommandExecutedPayload struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

func (CommandExecutedPayload) EventType() EventType { return EventCommandExecuted }

type CommandErrorPayload struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
	Error   string         `json:"error"`
}

func (CommandErrorPayload) EventType() EventType { return EventCommandError }

// =============================================================================
// UI EVENTS
// =============================================================================

// UITextPayload is the shape the UI sink consumes: a "text" entry for model
// replies and a "system" entry for status/progress lines.
type UITextPayload struct {
	Kind    string `json:"type"`
	Content string `json:"content"`
}

func (UITextPayload) EventType() EventType { return EventUIText }

// =============================================================================
// BRIDGE EVENTS
// =============================================================================

type BridgeDisconnectedPayload struct {
	Reason string `json:"reason,omitempty"`
}

func (BridgeDisconnectedPayload) EventType() EventType { return EventBridgeDisconnected }

// =============================================================================
// CAPTURE EVENTS
// =============================================================================

// CaptureBatchPayload carries sizes only; raw frames never transit the bus.
type CaptureBatchPayload struct {
	ImageBytes int `json:"image_bytes,omitempty"`
	AudioBytes int `json:"audio_bytes,omitempty"`
}

func (CaptureBatchPayload) EventType() EventType { return EventCaptureBatch }

// =============================================================================
// TYPED EVENT CONSTRUCTORS
// =============================================================================

func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

func NewTypedEventWithSession(source EventSource, payload EventPayload, sessionID string) Event {
	return Event{
		ID:        generateEventID(),
		SessionID: sessionID,
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// =============================================================================
// TYPED PAYLOAD EXTRACTORS
// =============================================================================

func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

func GetModelResponsePayload(e Event) (ModelResponsePayload, bool) {
	return ExtractPayload[ModelResponsePayload](e)
}

func GetModelErrorPayload(e Event) (ModelErrorPayload, bool) {
	return ExtractPayload[ModelErrorPayload](e)
}

func GetCommandFeedbackPayload(e Event) (CommandFeedbackPayload, bool) {
	return ExtractPayload[CommandFeedbackPayload](e)
}

func GetCommandExecutedPayload(e Event) (CommandExecutedPayload, bool) {
	return ExtractPayload[CommandExecutedPayload](e)
}

func GetCommandErrorPayload(e Event) (CommandErrorPayload, bool) {
	return ExtractPayload[CommandErrorPayload](e)
}

func GetUITextPayload(e Event) (UITextPayload, bool) {
	return ExtractPayload[UITextPayload](e)
}

func GetSessionConnectedPayload(e Event) (SessionConnectedPayload, bool) {
	return ExtractPayload[SessionConnectedPayload](e)
}
