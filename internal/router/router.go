// Package router decides whether a model reply is a structured command or
// conversational text. Commands are executed against the worker bridge as
// action or task envelopes; everything else passes through to the UI sink
// unchanged.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/bridge"
)

// Caller executes one request against the worker subprocess.
type Caller interface {
	Call(msg map[string]any) (bridge.Response, error)
}

// Sink receives router output. Implementations decide how feedback,
// execution results, and plain text reach the user.
type Sink interface {
	Feedback(message string)
	CommandExecuted(command string, params map[string]any)
	CommandError(command string, params map[string]any, err error)
	Text(content string)
}

// Command is a structured command parsed from a model reply. It is
// evaluated once and discarded.
type Command struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
}

// Router dispatches parsed commands to the worker bridge.
type Router struct {
	caller  Caller
	sink    Sink
	aliases map[string]string
}

func New(caller Caller, sink Sink) *Router {
	aliases := make(map[string]string, len(defaultAppAliases))
	for k, v := range defaultAppAliases {
		aliases[k] = v
	}
	return &Router{caller: caller, sink: sink, aliases: aliases}
}

// HandleReply inspects a model reply. If it embeds a command object, the
// command is dispatched and the surrounding text is discarded; otherwise
// the full reply is forwarded as plain text. A reply that fails to parse
// as a command is the normal conversational path, not an error.
func (r *Router) HandleReply(text string) {
	cmd, ok := extractCommand(text)
	if !ok {
		r.sink.Text(text)
		return
	}
	r.dispatch(cmd)
}

// extractCommand scans text for the first well-formed JSON object that
// carries a "command" key. Decoding starts at each brace so a command
// embedded in prose is still found.
func extractCommand(text string) (Command, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		var raw map[string]any
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		name, ok := raw["command"].(string)
		if !ok {
			continue
		}
		params, _ := raw["params"].(map[string]any)
		return Command{Command: name, Params: params}, true
	}
	return Command{}, false
}

func (r *Router) dispatch(cmd Command) {
	slog.Info("executing command", "command", cmd.Command)

	var err error
	switch strings.ToLower(cmd.Command) {
	case "open_app", "switch_app":
		err = r.openApp(stringParam(cmd.Params, "app", "app_name"))
	case "click":
		err = r.click(cmd.Params)
	case "type":
		err = r.typeText(stringParam(cmd.Params, "text"))
	case "scroll":
		err = r.scroll(stringParam(cmd.Params, "direction"))
	case "close":
		target := stringParam(cmd.Params, "target")
		if target == "" {
			target = "window"
		}
		err = r.runTask("Close the current " + target)
	case "navigate":
		err = r.runTask("Navigate to " + stringParam(cmd.Params, "url"))
	case "task":
		err = r.runTask(stringParam(cmd.Params, "task"))
	default:
		slog.Warn("unknown command, ignoring", "command", cmd.Command)
		return
	}

	if err != nil {
		slog.Error("command execution failed", "command", cmd.Command, "error", err)
		r.sink.CommandError(cmd.Command, cmd.Params, err)
		return
	}
	r.sink.CommandExecuted(cmd.Command, cmd.Params)
}

func (r *Router) openApp(app string) error {
	if app == "" {
		return errors.New("open_app command missing app name")
	}
	actual := r.resolveAlias(app)
	r.sink.Feedback(fmt.Sprintf("Opening %s...", actual))
	return r.callAction(map[string]any{"type": "open_app", "app_name": actual})
}

func (r *Router) click(params map[string]any) error {
	if idx, ok := params["element_index"].(float64); ok {
		r.sink.Feedback(fmt.Sprintf("Clicking element %d", int(idx)))
		return r.callAction(map[string]any{"type": "click", "element_index": int(idx)})
	}
	if desc := stringParam(params, "description"); desc != "" {
		return r.runTask("Click on " + desc)
	}
	return errors.New("click command missing element_index or description")
}

func (r *Router) typeText(text string) error {
	r.sink.Feedback("Typing: " + text)
	return r.callTask(fmt.Sprintf(`Type "%s" in the current focused element or search bar`, text))
}

func (r *Router) scroll(direction string) error {
	r.sink.Feedback("Scrolling " + direction)
	return r.callAction(map[string]any{"type": "scroll", "direction": direction})
}

func (r *Router) runTask(task string) error {
	r.sink.Feedback("Executing task: " + task)
	return r.callTask(task)
}

func (r *Router) callTask(task string) error {
	_, err := r.caller.Call(map[string]any{"type": "task", "task": task})
	return err
}

func (r *Router) callAction(action map[string]any) error {
	_, err := r.caller.Call(map[string]any{"type": "action", "action": action})
	return err
}

// stringParam returns the first present string value among keys.
func stringParam(params map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := params[k].(string); ok {
			return v
		}
	}
	return ""
}
