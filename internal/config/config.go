package config

import "time"

// Config is the root configuration for the sidekick daemon.
type Config struct {
	Model   ModelConfig   `json:"model"`
	Capture CaptureConfig `json:"capture"`
	Worker  WorkerConfig  `json:"worker"`
	Gateway GatewayConfig `json:"gateway"`
	Events  EventsConfig  `json:"events"`
	Router  RouterConfig  `json:"router"`
}

// ModelConfig configures the remote multimodal model session.
type ModelConfig struct {
	Name   string `json:"name"`              // model name (default: gemini-2.5-flash-lite)
	APIKey string `json:"api_key,omitempty"` // direct key or ${{ .Env.VAR }} template
	Mode   string `json:"mode,omitempty"`    // initial mode: "interview" or "voice_control"
}

// CaptureConfig configures the capture boundary.
type CaptureConfig struct {
	Interval  Duration `json:"interval,omitempty"`   // cadence of capture batches
	ReplayDir string   `json:"replay_dir,omitempty"` // directory for the file-backed source
}

// WorkerConfig configures the OS-automation worker subprocess.
type WorkerConfig struct {
	Command      string   `json:"command"`
	Args         []string `json:"args,omitempty"`
	ReadyTimeout Duration `json:"ready_timeout,omitempty"`
}

// GatewayConfig holds the UI gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int    `json:"buffer_size"`
	LogDir     string `json:"log_dir,omitempty"` // JSONL diagnostics log (empty = disabled)
}

// RouterConfig configures the command router.
type RouterConfig struct {
	AliasFile string `json:"alias_file,omitempty"` // optional YAML app-alias overrides
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
