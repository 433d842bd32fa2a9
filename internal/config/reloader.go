package config

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ReloadListener observes a completed reload. prev is the configuration that
// was live before the swap, next the one that replaced it.
type ReloadListener func(prev, next *Config)

// Reloader swaps the live daemon configuration on demand, typically from a
// SIGHUP handler. Each reload re-reads the .env file in override mode first,
// so a rotated API key in either file is picked up by the next model session.
type Reloader struct {
	configPath string
	dotenvPath string
	current    atomic.Pointer[Config]

	mu        sync.Mutex // serializes reloads and listener registration
	listeners []ReloadListener
}

// NewReloader creates a Reloader with the given initial config.
func NewReloader(configPath, dotenvPath string, initial *Config) *Reloader {
	r := &Reloader{
		configPath: configPath,
		dotenvPath: dotenvPath,
	}
	r.current.Store(initial)
	return r
}

// Current returns the live config (lock-free atomic read).
func (r *Reloader) Current() *Config {
	return r.current.Load()
}

// OnReload registers a listener invoked after each successful reload.
func (r *Reloader) OnReload(fn ReloadListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Reload re-reads the .env file and the config file, swaps the result in,
// and notifies listeners with the previous and new config. A failed read
// leaves the live config untouched.
func (r *Reloader) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ReloadDotenv(r.dotenvPath); err != nil {
		return fmt.Errorf("reload dotenv: %w", err)
	}

	// Load re-expands ${{ .Env.VAR }} templates against the refreshed env.
	next, err := Load(r.configPath)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	prev := r.current.Swap(next)
	r.logTransitions(prev, next)

	for _, fn := range r.listeners {
		fn(prev, next)
	}
	return nil
}

// logTransitions reports what the reload changed. Mode and credential
// changes apply live; the gateway listener and worker command only change
// on the next daemon start.
func (r *Reloader) logTransitions(prev, next *Config) {
	if prev == nil {
		slog.Info("config reloaded")
		return
	}
	if prev.Model.Mode != next.Model.Mode {
		slog.Info("config reload changes mode", "from", prev.Model.Mode, "to", next.Model.Mode)
	}
	if prev.Model.APIKey != next.Model.APIKey {
		slog.Info("config reload rotates model credential")
	}
	if prev.Gateway != next.Gateway {
		slog.Warn("gateway address change takes effect on restart",
			"host", next.Gateway.Host, "port", next.Gateway.Port)
	}
	if prev.Worker.Command != next.Worker.Command {
		slog.Warn("worker command change takes effect on restart", "command", next.Worker.Command)
	}
	slog.Info("config reloaded")
}
