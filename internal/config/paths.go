package config

import (
	"os"
	"path/filepath"
)

// SidekickPath returns the root directory for sidekick data.
// It uses $SIDEKICK_PATH if set, otherwise defaults to ~/.sidekick.
func SidekickPath() string {
	if v := os.Getenv("SIDEKICK_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".sidekick")
	}
	return filepath.Join(home, ".sidekick")
}

// ConfigPath returns the path to the sidekick config file.
func ConfigPath() string {
	return filepath.Join(SidekickPath(), "config.jsonc")
}

// DotenvPath returns the path to the sidekick .env file.
func DotenvPath() string {
	return filepath.Join(SidekickPath(), ".env")
}

// HeartbeatPath returns the path to the daemon heartbeat file.
func HeartbeatPath() string {
	return filepath.Join(SidekickPath(), "sidekick.heartbeat")
}
