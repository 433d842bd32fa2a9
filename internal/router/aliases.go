package router

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultAppAliases maps common spoken app names to the names the worker
// resolves. Keys are lowercase.
var defaultAppAliases = map[string]string{
	"visual studio code": "Code",
	"vs code":            "Code",
	"vscode":             "Code",
	"chrome":             "Google Chrome",
	"firefox":            "Firefox",
	"terminal":           "Terminal",
	"finder":             "Finder",
	"safari":             "Safari",
}

// LoadAliases merges alias overrides from a YAML file of
// spoken-name: app-name pairs on top of the defaults.
func (r *Router) LoadAliases(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read alias file: %w", err)
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse alias file %s: %w", path, err)
	}

	for spoken, app := range overrides {
		r.aliases[strings.ToLower(spoken)] = app
	}
	return nil
}

func (r *Router) resolveAlias(app string) string {
	if actual, ok := r.aliases[strings.ToLower(app)]; ok {
		return actual
	}
	return app
}
