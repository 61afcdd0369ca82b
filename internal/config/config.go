// Package config manages the per-user global DMF configuration: the default
// workspace and the registry of known workspaces. The file lives at
// $DMF_HOME/.dmf.yaml, falling back to the user home directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/viper"
)

const fileName = ".dmf.yaml"

// Global is the per-user configuration document.
type Global struct {
	// Workspace is the default workspace path used when -w is not given.
	Workspace string `mapstructure:"workspace"`
	// Workspaces lists every workspace ever initialized by this user.
	Workspaces []string `mapstructure:"workspaces"`

	path string
}

// Path returns the global config file location. DMF_HOME overrides the home
// directory so tests and multi-profile setups can relocate it.
func Path() (string, error) {
	home := os.Getenv("DMF_HOME")
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot locate home directory: %w", err)
		}
	}
	return filepath.Join(home, fileName), nil
}

// Load reads the global configuration, returning an empty document when the
// file does not exist yet.
func Load() (*Global, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	g := &Global{path: path}
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return g, nil
		}
		return nil, fmt.Errorf("failed to read global config %s: %w", path, err)
	}
	if err := v.Unmarshal(g); err != nil {
		return nil, fmt.Errorf("failed to parse global config %s: %w", path, err)
	}
	return g, nil
}

// Save writes the configuration back to disk.
func (g *Global) Save() error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("workspace", g.Workspace)
	v.Set("workspaces", g.Workspaces)
	if err := v.WriteConfigAs(g.path); err != nil {
		return fmt.Errorf("failed to write global config %s: %w", g.path, err)
	}
	return nil
}

// AddWorkspace registers a workspace path and makes it the default.
func (g *Global) AddWorkspace(root string) {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	if !slices.Contains(g.Workspaces, abs) {
		g.Workspaces = append(g.Workspaces, abs)
	}
	g.Workspace = abs
}
