// Package workspace manages the DMF storage root for one user/project:
// a directory holding config.yaml, the resource database (resourcedb.json),
// the managed files directory, and logs.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"dmf/internal/config"
	"dmf/internal/datafiles"
	"dmf/internal/logging"
	"dmf/internal/resource"
	"dmf/internal/store"
)

// Workspace directory layout.
const (
	ConfigFile   = "config.yaml"
	DatabaseFile = "resourcedb.json"
	FilesDir     = "files"
	LogsDir      = "logs"
)

// ErrNotInitialized is returned by Open on a directory without a workspace.
var ErrNotInitialized = errors.New("workspace not initialized")

// Config is the workspace configuration document (config.yaml).
type Config struct {
	ID          string    `yaml:"_id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Created     time.Time `yaml:"created"`
	Modified    time.Time `yaml:"modified"`
}

// Workspace is an open handle on one workspace directory. All resource and
// relation operations for a session go through it.
type Workspace struct {
	Root   string
	Config Config
	Store  *store.Store
	Files  *datafiles.Manager
}

// IsInitialized reports whether root contains a workspace.
func IsInitialized(root string) bool {
	_, err := os.Stat(filepath.Join(root, ConfigFile))
	return err == nil
}

// Init creates a new workspace at root and registers it in the per-user
// global configuration. Fails if the directory already holds one.
func Init(root, name, desc string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace path: %w", err)
	}
	if IsInitialized(abs) {
		return nil, fmt.Errorf("workspace already initialized at %s", abs)
	}

	for _, dir := range []string{abs, filepath.Join(abs, FilesDir), filepath.Join(abs, LogsDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	cfg := Config{
		ID:          resource.NewID(),
		Name:        name,
		Description: desc,
		Created:     now,
		Modified:    now,
	}
	if err := writeConfig(abs, cfg); err != nil {
		return nil, err
	}

	s, err := store.Open(filepath.Join(abs, DatabaseFile))
	if err != nil {
		return nil, err
	}

	// Register in the per-user workspace registry; a failure here leaves a
	// valid workspace, so it only warns.
	if g, err := config.Load(); err == nil {
		g.AddWorkspace(abs)
		if err := g.Save(); err != nil {
			logging.Get(logging.CategoryWorkspace).Warnf("Could not register workspace globally: %v", err)
		}
	} else {
		logging.Get(logging.CategoryWorkspace).Warnf("Could not load global config: %v", err)
	}

	logging.Workspace("Initialized workspace %s (%s) at %s", cfg.Name, cfg.ID, abs)
	return &Workspace{
		Root:   abs,
		Config: cfg,
		Store:  s,
		Files:  datafiles.NewManager(filepath.Join(abs, FilesDir)),
	}, nil
}

// Open loads an existing workspace.
func Open(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace path: %w", err)
	}
	if !IsInitialized(abs) {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, abs)
	}

	cfg, err := readConfig(abs)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(filepath.Join(abs, DatabaseFile))
	if err != nil {
		return nil, err
	}

	logging.WorkspaceDebug("Opened workspace %s at %s", cfg.Name, abs)
	return &Workspace{
		Root:   abs,
		Config: cfg,
		Store:  s,
		Files:  datafiles.NewManager(filepath.Join(abs, FilesDir)),
	}, nil
}

func writeConfig(root string, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode workspace config: %w", err)
	}
	path := filepath.Join(root, ConfigFile)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readConfig(root string) (Config, error) {
	path := filepath.Join(root, ConfigFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// NewOptions describes a resource to create through the workspace, the
// file-manager `new` contract: resource fields plus zero or more files.
type NewOptions struct {
	Type    resource.Type
	Name    string // becomes the first alias
	Desc    string
	Tags    []string
	Data    map[string]interface{}
	Files   []string
	Copy    bool // copy files into the workspace vs reference in place
}

// New creates a resource, imports its files, and adds it to the store.
func (w *Workspace) New(opts NewOptions) (*resource.Resource, error) {
	t := opts.Type
	if t == "" {
		t = resource.TypeData
	}

	r := resource.New(t)
	if opts.Name != "" {
		r.Aliases = append(r.Aliases, opts.Name)
	}
	if len(opts.Tags) > 0 {
		r.Tags = append(r.Tags, opts.Tags...)
	}
	r.Desc = opts.Desc
	if opts.Data != nil {
		r.Data = opts.Data
	}

	if err := w.Files.Attach(r, opts.Files, opts.Copy, ""); err != nil {
		return nil, err
	}
	if err := w.Store.Add(r); err != nil {
		// Don't leave orphaned copies behind a failed add.
		_ = w.Files.Remove(r)
		return nil, err
	}
	return r, nil
}

// Remove deletes a resource and its copied files.
func (w *Workspace) Remove(id string) error {
	r, ok := w.Store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err := w.Store.Remove(id); err != nil {
		return err
	}
	return w.Files.Remove(r)
}

// Status summarizes the workspace for reporting.
type Status struct {
	Root          string
	Config        Config
	ResourceCount int
	ByType        map[resource.Type]int
	PendingCount  int
}

// Status returns workspace metadata plus resource counts.
func (w *Workspace) Status() Status {
	return Status{
		Root:          w.Root,
		Config:        w.Config,
		ResourceCount: w.Store.Count(),
		ByType:        w.Store.CountByType(),
		PendingCount:  w.Store.PendingCount(),
	}
}
