package main

import (
	"fmt"
	"os"

	"dmf/cmd/dmf/ui"
	"dmf/internal/config"
	"dmf/internal/logging"
	"dmf/internal/workspace"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool
	wsPath  string

	// Logger for CLI-level reporting
	logger *zap.Logger

	styles = ui.NewStyles()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dmf",
	Short: "dmf - data management framework for process-modeling workspaces",
	Long: `dmf manages versioned resources, the relations between them, and their
data files inside a workspace directory.

A workspace holds a config file, a single JSON resource database, and a
directory of managed data files. Resources are typed documents (code, data,
notebooks, flowsheets, ...) linked by directional relations (derived,
contains, uses, version) that can be traversed from either endpoint.

Run 'dmf init' in a project directory to get started, or 'dmf guide' for
the built-in documentation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// Workspace logging only applies once a workspace exists.
		if root := resolveRoot(); workspace.IsInitialized(root) {
			if err := logging.Initialize(root, verbose); err != nil {
				logger.Warn("workspace logging unavailable", zap.Error(err))
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&wsPath, "workspace", "w", "", "Workspace directory (default: configured or current)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(workspacesCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(relateCmd)
	rootCmd.AddCommand(relatedCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(guideCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveRoot picks the workspace directory: -w flag, then DMF_WORKSPACE,
// then the per-user default, then the current directory.
func resolveRoot() string {
	if wsPath != "" {
		return wsPath
	}
	if env := os.Getenv("DMF_WORKSPACE"); env != "" {
		return env
	}
	if g, err := config.Load(); err == nil && g.Workspace != "" {
		if workspace.IsInitialized(g.Workspace) {
			return g.Workspace
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// openWorkspace opens the resolved workspace or explains how to create one.
func openWorkspace() (*workspace.Workspace, error) {
	root := resolveRoot()
	ws, err := workspace.Open(root)
	if err != nil {
		return nil, fmt.Errorf("no workspace at %s (run 'dmf init' first): %w", root, err)
	}
	return ws, nil
}
