package main

import (
	"fmt"
	"sort"

	"dmf/cmd/dmf/ui"
	"dmf/internal/config"
	"dmf/internal/logging"
	"dmf/internal/resource"
	"dmf/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	initName string
	initDesc string
)

// initCmd creates a new workspace in the target directory.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a DMF workspace",
	Long: `Creates the workspace layout in the target directory:

  config.yaml      workspace configuration
  resourcedb.json  resource database
  files/           managed data files
  logs/            workspace logs

The workspace is registered in your per-user configuration (~/.dmf.yaml)
and becomes the default for subsequent commands.`,
	RunE: runInit,
}

// statusCmd shows workspace status.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace status and resource counts",
	RunE:  showStatus,
}

// workspacesCmd lists known workspaces.
var workspacesCmd = &cobra.Command{
	Use:   "workspaces",
	Short: "List workspaces registered for this user",
	RunE:  listWorkspaces,
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "Workspace name")
	initCmd.Flags().StringVar(&initDesc, "desc", "", "Workspace description")
}

func runInit(cmd *cobra.Command, args []string) error {
	root := resolveRoot()
	if workspace.IsInitialized(root) {
		fmt.Printf("Workspace already initialized at %s. Use 'dmf status' to inspect it.\n", root)
		return nil
	}

	ws, err := workspace.Init(root, initName, initDesc)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	// Logging becomes available the moment the layout exists.
	if err := logging.Initialize(ws.Root, verbose); err == nil {
		logging.Boot("Workspace initialized: %s", ws.Root)
	}

	fmt.Println(styles.Success.Render("✓") + " Workspace initialized")
	fmt.Printf("  Path: %s\n", ws.Root)
	fmt.Printf("  ID:   %s\n", ws.Config.ID)
	if ws.Config.Name != "" {
		fmt.Printf("  Name: %s\n", ws.Config.Name)
	}
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	st := ws.Status()

	fmt.Println(styles.Title.Render("DMF Workspace Status"))
	fmt.Printf("  Path:      %s\n", st.Root)
	fmt.Printf("  ID:        %s\n", st.Config.ID)
	if st.Config.Name != "" {
		fmt.Printf("  Name:      %s\n", st.Config.Name)
	}
	if st.Config.Description != "" {
		fmt.Printf("  Desc:      %s\n", st.Config.Description)
	}
	fmt.Printf("  Created:   %s\n", st.Config.Created.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Resources: %d\n", st.ResourceCount)

	if len(st.ByType) > 0 {
		table := ui.NewSimpleTable("", "type", "count")
		types := make([]resource.Type, 0, len(st.ByType))
		for t := range st.ByType {
			types = append(types, t)
		}
		sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
		for _, t := range types {
			table.AddRow(string(t), fmt.Sprintf("%d", st.ByType[t]))
		}
		fmt.Println()
		fmt.Print(table.View(styles))
	}
	return nil
}

func listWorkspaces(cmd *cobra.Command, args []string) error {
	g, err := config.Load()
	if err != nil {
		return err
	}
	if len(g.Workspaces) == 0 {
		fmt.Println("No workspaces registered. Run 'dmf init' to create one.")
		return nil
	}

	table := ui.NewSimpleTable("Workspaces", "", "path", "state")
	for _, root := range g.Workspaces {
		mark := " "
		if root == g.Workspace {
			mark = "*"
		}
		state := "ok"
		if !workspace.IsInitialized(root) {
			state = "missing"
		}
		table.AddRow(mark, root, state)
	}
	fmt.Print(table.View(styles))
	return nil
}
