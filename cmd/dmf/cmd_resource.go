package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"dmf/cmd/dmf/ui"
	"dmf/internal/filter"
	"dmf/internal/resource"
	"dmf/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	registerType   string
	registerName   string
	registerDesc   string
	registerTags   []string
	registerNoCopy bool

	lsFilter     string
	lsIgnoreCase bool
	lsMeta       []string

	rmFilter string
)

// registerCmd creates a resource from one or more files.
var registerCmd = &cobra.Command{
	Use:   "register <file>...",
	Short: "Register files as a new resource",
	Long: `Creates a resource and associates the given files with it.

By default files are copied into workspace storage, so the resource outlives
the originals. With --no-copy only the external path is recorded: the
resource's file content then depends on that path staying valid and
unchanged, and no integrity check is ever made.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRegister,
}

// lsCmd lists resources.
var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List resources, optionally filtered",
	Long: `Lists resources. --filter takes a JSON filter document:

  dmf ls --filter '{"type": "data"}'
  dmf ls --filter '{"tags": "steam"}'
  dmf ls --filter '{"aliases": "~pump.*"}' --ignore-case
  dmf ls --filter '{"data.points": {"$gt": 10}}'

A "~" prefix marks a regex value; a "!" key suffix requires every item of a
list field to match; boolean true/false test field presence.`,
	RunE: runLs,
}

// infoCmd shows one resource document.
var infoCmd = &cobra.Command{
	Use:   "info <id-prefix>",
	Short: "Show the full document of a resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

// filesCmd lists the data files of a resource.
var filesCmd = &cobra.Command{
	Use:   "files <id-prefix>",
	Short: "List the data files associated with a resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runFiles,
}

// rmCmd removes resources by id or filter.
var rmCmd = &cobra.Command{
	Use:   "rm [<id>]",
	Short: "Remove a resource by id, or resources by filter",
	RunE:  runRm,
}

func init() {
	registerCmd.Flags().StringVar(&registerType, "type", string(resource.TypeData), "Resource type")
	registerCmd.Flags().StringVar(&registerName, "name", "", "Resource name (first alias)")
	registerCmd.Flags().StringVar(&registerDesc, "desc", "", "Resource description")
	registerCmd.Flags().StringSliceVar(&registerTags, "tags", nil, "Tags")
	registerCmd.Flags().BoolVar(&registerNoCopy, "no-copy", false, "Reference files in place instead of copying")

	lsCmd.Flags().StringVar(&lsFilter, "filter", "", "JSON filter document")
	lsCmd.Flags().BoolVar(&lsIgnoreCase, "ignore-case", false, "Case-insensitive regex matching")
	lsCmd.Flags().StringSliceVar(&lsMeta, "meta", nil, "Extra resource fields to show per row")

	rmCmd.Flags().StringVar(&rmFilter, "filter", "", "JSON filter document")
}

func runRegister(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}

	t := resource.Type(registerType)
	if !resource.ValidType(t) {
		return fmt.Errorf("unknown resource type %q (valid: %v)", registerType, resource.Types())
	}

	r, err := ws.New(workspace.NewOptions{
		Type:  t,
		Name:  registerName,
		Desc:  registerDesc,
		Tags:  registerTags,
		Files: args,
		Copy:  !registerNoCopy,
	})
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}

	fmt.Println(styles.Success.Render("✓") + " Resource registered")
	fmt.Printf("  ID:    %s\n", r.ID)
	fmt.Printf("  Type:  %s\n", r.Type)
	if r.Name() != "" {
		fmt.Printf("  Name:  %s\n", r.Name())
	}
	fmt.Printf("  Files: %d\n", len(r.DataFiles))
	return nil
}

func parseFilter(s string) (filter.Filter, error) {
	if s == "" {
		return nil, nil
	}
	var f filter.Filter
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return nil, fmt.Errorf("bad filter document: %w", err)
	}
	return f, nil
}

func runLs(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}

	f, err := parseFilter(lsFilter)
	if err != nil {
		return err
	}
	rs, err := ws.Store.Find(f, filter.Options{IgnoreCase: lsIgnoreCase})
	if err != nil {
		return err
	}
	if len(rs) == 0 {
		fmt.Println("No resources found.")
		return nil
	}

	if len(lsMeta) > 0 {
		table := ui.NewSimpleTable("", "id", "type", "name", "meta")
		for _, r := range rs {
			doc, err := r.Doc()
			if err != nil {
				return err
			}
			parts := make([]string, 0, len(lsMeta))
			for _, key := range lsMeta {
				if v, ok := doc[key]; ok {
					parts = append(parts, fmt.Sprintf("%s=%v", key, v))
				}
			}
			table.AddRow(r.ID[:8], string(r.Type), r.Name(), strings.Join(parts, " "))
		}
		fmt.Print(table.View(styles))
		return nil
	}

	fmt.Print(resourceTable(rs).View(styles))
	return nil
}

func resourceTable(rs []*resource.Resource) *ui.SimpleTable {
	table := ui.NewSimpleTable("", "id", "type", "name", "tags", "files", "relations")
	for _, r := range rs {
		table.AddRow(
			r.ID[:8],
			string(r.Type),
			r.Name(),
			strings.Join(r.Tags, ","),
			fmt.Sprintf("%d", len(r.DataFiles)),
			fmt.Sprintf("%d", len(r.Relations)),
		)
	}
	return table
}

// resolveOne finds exactly one resource by id prefix, reporting ambiguity.
func resolveOne(ws *workspace.Workspace, prefix string) (*resource.Resource, error) {
	matches := ws.Store.FindByIDPrefix(prefix)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no resource matches id prefix %q", prefix)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, r := range matches {
			ids[i] = r.ID[:12]
		}
		return nil, fmt.Errorf("id prefix %q is ambiguous: %s", prefix, strings.Join(ids, ", "))
	}
}

func runInfo(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	r, err := resolveOne(ws, args[0])
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}

func runFiles(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	r, err := resolveOne(ws, args[0])
	if err != nil {
		return err
	}
	if len(r.DataFiles) == 0 {
		fmt.Println("No data files.")
		return nil
	}

	table := ui.NewSimpleTable("", "path", "mode", "sha1")
	for _, df := range r.DataFiles {
		mode := "copy"
		if !df.IsCopy {
			mode = "ref"
		}
		sum := df.SHA1
		if len(sum) > 12 {
			sum = sum[:12]
		}
		table.AddRow(ws.Files.Resolve(df), mode, sum)
	}
	fmt.Print(table.View(styles))
	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}

	if rmFilter != "" {
		if len(args) > 0 {
			return fmt.Errorf("give either an id or --filter, not both")
		}
		f, err := parseFilter(rmFilter)
		if err != nil {
			return err
		}
		// Collect matches first so copied files can be cleaned up too.
		matches, err := ws.Store.Find(f, filter.Options{})
		if err != nil {
			return err
		}
		for _, r := range matches {
			if err := ws.Remove(r.ID); err != nil {
				return err
			}
		}
		fmt.Printf("Removed %d resources.\n", len(matches))
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("usage: dmf rm <id> | dmf rm --filter <json>")
	}
	r, err := resolveOne(ws, args[0])
	if err != nil {
		return err
	}
	if err := ws.Remove(r.ID); err != nil {
		return err
	}
	fmt.Printf("Removed resource %s.\n", r.ID)
	return nil
}
