package main

import (
	"context"
	"fmt"
	"strings"

	"dmf/cmd/dmf/ui"
	"dmf/internal/filter"
	"dmf/internal/graph"
	"dmf/internal/logging"
	"dmf/internal/store"
	"dmf/internal/workspace"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// shellCmd starts the interactive shell: the same operations as the CLI,
// dispatched from a prompt inside one long-lived session.
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive DMF shell",
	Long: `Starts an interactive shell over the workspace. The resource database is
watched for external changes, so edits made by other processes become
visible without restarting.

Commands: list [filter-json], status, related <id> [in], find <filter-json>,
help, exit.`,
	RunE: runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}

	watcher, err := store.NewWatcher(ws.Store)
	if err != nil {
		return fmt.Errorf("failed to create database watcher: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start database watcher: %w", err)
	}
	defer watcher.Stop()

	logging.Shell("Shell session started for %s", ws.Root)

	m := newShellModel(ws)
	_, err = tea.NewProgram(m).Run()
	logging.Shell("Shell session ended")
	return err
}

// shellModel is the bubbletea model for the interactive shell.
type shellModel struct {
	ws     *workspace.Workspace
	input  textinput.Model
	output []string
	styles ui.Styles
	quit   bool
}

func newShellModel(ws *workspace.Workspace) shellModel {
	ti := textinput.New()
	ti.Prompt = "dmf> "
	ti.Placeholder = "help"
	ti.Focus()

	name := ws.Config.Name
	if name == "" {
		name = ws.Root
	}
	return shellModel{
		ws:     ws,
		input:  ti,
		styles: ui.NewStyles(),
		output: []string{"DMF shell, workspace " + name + ". Type 'help' for commands."},
	}
}

func (m shellModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			m.quit = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			m.output = append(m.output, m.styles.Prompt.Render("dmf> ")+line)
			out, quit := m.dispatch(line)
			if out != "" {
				m.output = append(m.output, out)
			}
			if quit {
				m.quit = true
				return m, tea.Quit
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m shellModel) View() string {
	if m.quit {
		return strings.Join(m.output, "\n") + "\n"
	}
	// Keep the tail of the transcript visible above the prompt.
	lines := m.output
	if len(lines) > 20 {
		lines = lines[len(lines)-20:]
	}
	return strings.Join(lines, "\n") + "\n\n" + m.input.View() + "\n"
}

// dispatch routes one shell command; each maps 1:1 to a store/workspace
// operation. Returns the rendered output and whether to quit.
func (m shellModel) dispatch(line string) (string, bool) {
	fields := strings.Fields(line)
	verb := fields[0]
	rest := strings.TrimSpace(strings.TrimPrefix(line, verb))

	logging.Shell("Command: %s", line)

	switch verb {
	case "exit", "quit":
		return "bye", true

	case "help":
		return shellHelp, false

	case "status":
		st := m.ws.Status()
		return fmt.Sprintf("workspace %s: %d resources, %d pending",
			st.Root, st.ResourceCount, st.PendingCount), false

	case "list", "ls", "find":
		var f filter.Filter
		if rest != "" {
			var err error
			f, err = parseFilter(rest)
			if err != nil {
				return m.styles.Error.Render(err.Error()), false
			}
		}
		rs, err := m.ws.Store.Find(f, filter.Options{})
		if err != nil {
			return m.styles.Error.Render(err.Error()), false
		}
		if len(rs) == 0 {
			return "no resources found", false
		}
		return resourceTable(rs).View(m.styles), false

	case "related":
		if len(fields) < 2 {
			return "usage: related <id-prefix> [in]", false
		}
		r, err := resolveOne(m.ws, fields[1])
		if err != nil {
			return m.styles.Error.Render(err.Error()), false
		}
		outgoing := !(len(fields) > 2 && fields[2] == "in")
		hits, err := graph.Related(m.ws.Store, r, graph.Options{
			Outgoing: outgoing,
			Meta:     []string{"aliases", "type"},
		})
		if err != nil {
			return m.styles.Error.Render(err.Error()), false
		}
		if len(hits) == 0 {
			return "no related resources", false
		}
		var sb strings.Builder
		for _, h := range hits {
			fmt.Fprintf(&sb, "%*s%s %s\n", h.Depth*2, "", h.Triple.String(), formatMeta(h.Meta))
		}
		return strings.TrimRight(sb.String(), "\n"), false

	default:
		return m.styles.Error.Render("unknown command: " + verb + " (try 'help')"), false
	}
}

const shellHelp = `commands:
  list [filter-json]       list resources (alias: ls, find)
  status                   workspace summary
  related <id-prefix> [in] traverse relations (outgoing; 'in' for incoming)
  help                     this help
  exit                     leave the shell`
