package main

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

//go:embed guide.md
var guideText string

// guideCmd renders the built-in user guide.
var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show the built-in user guide",
	RunE: func(cmd *cobra.Command, args []string) error {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			// Degrade to plain markdown when the terminal can't be probed.
			fmt.Print(guideText)
			return nil
		}
		out, err := renderer.Render(guideText)
		if err != nil {
			fmt.Print(guideText)
			return nil
		}
		fmt.Print(out)
		return nil
	},
}
