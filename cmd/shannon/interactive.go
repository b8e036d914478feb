package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"shannon/cmd/shannon/tui"
	"shannon/cmd/shannon/ui"
	"shannon/internal/generation"
	"shannon/internal/submission"
)

// runInteractive starts the TUI against the configured endpoint.
func runInteractive(cmd *cobra.Command, args []string) error {
	policy, err := submission.ParseFailurePolicy(cfg.Client.FailurePolicy)
	if err != nil {
		return err
	}

	model := tui.New(tui.Options{
		Generator:     generation.NewClient(cfg.Client.Endpoint, cfg.GetClientTimeout()),
		Policy:        policy,
		Styles:        ui.NewStyles(ui.ThemeByName(cfg.UI.Theme)),
		ToastDuration: cfg.GetToastDuration(),
		StartDir:      cfg.UI.StartDir,
		Watch:         true,
	})
	defer model.Shutdown()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interactive session: %w", err)
	}
	return nil
}
