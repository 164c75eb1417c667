package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"vidfit/internal/model"
	"vidfit/internal/settings"
)

// Run launches the TUI for the provided input files and options.
func Run(ctx context.Context, files []string, opts model.CLIOptions, tuning settings.Tuning) error {
	m := NewModel(ctx, files, opts, tuning)
	prog := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		var failed []string
		for _, id := range fm.jobOrder {
			js := fm.jobs[id]
			if js != nil && js.err != nil {
				if js.path != "" {
					failed = append(failed, fmt.Sprintf("- %s: %s", js.path, js.err.Error()))
				} else {
					failed = append(failed, fmt.Sprintf("- %s", js.err.Error()))
				}
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d job(s) failed:\n%s", len(failed), strings.Join(failed, "\n"))
		}
	}
	return nil
}
