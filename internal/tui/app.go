// Package tui is the terminal log viewer for a single container.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/podlogs/internal/logview"
	"github.com/charliek/podlogs/internal/source"
)

// Run shows the log of src until the user quits or ctx is done
func Run(ctx context.Context, src source.Source, opts Options, viewOpts ...logview.Option) error {
	model := NewModel(ctx, src, opts, viewOpts...)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	_, err := p.Run()
	model.LogView().Close()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
