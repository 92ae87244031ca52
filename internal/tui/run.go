package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the full-screen game and blocks until the player quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		// Cancelled from outside (signal); not a failure.
		return nil
	}
	return err
}
