package ui

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/fleetgrid/pkg/logger"
)

// Run starts the grid TUI and blocks until the user quits. Extra program
// options (custom IO, a fixed window size) are passed to tea.NewProgram.
func Run(ctx context.Context, opts Options, progOpts ...tea.ProgramOption) error {
	m, err := New(ctx, opts)
	if err != nil {
		return err
	}
	if opts.Width > 0 && opts.Height > 0 {
		progOpts = append(progOpts, tea.WithWindowSize(opts.Width, opts.Height))
	}
	progOpts = append(progOpts, tea.WithContext(ctx))

	prog := tea.NewProgram(m, progOpts...)
	final, err := prog.Run()
	if err != nil {
		return fmt.Errorf("running grid: %w", err)
	}
	if fm, ok := final.(*Model); ok && fm.Expired() {
		return ErrSessionExpired
	}
	logger.FromContext(ctx).V(1).Info("grid closed", logger.ResourceKey, opts.Resource.Name)
	return nil
}
