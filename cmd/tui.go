package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/vidx/internal/shared"
	"github.com/desertthunder/vidx/internal/ui"
)

// TUI launches the interactive download manager.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	conn, err := r.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	list := r.taskList(conn, 0)
	if err := list.Attach(ctx); err != nil {
		r.logger.Warn("initial refresh failed", "error", err)
	}
	defer func() {
		list.Detach()
		list.Wait()
	}()

	model := ui.NewModel(ctx, list)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
