package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotmix/internal/shared"
	"github.com/desertthunder/spotmix/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for playlist generation.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	if err := ui.Run(ctx, engine, cmd.Int("limit")); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
