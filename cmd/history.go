package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/spotmix/internal/formatter"
	"github.com/desertthunder/spotmix/internal/models"
	"github.com/desertthunder/spotmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// History lists recorded generations, newest first, or exports them with --output.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.history()
	if err != nil {
		return err
	}
	if repo == nil {
		return fmt.Errorf("%w: history is disabled (set database.path)", shared.ErrMissingConfig)
	}

	criteria := map[string]any{"limit": shared.ClampInt(cmd.Int("limit"), 20, 1, 1000)}
	if mode := strings.ToLower(strings.TrimSpace(cmd.String("mode"))); mode != "" {
		if !models.Mode(mode).Valid() {
			return fmt.Errorf("%w: mode must be genre, random, top or trending", shared.ErrInvalidArgument)
		}
		criteria["mode"] = mode
	}
	if user := strings.TrimSpace(cmd.String("user")); user != "" {
		criteria["user_id"] = user
	}

	generations, err := repo.List(criteria)
	if err != nil {
		return err
	}

	items := make([]models.GenerationView, 0, len(generations))
	for _, g := range generations {
		items = append(items, g.View())
	}

	format := cmd.String("format")
	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteHistoryExport(items, format, output)
		if err != nil {
			return err
		}
		r.logger.Info("history exported", "path", path, "entries", len(items))
		return r.writePlain("✓ Exported %d entries to %s\n", len(items), path)
	}

	out, err := formatter.RenderHistory(items, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", out)
}
