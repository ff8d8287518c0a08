package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/spotmix/internal/formatter"
	"github.com/desertthunder/spotmix/internal/models"
	"github.com/desertthunder/spotmix/internal/services"
	"github.com/desertthunder/spotmix/internal/shared"
	"github.com/desertthunder/spotmix/internal/tasks"
	"github.com/desertthunder/spotmix/internal/ui"
	"github.com/urfave/cli/v3"
)

// generateOutput is the --json shape of a single generation, matching the web API's success body.
type generateOutput struct {
	OK       bool                      `json:"ok"`
	Mode     models.Mode               `json:"mode"`
	Playlist *services.SpotifyPlaylist `json:"playlist"`
	Added    int                       `json:"added"`
	Strategy string                    `json:"strategy,omitempty"`
	TopTrack *services.SpotifyTrack    `json:"topTrack,omitempty"`
}

// GenerateGenre creates a personalized playlist for the genre argument.
func (r *Runner) GenerateGenre(ctx context.Context, cmd *cli.Command) error {
	return r.generate(ctx, cmd, tasks.Request{
		Mode:  models.ModePersonalized,
		Genre: strings.ToLower(strings.TrimSpace(cmd.StringArg("genre"))),
		Limit: cmd.Int("limit"),
		Name:  cmd.String("name"),
	})
}

// GenerateRandom creates a random catalog playlist for the genre argument, which is required.
func (r *Runner) GenerateRandom(ctx context.Context, cmd *cli.Command) error {
	genre := strings.TrimSpace(cmd.StringArg("genre"))
	if genre == "" {
		return fmt.Errorf("%w: genre", shared.ErrMissingArgument)
	}
	return r.generate(ctx, cmd, tasks.Request{
		Mode:  models.ModeCatalogRandom,
		Genre: strings.ToLower(genre),
		Limit: cmd.Int("limit"),
		Name:  cmd.String("name"),
	})
}

// GenerateTop creates a playlist of the user's top tracks over --range.
func (r *Runner) GenerateTop(ctx context.Context, cmd *cli.Command) error {
	timeRange := cmd.String("range")
	if _, ok := tasks.RangeLabel(timeRange); !ok {
		return fmt.Errorf("%w: range must be short_term, medium_term or long_term", shared.ErrInvalidArgument)
	}
	return r.generate(ctx, cmd, tasks.Request{
		Mode:      models.ModeTopTracks,
		TimeRange: timeRange,
		Limit:     cmd.Int("limit"),
		Name:      cmd.String("name"),
	})
}

// GenerateTrending copies the top editorial trending playlist.
func (r *Runner) GenerateTrending(ctx context.Context, cmd *cli.Command) error {
	return r.generate(ctx, cmd, tasks.Request{
		Mode:  models.ModeTrending,
		Limit: cmd.Int("limit"),
		Name:  cmd.String("name"),
	})
}

func (r *Runner) generate(ctx context.Context, cmd *cli.Command, req tasks.Request) error {
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	progress, wait := r.printProgress(!asJSON)
	res, err := engine.Generate(ctx, req, progress)
	wait()
	if err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(generateOutput{
			OK:       true,
			Mode:     res.Mode,
			Playlist: res.Playlist,
			Added:    res.Added,
			Strategy: res.Strategy,
			TopTrack: res.TopTrack,
		}, true)
	}

	source := res.Strategy
	if res.Source != "" {
		source = res.Source
	}
	r.writePlainln("%s", ui.Success("✓ Playlist created"))
	r.writePlain("%s", formatter.SummarizePlaylist(res.Playlist, res.Added, source, res.TopTrack))
	return nil
}

// printProgress drains engine progress updates onto the output. wait closes the channel and blocks until
// every queued update has been written.
func (r *Runner) printProgress(show bool) (chan tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug("progress", "phase", update.Phase, "step", update.Step, "total", update.Total)
			if show && update.Message != "" {
				r.writePlain("%s %s\n", ui.Muted("→"), update.Message)
			}
		}
	}()

	return progress, func() {
		close(progress)
		<-done
	}
}

// batchEntry is one entry of a batch file.
type batchEntry struct {
	Mode  string `json:"mode"`
	Genre string `json:"genre,omitempty"`
	Range string `json:"range,omitempty"`
	Limit int    `json:"limit,omitempty"`
	Name  string `json:"name,omitempty"`
}

// readBatchFile parses a JSON array of batch entries into engine requests.
func readBatchFile(path string) ([]tasks.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var entries []batchEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: batch file must be a JSON array: %v", shared.ErrInvalidInput, err)
	}

	reqs := make([]tasks.Request, 0, len(entries))
	for i, entry := range entries {
		mode := models.Mode(strings.ToLower(strings.TrimSpace(entry.Mode)))
		if !mode.Valid() {
			return nil, fmt.Errorf("%w: entry %d has unknown mode %q", shared.ErrInvalidInput, i+1, entry.Mode)
		}
		if mode == models.ModeCatalogRandom && strings.TrimSpace(entry.Genre) == "" {
			return nil, fmt.Errorf("%w: entry %d needs a genre", shared.ErrMissingArgument, i+1)
		}
		if mode == models.ModeTopTracks {
			if entry.Range == "" {
				entry.Range = tasks.ShortTerm
			}
			if _, ok := tasks.RangeLabel(entry.Range); !ok {
				return nil, fmt.Errorf("%w: entry %d has invalid range %q", shared.ErrInvalidArgument, i+1, entry.Range)
			}
		}
		reqs = append(reqs, tasks.Request{
			Mode:      mode,
			Genre:     entry.Genre,
			Limit:     entry.Limit,
			Name:      entry.Name,
			TimeRange: entry.Range,
		})
	}
	return reqs, nil
}

// GenerateBatch runs every request in the batch file through a worker pool.
func (r *Runner) GenerateBatch(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: batch file", shared.ErrMissingArgument)
	}

	reqs, err := readBatchFile(path)
	if err != nil {
		return err
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	progress, wait := r.printProgress(!asJSON)
	batch, err := engine.BatchGenerate(ctx, progress, reqs, tasks.BatchOpts{
		NumWorkers:   cmd.Int("workers"),
		RateLimit:    cmd.Float("rate"),
		ManifestPath: cmd.String("manifest"),
	})
	wait()
	if batch == nil {
		return err
	}

	if asJSON {
		if jerr := r.writeJSON(batch.Manifest(), true); jerr != nil {
			return jerr
		}
		return err
	}

	r.writePlainln("%s", ui.Title(fmt.Sprintf("Batch: %d/%d succeeded", batch.Succeeded, batch.Total)))
	for _, item := range batch.Items {
		if item.Error != nil {
			r.writePlain("%s #%d %s: %v\n", ui.Failure("✗"), item.Index+1, item.Request.Mode, item.Error)
			continue
		}
		r.writePlain("%s #%d %s (%d tracks) %s\n", ui.Success("✓"), item.Index+1,
			item.Result.Playlist.Name, item.Result.Added, formatter.PlaylistURL(item.Result.Playlist))
	}
	if batch.ManifestPath != "" {
		r.writePlain("\nManifest written to %s\n", batch.ManifestPath)
	}
	return err
}
