package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/spotmix/internal/services"
)

// BatchSize is the most URIs Spotify accepts per add-tracks call.
const BatchSize = 100

// MaterializeError reports a playlist that was created but only partly populated.
type MaterializeError struct {
	Playlist   *services.SpotifyPlaylist
	Added      int  // URIs added before the failing batch
	RolledBack bool // playlist was unfollowed after the failure
	Err        error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("failed to add tracks to playlist %s after %d added: %v", e.Playlist.ID, e.Added, e.Err)
}

func (e *MaterializeError) Unwrap() error {
	return e.Err
}

// Materialize creates a private playlist for userID and adds uris in order, [BatchSize] at a time.
//
// It is not idempotent and does not retry: the first failing batch stops the run with a [*MaterializeError].
// When the engine's rollback policy is on, the playlist is unfollowed before returning that error.
func (e *PlaylistEngine) Materialize(ctx context.Context, userID, name, description string, uris []string, progress chan<- ProgressUpdate) (*services.SpotifyPlaylist, error) {
	e.sendProgress(progress, createPlaylistUpdate(name))

	pl, err := e.catalog.CreatePlaylist(ctx, userID, services.CreatePlaylistRequest{
		Name:        name,
		Description: description,
		Public:      false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	if pl.Name == "" {
		pl.Name = name
	}
	e.sendProgress(progress, playlistCreatedUpdate(pl))

	total := (len(uris) + BatchSize - 1) / BatchSize
	added, step := 0, 0
	for chunk := range slices.Chunk(uris, BatchSize) {
		step++
		if _, err := e.catalog.AddTracks(ctx, pl.ID, chunk); err != nil {
			merr := &MaterializeError{Playlist: pl, Added: added, Err: err}
			e.logger.Error("batch add failed", "playlist", pl.ID, "batch", step, "added", added, "error", err)
			if e.opts.RollbackPartial {
				merr.RolledBack = e.rollback(ctx, pl.ID)
			}
			return pl, merr
		}
		added += len(chunk)
		e.sendProgress(progress, addTracksUpdate(step, total, added, len(uris)))
	}

	return pl, nil
}

func (e *PlaylistEngine) rollback(ctx context.Context, playlistID string) bool {
	if err := e.catalog.UnfollowPlaylist(context.WithoutCancel(ctx), playlistID); err != nil {
		e.logger.Warn("rollback failed", "playlist", playlistID, "error", err)
		return false
	}
	e.logger.Info("rolled back partial playlist", "playlist", playlistID)
	return true
}
