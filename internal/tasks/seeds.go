package tasks

import (
	"context"
	"slices"
)

// MaxSeedArtists leaves one of Spotify's five seed slots for the genre.
const MaxSeedArtists = 4

// ResolveSeeds looks up artist ids for g's curated names, in order.
//
// Misses and lookup errors are skipped; duplicates are dropped; at most [MaxSeedArtists] ids are returned.
// Unknown genres resolve to no ids. It never fails.
func (e *PlaylistEngine) ResolveSeeds(ctx context.Context, g Genre, progress chan<- ProgressUpdate) []string {
	names := g.SeedArtists()
	ids := make([]string, 0, MaxSeedArtists)

	for i, name := range names {
		if len(ids) >= MaxSeedArtists || ctx.Err() != nil {
			break
		}
		e.sendProgress(progress, resolveSeedUpdate(i+1, len(names), name))

		artist, err := e.catalog.SearchArtist(ctx, name)
		if err != nil {
			e.logger.Debug("artist lookup failed", "artist", name, "error", err)
			continue
		}
		if artist == nil || artist.ID == "" {
			e.logger.Debug("artist not found", "artist", name)
			continue
		}
		if slices.Contains(ids, artist.ID) {
			continue
		}
		ids = append(ids, artist.ID)
	}

	e.sendProgress(progress, seedsResolvedUpdate(ids))
	return ids
}
