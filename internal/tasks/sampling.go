package tasks

import (
	"context"

	"github.com/desertthunder/spotmix/internal/services"
)

const (
	// SampleCandidates is how many playlists are read when sampling.
	SampleCandidates = 4

	// MaxPoolSize caps the URIs collected before the final shuffle.
	MaxPoolSize = 400

	// PlaylistReadLimit is the page size used when reading a sampled playlist.
	PlaylistReadLimit = 100
)

// sample reads tracks from a random subset of candidates and returns a random selection of up to limit URIs.
//
// Candidates are shuffled and the first [SampleCandidates] are read; URIs are pooled until [MaxPoolSize],
// the pool is shuffled, and the first limit are kept. Unreadable playlists are skipped.
func (e *PlaylistEngine) sample(ctx context.Context, candidates []services.SpotifySimplePlaylist, market string, limit int) ([]string, error) {
	chosen := append([]services.SpotifySimplePlaylist(nil), candidates...)
	e.shuffle(len(chosen), func(i, j int) { chosen[i], chosen[j] = chosen[j], chosen[i] })
	if len(chosen) > SampleCandidates {
		chosen = chosen[:SampleCandidates]
	}

	pool := make([]string, 0, MaxPoolSize)
	for _, pl := range chosen {
		if len(pool) >= MaxPoolSize {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := e.catalog.PlaylistTracks(ctx, pl.ID, market, PlaylistReadLimit)
		if err != nil {
			e.logger.Warn("skipping unreadable playlist", "playlist", pl.ID, "error", err)
			continue
		}
		pool = appendURIs(pool, items, MaxPoolSize)
	}

	e.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > limit {
		pool = pool[:limit]
	}
	return pool, nil
}

// appendURIs appends the non-empty track URIs of items to dst until it holds n entries.
func appendURIs(dst []string, items []services.SpotifyPlaylistTrack, n int) []string {
	for _, it := range items {
		if len(dst) >= n {
			break
		}
		if it.Track != nil && it.Track.URI != "" {
			dst = append(dst, it.Track.URI)
		}
	}
	return dst
}

func trackURIs(tracks []services.SpotifyTrack) []string {
	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.URI != "" {
			uris = append(uris, t.URI)
		}
	}
	return uris
}
