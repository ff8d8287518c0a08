// Package tasks generates Spotify playlists with real-time progress reporting.
//
// # Modes
//
// [PlaylistEngine] exposes four modes, all dispatched by [PlaylistEngine.Generate]:
//
//  1. [PlaylistEngine.Personalized] : recommendations seeded by a genre and its curated artists
//     - Resolves up to four artist ids ([PlaylistEngine.ResolveSeeds])
//     - Retries genre-only when the seeded call errors
//     - Falls back to the seed artists' top tracks
//
//  2. [PlaylistEngine.CatalogRandom] : random picks for a genre from the wider catalog
//     - Validates the seed token against the available genre seeds
//     - Falls back to sampling browse-category playlists, then searched playlists
//
//  3. [PlaylistEngine.TopTracks] : the user's most played tracks over a time range
//
//  4. [PlaylistEngine.Trending] : a copy of an editorial chart
//     - Tries [EditorialPlaylists] in order, then a ranked playlist search
//     - Surfaces the source's first track as [Result.TopTrack]
//
// # Fallback Chains
//
// Every mode's retrieval is a [Chain] of named [Strategy] values run in order. Errors and empty results advance
// the chain; the first non-empty result wins. Exhaustion is reported as shared.ErrNoTracks.
//
// # Materialization
//
// [PlaylistEngine.Materialize] creates one private playlist and adds tracks in batches of [BatchSize].
// A failing batch stops the run with a [MaterializeError]; with Options.RollbackPartial the playlist is unfollowed.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # History
//
// The optional [Recorder] interface receives a models.Generation for every successful run.
// Recording errors are logged and never fail a generation.
package tasks
