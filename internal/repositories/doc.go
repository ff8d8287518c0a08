// Package repositories implements SQLite persistence for the generation history.
//
// Key Implementations:
//   - [GenerationRepository] : append-only log of created playlists, newest first
//   - [HistoryRecorder] : adapter the playlist engine uses to record successful generations
//
// Sequence numbers provide stable, human-readable ordering (e.g. generation #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
