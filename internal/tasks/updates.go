package tasks

import (
	"fmt"

	"github.com/desertthunder/spotmix/internal/services"
)

// ProgressUpdate represents a progress event during a generation.
//
// Used to send real-time updates to the CLI or TUI for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResolveProfile Phase = iota
	ResolveSeeds
	FetchCandidates
	Fallback
	CreatePlaylist
	AddTracks
)

func (p Phase) String() string {
	switch p {
	case ResolveProfile:
		return "resolve_profile"
	case ResolveSeeds:
		return "resolve_seeds"
	case FetchCandidates:
		return "fetch_candidates"
	case Fallback:
		return "fallback"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	default:
		return ""
	}
}

func resolveProfileUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: ResolveProfile, Step: 1, Total: 1, Message: "Fetching your Spotify profile..."}
}

func profileResolvedUpdate(user *services.SpotifyUser, market string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveProfile,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Signed in as %s (%s)", displayName(user), market),
		Data:    user,
	}
}

func resolveSeedUpdate(step, total int, artist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveSeeds,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Looking up %s...", step, total, artist),
	}
}

func seedsResolvedUpdate(ids []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveSeeds,
		Step:    len(ids),
		Total:   len(ids),
		Message: fmt.Sprintf("Resolved %d seed artists", len(ids)),
		Data:    ids,
	}
}

// strategyUpdate reports the first strategy as a candidate fetch and the rest as fallbacks.
func strategyUpdate(i, total int, s Strategy) ProgressUpdate {
	phase, message := FetchCandidates, fmt.Sprintf("Fetching candidates (%s)...", s.Name)
	if i > 0 {
		phase, message = Fallback, fmt.Sprintf("Falling back to %s...", s.Name)
	}
	return ProgressUpdate{Phase: phase, Step: i + 1, Total: total, Message: message}
}

func createPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q...", name),
	}
}

func playlistCreatedUpdate(pl *services.SpotifyPlaylist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func addTracksUpdate(step, total, added, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Added %d/%d tracks", step, total, added, count),
	}
}
