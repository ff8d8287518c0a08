// package services defines interface Catalog for interacting with the Spotify Web API
package services

import (
	"context"
)

// Catalog is the subset of the Spotify Web API the playlist engine depends on.
type Catalog interface {
	// CurrentUser returns the profile of the token's owner.
	CurrentUser(ctx context.Context) (*SpotifyUser, error)

	// SearchArtist returns the best matching artist for name, or nil when nothing matched.
	SearchArtist(ctx context.Context, name string) (*SpotifyArtist, error)

	// SearchPlaylists runs a text search over public playlists.
	SearchPlaylists(ctx context.Context, query string, limit int) ([]SpotifySimplePlaylist, error)

	// CategoryPlaylists lists playlists in a browse category.
	CategoryPlaylists(ctx context.Context, categoryID, market string, limit int) ([]SpotifySimplePlaylist, error)

	// Recommendations requests recommended tracks for the given seeds.
	Recommendations(ctx context.Context, q RecommendationQuery) ([]SpotifyTrack, error)

	// AvailableGenreSeeds lists genre tokens accepted by Recommendations.
	AvailableGenreSeeds(ctx context.Context) ([]string, error)

	// ArtistTopTracks returns an artist's top tracks in market.
	ArtistTopTracks(ctx context.Context, artistID, market string) ([]SpotifyTrack, error)

	// TopTracks returns the current user's top tracks over timeRange.
	TopTracks(ctx context.Context, timeRange string, limit int) ([]SpotifyTrack, error)

	// PlaylistTracks reads the first page of a playlist's items.
	PlaylistTracks(ctx context.Context, playlistID, market string, limit int) ([]SpotifyPlaylistTrack, error)

	// CreatePlaylist creates a playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID string, req CreatePlaylistRequest) (*SpotifyPlaylist, error)

	// AddTracks appends up to 100 URIs to a playlist and returns the new snapshot id.
	AddTracks(ctx context.Context, playlistID string, uris []string) (string, error)

	// UnfollowPlaylist removes the playlist from the current user's library.
	UnfollowPlaylist(ctx context.Context, playlistID string) error
}

// RecommendationQuery holds seeds and tuning for a recommendations request.
//
// Spotify accepts at most five seeds in total across artists, genres, and tracks.
type RecommendationQuery struct {
	Limit       int
	Market      string
	SeedGenres  []string
	SeedArtists []string
	Targets     map[string]float64 // e.g. "energy" -> 0.75 is sent as target_energy=0.75
}

// CreatePlaylistRequest is the body of a create-playlist call.
type CreatePlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}
