package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/desertthunder/spotmix/internal/models"
	"github.com/desertthunder/spotmix/internal/services"
	"github.com/desertthunder/spotmix/internal/shared"
)

var errUpstream = fmt.Errorf("%w: upstream 500", shared.ErrAPIRequest)

// fakeCatalog is an in-memory [services.Catalog] that records every call.
type fakeCatalog struct {
	mu sync.Mutex

	user    *services.SpotifyUser
	userErr error

	artists   map[string]string // name -> id
	artistErr map[string]error

	recs       func(q services.RecommendationQuery) ([]services.SpotifyTrack, error)
	recQueries []services.RecommendationQuery

	seeds    []string
	seedsErr error

	artistTop    map[string][]services.SpotifyTrack
	artistTopErr map[string]error

	top      []services.SpotifyTrack
	topErr   error
	topRange string

	playlistItems map[string][]services.SpotifyPlaylistTrack
	playlistErr   map[string]error
	playlistReads []playlistRead

	category      []services.SpotifySimplePlaylist
	categoryErr   error
	categoryCalls []string

	searchResults []services.SpotifySimplePlaylist
	searchErr     error
	searchQueries []string

	createErr  error
	created    []services.CreatePlaylistRequest
	batches    [][]string
	failBatch  int // 1-based batch index that fails; 0 means none
	unfollowed []string

	calls []string
}

type playlistRead struct {
	ID     string
	Market string
	Limit  int
}

var _ services.Catalog = (*fakeCatalog)(nil)

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		user:          &services.SpotifyUser{ID: "u1", DisplayName: "Ada", Country: "SE"},
		artists:       map[string]string{},
		artistErr:     map[string]error{},
		artistTop:     map[string][]services.SpotifyTrack{},
		artistTopErr:  map[string]error{},
		playlistItems: map[string][]services.SpotifyPlaylistTrack{},
		playlistErr:   map[string]error{},
		seeds:         []string{"edm", "hip-hop", "k-pop", "pop", "r-n-b", "rock"},
	}
}

func (f *fakeCatalog) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCatalog) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeCatalog) CurrentUser(ctx context.Context) (*services.SpotifyUser, error) {
	f.record("me")
	return f.user, f.userErr
}

func (f *fakeCatalog) SearchArtist(ctx context.Context, name string) (*services.SpotifyArtist, error) {
	f.record("search-artist")
	if err := f.artistErr[name]; err != nil {
		return nil, err
	}
	id, ok := f.artists[name]
	if !ok {
		return nil, nil
	}
	return &services.SpotifyArtist{ID: id, Name: name}, nil
}

func (f *fakeCatalog) SearchPlaylists(ctx context.Context, query string, limit int) ([]services.SpotifySimplePlaylist, error) {
	f.record("search-playlists")
	f.mu.Lock()
	f.searchQueries = append(f.searchQueries, fmt.Sprintf("%s|%d", query, limit))
	f.mu.Unlock()
	return f.searchResults, f.searchErr
}

func (f *fakeCatalog) CategoryPlaylists(ctx context.Context, categoryID, market string, limit int) ([]services.SpotifySimplePlaylist, error) {
	f.record("category-playlists")
	f.mu.Lock()
	f.categoryCalls = append(f.categoryCalls, categoryID)
	f.mu.Unlock()
	return f.category, f.categoryErr
}

func (f *fakeCatalog) Recommendations(ctx context.Context, q services.RecommendationQuery) ([]services.SpotifyTrack, error) {
	f.record("recommendations")
	f.mu.Lock()
	f.recQueries = append(f.recQueries, q)
	f.mu.Unlock()
	if f.recs == nil {
		return nil, nil
	}
	return f.recs(q)
}

func (f *fakeCatalog) AvailableGenreSeeds(ctx context.Context) ([]string, error) {
	f.record("genre-seeds")
	return f.seeds, f.seedsErr
}

func (f *fakeCatalog) ArtistTopTracks(ctx context.Context, artistID, market string) ([]services.SpotifyTrack, error) {
	f.record("artist-top-tracks")
	if err := f.artistTopErr[artistID]; err != nil {
		return nil, err
	}
	return f.artistTop[artistID], nil
}

func (f *fakeCatalog) TopTracks(ctx context.Context, timeRange string, limit int) ([]services.SpotifyTrack, error) {
	f.record("top-tracks")
	f.topRange = timeRange
	if f.topErr != nil {
		return nil, f.topErr
	}
	if len(f.top) > limit {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func (f *fakeCatalog) PlaylistTracks(ctx context.Context, playlistID, market string, limit int) ([]services.SpotifyPlaylistTrack, error) {
	f.record("playlist-tracks")
	f.mu.Lock()
	f.playlistReads = append(f.playlistReads, playlistRead{ID: playlistID, Market: market, Limit: limit})
	f.mu.Unlock()
	if err := f.playlistErr[playlistID]; err != nil {
		return nil, err
	}
	items := f.playlistItems[playlistID]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeCatalog) CreatePlaylist(ctx context.Context, userID string, req services.CreatePlaylistRequest) (*services.SpotifyPlaylist, error) {
	f.record("create-playlist")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	return &services.SpotifyPlaylist{ID: fmt.Sprintf("pl%d", len(f.created)), Name: req.Name, Description: req.Description}, nil
}

func (f *fakeCatalog) AddTracks(ctx context.Context, playlistID string, uris []string) (string, error) {
	f.record("add-tracks")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBatch > 0 && len(f.batches)+1 == f.failBatch {
		return "", errUpstream
	}
	f.batches = append(f.batches, append([]string(nil), uris...))
	return "snap", nil
}

func (f *fakeCatalog) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	f.record("unfollow")
	f.unfollowed = append(f.unfollowed, playlistID)
	return nil
}

// makeTracks returns n tracks with URIs spotify:track:{prefix}{i}.
func makeTracks(prefix string, n int) []services.SpotifyTrack {
	out := make([]services.SpotifyTrack, n)
	for i := range out {
		id := fmt.Sprintf("%s%d", prefix, i)
		out[i] = services.SpotifyTrack{ID: id, Name: id, URI: "spotify:track:" + id}
	}
	return out
}

// makeItems returns n playlist items wrapping [makeTracks].
func makeItems(prefix string, n int) []services.SpotifyPlaylistTrack {
	tracks := makeTracks(prefix, n)
	out := make([]services.SpotifyPlaylistTrack, n)
	for i := range tracks {
		out[i] = services.SpotifyPlaylistTrack{Track: &tracks[i]}
	}
	return out
}

func newTestEngine(catalog services.Catalog, opts Options) *PlaylistEngine {
	if opts.Shuffle == nil {
		opts.Shuffle = rand.New(rand.NewPCG(1, 2)).Shuffle
	}
	return NewPlaylistEngine(catalog, nil, opts)
}

type memoryRecorder struct {
	records []*models.Generation
	err     error
}

func (m *memoryRecorder) Record(g *models.Generation) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, g)
	return nil
}
