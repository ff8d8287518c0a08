// package tasks implements playlist generation against the Spotify Web API.
//
// The core abstraction is PlaylistEngine, which resolves seeds, walks a fallback chain of candidate strategies,
// and materializes the winning tracks as a new private playlist.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotmix/internal/models"
	"github.com/desertthunder/spotmix/internal/services"
	"github.com/desertthunder/spotmix/internal/shared"
)

// Size bounds per mode. A zero limit means [DefaultLimit].
const (
	DefaultLimit  = 50
	GenreMinLimit = 10
	GenreMaxLimit = 100
	TopMinLimit   = 1
	TopMaxLimit   = 50
)

// Time ranges accepted by the top-tracks mode.
const (
	ShortTerm  = "short_term"
	MediumTerm = "medium_term"
	LongTerm   = "long_term"
)

var rangeLabels = map[string]string{
	ShortTerm:  "Last 4 Weeks",
	MediumTerm: "Last 6 Months",
	LongTerm:   "All Time",
}

// RangeLabel returns the display label for a time range and whether the range is valid.
func RangeLabel(timeRange string) (string, bool) {
	label, ok := rangeLabels[timeRange]
	return label, ok
}

// EditorialPlaylist is a Spotify-curated playlist used as a trending source.
type EditorialPlaylist struct {
	ID   string
	Name string
}

// EditorialPlaylists are tried in order by the trending mode.
var EditorialPlaylists = []EditorialPlaylist{
	{ID: "37i9dQZEVXbMDoHDwVN2tF", Name: "Top 50 - Global"},
	{ID: "37i9dQZEVXbLiRSasKsNU9", Name: "Viral 50 - Global"},
	{ID: "37i9dQZEVXbNG2KDcFcKOF", Name: "Top Songs - Global"},
}

const (
	trendingSearchQuery   = "Top 50 Global"
	spotifyOwnerID        = "spotify"
	searchPlaylistLimit   = 10
	categoryPlaylistLimit = 20
	fallbackMarket        = "US"
)

// Request describes one generation. Fields that do not apply to the mode are ignored.
type Request struct {
	Mode      models.Mode
	Genre     string
	Limit     int
	Name      string
	TimeRange string
}

// Result contains the outcome of a generation.
type Result struct {
	Mode     models.Mode
	User     *services.SpotifyUser
	Market   string
	Playlist *services.SpotifyPlaylist
	URIs     []string               // URIs selected for the playlist, in order
	Added    int                    // URIs actually added
	Strategy string                 // winning strategy name
	Source   string                 // trending source playlist name
	TopTrack *services.SpotifyTrack // trending mode only
}

// Recorder persists successful generations, e.g. repositories.HistoryRecorder.
type Recorder interface {
	Record(g *models.Generation) error
}

// Options configures a [PlaylistEngine].
type Options struct {
	DefaultMarket   string // used when the profile has no country; defaults to US
	RollbackPartial bool   // unfollow a playlist whose track adds failed part way
	Recorder        Recorder
	Shuffle         func(n int, swap func(i, j int)) // defaults to [rand.Shuffle]
}

// PlaylistEngine generates playlists for one authenticated session.
type PlaylistEngine struct {
	catalog services.Catalog
	logger  *log.Logger
	opts    Options
	shuffle func(n int, swap func(i, j int))
}

// NewPlaylistEngine creates a new PlaylistEngine over catalog. A nil logger discards output.
func NewPlaylistEngine(catalog services.Catalog, logger *log.Logger, opts Options) *PlaylistEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	shuffle := opts.Shuffle
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	return &PlaylistEngine{catalog: catalog, logger: logger, opts: opts, shuffle: shuffle}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Generate dispatches req to its mode.
func (e *PlaylistEngine) Generate(ctx context.Context, req Request, progress chan<- ProgressUpdate) (*Result, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: Spotify client not initialized", shared.ErrServiceUnavailable)
	}

	switch req.Mode {
	case models.ModePersonalized:
		return e.Personalized(ctx, req.Genre, req.Limit, req.Name, progress)
	case models.ModeCatalogRandom:
		return e.CatalogRandom(ctx, req.Genre, req.Limit, req.Name, progress)
	case models.ModeTopTracks:
		return e.TopTracks(ctx, req.TimeRange, req.Limit, req.Name, progress)
	case models.ModeTrending:
		return e.Trending(ctx, req.Limit, req.Name, progress)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", shared.ErrInvalidArgument, req.Mode)
	}
}

// Personalized builds a playlist from recommendations seeded by the genre and its curated artists.
//
// Strategies: full seed recommendations, then genre-only recommendations (only if the first call errored),
// then the seed artists' top tracks.
func (e *PlaylistEngine) Personalized(ctx context.Context, genre string, limit int, name string, progress chan<- ProgressUpdate) (*Result, error) {
	g := ParseGenre(genre)
	limit = shared.ClampInt(limit, DefaultLimit, GenreMinLimit, GenreMaxLimit)
	e.logger.Info("generating playlist", "mode", models.ModePersonalized, "genre", g, "limit", limit)

	user, market, err := e.profile(ctx, progress)
	if err != nil {
		return nil, err
	}

	ids := e.ResolveSeeds(ctx, g, progress)

	query := services.RecommendationQuery{
		Limit:       limit,
		Market:      market,
		SeedArtists: ids,
		Targets:     g.Tuning().Targets(),
	}
	if g != "" {
		query.SeedGenres = []string{string(g)}
	}

	var primaryErr error
	chain := Chain{
		{
			Name: "recommendations",
			Fetch: func(ctx context.Context) ([]string, error) {
				tracks, err := e.catalog.Recommendations(ctx, query)
				primaryErr = err
				return trackURIs(tracks), err
			},
		},
		{
			Name:    "recommendations-genre-only",
			Enabled: func() bool { return primaryErr != nil },
			Fetch: func(ctx context.Context) ([]string, error) {
				q := query
				q.SeedArtists = nil
				tracks, err := e.catalog.Recommendations(ctx, q)
				return trackURIs(tracks), err
			},
		},
		{
			Name:    "artist-top-tracks",
			Enabled: func() bool { return len(ids) > 0 },
			Fetch: func(ctx context.Context) ([]string, error) {
				return e.artistTopTracks(ctx, ids, market, limit), nil
			},
		},
	}

	res, err := e.runChain(ctx, chain, limit, progress)
	if err != nil {
		return nil, noTracks(err, "could not build recommendations for this seed/market")
	}

	upper := shared.Upper(string(g), "mix")
	return e.finish(ctx, finishArgs{
		mode:        models.ModePersonalized,
		genre:       string(g),
		user:        user,
		market:      market,
		requested:   limit,
		chain:       res,
		name:        playlistName(name, fmt.Sprintf("%s • Auto Mix", upper)),
		description: fmt.Sprintf("Auto-generated %s playlist for %s — %s", upper, displayName(user), market),
	}, progress)
}

// artistTopTracks collects top tracks across ids in order until limit. Failing artists are skipped.
func (e *PlaylistEngine) artistTopTracks(ctx context.Context, ids []string, market string, limit int) []string {
	uris := make([]string, 0, limit)
	for _, id := range ids {
		if len(uris) >= limit || ctx.Err() != nil {
			break
		}
		tracks, err := e.catalog.ArtistTopTracks(ctx, id, market)
		if err != nil {
			e.logger.Warn("artist top tracks failed", "artist", id, "error", err)
			continue
		}
		for _, uri := range trackURIs(tracks) {
			if len(uris) >= limit {
				break
			}
			uris = append(uris, uri)
		}
	}
	return uris
}

// CatalogRandom builds a playlist of random catalog picks for a genre, independent of the user's taste.
//
// Strategies: genre-only recommendations, then a sample of the genre's browse category playlists,
// then a sample of playlists found by text search.
func (e *PlaylistEngine) CatalogRandom(ctx context.Context, genre string, limit int, name string, progress chan<- ProgressUpdate) (*Result, error) {
	g := ParseGenre(genre)
	if g == "" {
		return nil, fmt.Errorf("%w: genre", shared.ErrMissingArgument)
	}
	limit = shared.ClampInt(limit, DefaultLimit, GenreMinLimit, GenreMaxLimit)
	e.logger.Info("generating playlist", "mode", models.ModeCatalogRandom, "genre", g, "limit", limit)

	user, market, err := e.profile(ctx, progress)
	if err != nil {
		return nil, err
	}

	seed := e.validateSeed(ctx, g.SeedToken())
	query := services.RecommendationQuery{
		Limit:      limit,
		Market:     market,
		SeedGenres: []string{seed},
		Targets:    seedTuning(seed).Targets(),
	}

	chain := Chain{
		{
			Name: "recommendations",
			Fetch: func(ctx context.Context) ([]string, error) {
				tracks, err := e.catalog.Recommendations(ctx, query)
				return trackURIs(tracks), err
			},
		},
		{
			Name: "category-playlists",
			Fetch: func(ctx context.Context) ([]string, error) {
				playlists, err := e.catalog.CategoryPlaylists(ctx, g.CategoryID(), market, categoryPlaylistLimit)
				if err != nil {
					return nil, err
				}
				return e.sample(ctx, playlists, market, limit)
			},
		},
		{
			Name: "playlist-search",
			Fetch: func(ctx context.Context) ([]string, error) {
				playlists, err := e.catalog.SearchPlaylists(ctx, g.SearchQuery(), searchPlaylistLimit)
				if err != nil {
					return nil, err
				}
				return e.sample(ctx, playlists, market, limit)
			},
		},
	}

	res, err := e.runChain(ctx, chain, limit, progress)
	if err != nil {
		return nil, noTracks(err, fmt.Sprintf("no catalog tracks found for '%s' (seed tried: '%s', market: %s)", g, seed, market))
	}

	upper := strings.ToUpper(string(g))
	return e.finish(ctx, finishArgs{
		mode:        models.ModeCatalogRandom,
		genre:       string(g),
		user:        user,
		market:      market,
		requested:   limit,
		chain:       res,
		name:        playlistName(name, fmt.Sprintf("%s • Random Catalog Mix", upper)),
		description: fmt.Sprintf("Random %s picks from Spotify catalog — %s", upper, market),
	}, progress)
}

// validateSeed returns desired when it is an available genre seed, otherwise the first available
// of [fallbackSeeds]. If the seed list cannot be fetched, desired is used as is.
func (e *PlaylistEngine) validateSeed(ctx context.Context, desired string) string {
	available, err := e.catalog.AvailableGenreSeeds(ctx)
	if err != nil {
		e.logger.Debug("genre seed list unavailable", "error", err)
		return desired
	}

	set := make(map[string]bool, len(available))
	for _, s := range available {
		set[strings.ToLower(s)] = true
	}
	if set[desired] {
		return desired
	}

	for _, candidate := range fallbackSeeds {
		if set[candidate] {
			e.logger.Info("substituting genre seed", "wanted", desired, "using", candidate)
			return candidate
		}
	}
	return desired
}

// TopTracks builds a playlist from the user's most played tracks over timeRange. There is no fallback.
func (e *PlaylistEngine) TopTracks(ctx context.Context, timeRange string, limit int, name string, progress chan<- ProgressUpdate) (*Result, error) {
	if timeRange == "" {
		timeRange = ShortTerm
	}
	label, ok := RangeLabel(timeRange)
	if !ok {
		return nil, fmt.Errorf("%w: time range %q", shared.ErrInvalidArgument, timeRange)
	}
	limit = shared.ClampInt(limit, DefaultLimit, TopMinLimit, TopMaxLimit)
	e.logger.Info("generating playlist", "mode", models.ModeTopTracks, "range", timeRange, "limit", limit)

	user, market, err := e.profile(ctx, progress)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, strategyUpdate(0, 1, Strategy{Name: "top-tracks"}))
	tracks, err := e.catalog.TopTracks(ctx, timeRange, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top tracks: %w", err)
	}

	uris := trackURIs(tracks)
	if len(uris) > limit {
		uris = uris[:limit]
	}
	if len(uris) == 0 {
		return nil, fmt.Errorf("%w: no top tracks found for this range", shared.ErrNoTracks)
	}

	return e.finish(ctx, finishArgs{
		mode:        models.ModeTopTracks,
		user:        user,
		market:      market,
		requested:   limit,
		chain:       &ChainResult{URIs: uris, Strategy: "top-tracks"},
		name:        playlistName(name, fmt.Sprintf("Your Top Tracks • %s", label)),
		description: fmt.Sprintf("Auto playlist of your most played tracks — %s (%s)", label, market),
	}, progress)
}

// Trending copies a Spotify editorial chart into a new playlist.
//
// Strategies: each of [EditorialPlaylists] in order, then a "Top 50 Global" playlist search with
// Spotify-owned results tried first. The winning source's first track is returned as the top track.
func (e *PlaylistEngine) Trending(ctx context.Context, limit int, name string, progress chan<- ProgressUpdate) (*Result, error) {
	limit = shared.ClampInt(limit, DefaultLimit, TopMinLimit, TopMaxLimit)
	e.logger.Info("generating playlist", "mode", models.ModeTrending, "limit", limit)

	user, market, err := e.profile(ctx, progress)
	if err != nil {
		return nil, err
	}

	var (
		source   string
		topTrack *services.SpotifyTrack
	)
	read := func(ctx context.Context, playlistID, sourceName string) ([]string, error) {
		items, err := e.catalog.PlaylistTracks(ctx, playlistID, market, limit)
		if err != nil {
			return nil, err
		}
		uris := appendURIs(nil, items, limit)
		if len(uris) > 0 {
			source, topTrack = sourceName, firstTrack(items)
		}
		return uris, nil
	}

	chain := make(Chain, 0, len(EditorialPlaylists)+1)
	for _, ed := range EditorialPlaylists {
		chain = append(chain, Strategy{
			Name: "editorial:" + ed.ID,
			Fetch: func(ctx context.Context) ([]string, error) {
				return read(ctx, ed.ID, ed.Name)
			},
		})
	}
	chain = append(chain, Strategy{
		Name: "playlist-search",
		Fetch: func(ctx context.Context) ([]string, error) {
			playlists, err := e.catalog.SearchPlaylists(ctx, trendingSearchQuery, searchPlaylistLimit)
			if err != nil {
				return nil, err
			}
			for _, pl := range rankBySpotifyOwner(playlists) {
				uris, err := read(ctx, pl.ID, pl.Name)
				if err != nil {
					e.logger.Warn("skipping unreadable playlist", "playlist", pl.ID, "error", err)
					continue
				}
				if len(uris) > 0 {
					return uris, nil
				}
			}
			return nil, nil
		},
	})

	res, err := e.runChain(ctx, chain, limit, progress)
	if err != nil {
		return nil, noTracks(err, "could not read any trending playlist")
	}

	result, err := e.finish(ctx, finishArgs{
		mode:        models.ModeTrending,
		user:        user,
		market:      market,
		requested:   limit,
		chain:       res,
		name:        playlistName(name, fmt.Sprintf("Trending Now — %s", source)),
		description: fmt.Sprintf("%s snapshot for %s — %s", source, displayName(user), market),
	}, progress)
	if result != nil {
		result.Source = source
		result.TopTrack = topTrack
	}
	return result, err
}

// rankBySpotifyOwner orders playlists owned by Spotify first, keeping relative order otherwise.
func rankBySpotifyOwner(playlists []services.SpotifySimplePlaylist) []services.SpotifySimplePlaylist {
	ranked := slices.Clone(playlists)
	slices.SortStableFunc(ranked, func(a, b services.SpotifySimplePlaylist) int {
		return cmp.Compare(ownerRank(a), ownerRank(b))
	})
	return ranked
}

func ownerRank(pl services.SpotifySimplePlaylist) int {
	if pl.Owner.ID == spotifyOwnerID {
		return 0
	}
	return 1
}

func firstTrack(items []services.SpotifyPlaylistTrack) *services.SpotifyTrack {
	for _, it := range items {
		if it.Track != nil && it.Track.URI != "" {
			return it.Track
		}
	}
	return nil
}

// profile resolves the current user and the market used for every later call.
func (e *PlaylistEngine) profile(ctx context.Context, progress chan<- ProgressUpdate) (*services.SpotifyUser, string, error) {
	e.sendProgress(progress, resolveProfileUpdate())

	user, err := e.catalog.CurrentUser(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch profile: %w", err)
	}

	market := cmp.Or(user.Country, e.opts.DefaultMarket, fallbackMarket)
	e.sendProgress(progress, profileResolvedUpdate(user, market))
	return user, market, nil
}

func (e *PlaylistEngine) runChain(ctx context.Context, chain Chain, limit int, progress chan<- ProgressUpdate) (*ChainResult, error) {
	return chain.Run(ctx, e.logger, limit, func(i int, s Strategy) {
		e.sendProgress(progress, strategyUpdate(i, len(chain), s))
	})
}

type finishArgs struct {
	mode        models.Mode
	genre       string
	user        *services.SpotifyUser
	market      string
	requested   int
	chain       *ChainResult
	name        string
	description string
}

// finish materializes the chain result and records the generation.
//
// A partial failure returns the result alongside the [*MaterializeError].
func (e *PlaylistEngine) finish(ctx context.Context, a finishArgs, progress chan<- ProgressUpdate) (*Result, error) {
	result := &Result{
		Mode:     a.mode,
		User:     a.user,
		Market:   a.market,
		URIs:     a.chain.URIs,
		Strategy: a.chain.Strategy,
	}

	pl, err := e.Materialize(ctx, a.user.ID, a.name, a.description, a.chain.URIs, progress)
	if err != nil {
		var merr *MaterializeError
		if errors.As(err, &merr) {
			result.Playlist = pl
			result.Added = merr.Added
			return result, err
		}
		return nil, err
	}

	result.Playlist = pl
	result.Added = len(a.chain.URIs)

	if e.opts.Recorder != nil {
		g := models.NewGeneration(0, a.mode, a.genre, a.user.ID, pl.ID, pl.Name, a.requested, result.Added, result.Strategy)
		if err := e.opts.Recorder.Record(g); err != nil {
			e.logger.Warn("failed to record generation", "playlist", pl.ID, "error", err)
		}
	}

	e.logger.Info("playlist generated", "mode", a.mode, "playlist", pl.ID, "added", result.Added, "strategy", result.Strategy)
	return result, nil
}

// noTracks replaces a chain exhaustion error with a caller-facing detail message.
func noTracks(err error, details string) error {
	if errors.Is(err, shared.ErrNoTracks) {
		return fmt.Errorf("%w: %s", shared.ErrNoTracks, details)
	}
	return err
}

// playlistName returns override when it is not blank.
func playlistName(override, def string) string {
	if s := strings.TrimSpace(override); s != "" {
		return s
	}
	return def
}

func displayName(user *services.SpotifyUser) string {
	return cmp.Or(user.DisplayName, user.ID)
}
