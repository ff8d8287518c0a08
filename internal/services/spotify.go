// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/spotmix/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email,omitempty"`
	Country     string         `json:"country,omitempty"`
	Product     string         `json:"product,omitempty"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres,omitempty"`
	Images []SpotifyImage `json:"images,omitempty"`
	URI    string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date,omitempty"`
	Images      []SpotifyImage `json:"images,omitempty"`
	URI         string         `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in search and browse results).
type SpotifySimplePlaylist struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Owner       Owner             `json:"owner"`
	Public      bool              `json:"public"`
	Tracks      playlistTracksRef `json:"tracks"`
	URI         string            `json:"uri"`
}

// SpotifyPlaylist represents a full playlist object, as returned when one is created.
type SpotifyPlaylist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Owner        Owner             `json:"owner"`
	Public       bool              `json:"public"`
	Tracks       playlistTracksRef `json:"tracks"`
	URI          string            `json:"uri"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
	SnapshotID   string            `json:"snapshot_id,omitempty"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil for removed or unavailable items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

type playlistPage struct {
	Items []*SpotifySimplePlaylist `json:"items"`
}

func (p playlistPage) playlists() []SpotifySimplePlaylist {
	out := make([]SpotifySimplePlaylist, 0, len(p.Items))
	for _, item := range p.Items {
		if item != nil && item.ID != "" {
			out = append(out, *item)
		}
	}
	return out
}

// APIError is returned for every non-2xx response from the Web API.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Spotify API %s %s failed: %d %s", e.Method, e.Path, e.Status, e.Body)
}

// Is matches [shared.ErrAPIRequest] for every status and [shared.ErrTokenExpired] for 401.
func (e *APIError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrTokenExpired:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// TokenRefresher exchanges a refresh token for a new access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// SpotifyOpts contains configuration for a per-request [SpotifyService].
type SpotifyOpts struct {
	AccessToken  string
	RefreshToken string
	BaseURL      string         // defaults to the public Web API
	HTTPClient   *http.Client   // defaults to http.DefaultClient
	Limiter      *rate.Limiter  // shared across requests; nil disables limiting
	Refresher    TokenRefresher // nil disables refresh-and-retry
}

// SpotifyService implements [Catalog] over the Spotify Web API with a bearer token.
type SpotifyService struct {
	mu             sync.Mutex // guards token and refresher
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter
	token          *oauth2.Token
	refresher      TokenRefresher
	onTokenRefresh func(*oauth2.Token)
}

var _ Catalog = (*SpotifyService)(nil)

// NewSpotifyService creates a Spotify client for one session.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", shared.ErrNotAuthenticated)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &SpotifyService{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    opts.Limiter,
		token:      &oauth2.Token{AccessToken: opts.AccessToken, RefreshToken: opts.RefreshToken},
		refresher:  opts.Refresher,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// SetTokenRefreshCallback registers a callback invoked with the new token after a successful refresh.
func (s *SpotifyService) SetTokenRefreshCallback(callback func(*oauth2.Token)) {
	s.onTokenRefresh = callback
}

// Token returns the token currently used for requests.
func (s *SpotifyService) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// body is JSON encoded when non-nil; result is decoded when non-nil and the response has content.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	resp, err := s.send(ctx, method, endpoint, query, payload)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && s.canRefresh() {
		resp.Body.Close()
		if err := s.refresh(ctx); err != nil {
			return err
		}
		if resp, err = s.send(ctx, method, endpoint, query, payload); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, Path: endpoint, Status: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (s *SpotifyService) send(ctx context.Context, method, endpoint string, query url.Values, payload []byte) (*http.Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.Token().AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, method, endpoint, err)
	}
	return resp, nil
}

func (s *SpotifyService) canRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresher != nil && s.token.RefreshToken != ""
}

// refresh swaps in a new access token. It runs at most once per service; concurrent callers
// that lose the race retry with whatever token the winner stored.
func (s *SpotifyService) refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refresher == nil {
		return nil
	}
	refresher, refreshToken := s.refresher, s.token.RefreshToken
	s.refresher = nil

	source := &refreshableTokenSource{
		source:   &refresherSource{ctx: ctx, refresher: refresher, refreshToken: refreshToken},
		callback: s.onTokenRefresh,
	}
	token, err := source.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	s.token = token
	return nil
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchArtist returns the first artist hit for name.
func (s *SpotifyService) SearchArtist(ctx context.Context, name string) (*SpotifyArtist, error) {
	query := url.Values{"q": {name}, "type": {"artist"}, "limit": {"1"}}

	var response struct {
		Artists struct {
			Items []SpotifyArtist `json:"items"`
		} `json:"artists"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/search", query, nil, &response); err != nil {
		return nil, err
	}

	if len(response.Artists.Items) == 0 || response.Artists.Items[0].ID == "" {
		return nil, nil
	}
	return &response.Artists.Items[0], nil
}

// SearchPlaylists runs a playlist text search. Null items in the response are dropped.
func (s *SpotifyService) SearchPlaylists(ctx context.Context, q string, limit int) ([]SpotifySimplePlaylist, error) {
	query := url.Values{"q": {q}, "type": {"playlist"}, "limit": {strconv.Itoa(limit)}}

	var response struct {
		Playlists playlistPage `json:"playlists"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/search", query, nil, &response); err != nil {
		return nil, err
	}
	return response.Playlists.playlists(), nil
}

// CategoryPlaylists lists the playlists of a browse category.
func (s *SpotifyService) CategoryPlaylists(ctx context.Context, categoryID, market string, limit int) ([]SpotifySimplePlaylist, error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if market != "" {
		query.Set("country", market)
	}

	var response struct {
		Playlists playlistPage `json:"playlists"`
	}
	endpoint := fmt.Sprintf("/browse/categories/%s/playlists", url.PathEscape(categoryID))
	if err := s.doRequest(ctx, http.MethodGet, endpoint, query, nil, &response); err != nil {
		return nil, err
	}
	return response.Playlists.playlists(), nil
}

// Recommendations requests tracks from /recommendations.
func (s *SpotifyService) Recommendations(ctx context.Context, q RecommendationQuery) ([]SpotifyTrack, error) {
	query := url.Values{}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Market != "" {
		query.Set("market", q.Market)
	}
	if len(q.SeedGenres) > 0 {
		query.Set("seed_genres", strings.Join(q.SeedGenres, ","))
	}
	if len(q.SeedArtists) > 0 {
		query.Set("seed_artists", strings.Join(q.SeedArtists, ","))
	}
	for attr, v := range q.Targets {
		query.Set("target_"+attr, strconv.FormatFloat(v, 'f', -1, 64))
	}

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/recommendations", query, nil, &response); err != nil {
		return nil, err
	}
	return response.Tracks, nil
}

// AvailableGenreSeeds lists the genre seeds accepted by /recommendations.
func (s *SpotifyService) AvailableGenreSeeds(ctx context.Context) ([]string, error) {
	var response struct {
		Genres []string `json:"genres"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/recommendations/available-genre-seeds", nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Genres, nil
}

// ArtistTopTracks retrieves an artist's top tracks for market.
func (s *SpotifyService) ArtistTopTracks(ctx context.Context, artistID, market string) ([]SpotifyTrack, error) {
	query := url.Values{"market": {market}}

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	endpoint := fmt.Sprintf("/artists/%s/top-tracks", url.PathEscape(artistID))
	if err := s.doRequest(ctx, http.MethodGet, endpoint, query, nil, &response); err != nil {
		return nil, err
	}
	return response.Tracks, nil
}

// TopTracks retrieves the user's top tracks (time range short_term, medium_term or long_term).
func (s *SpotifyService) TopTracks(ctx context.Context, timeRange string, limit int) ([]SpotifyTrack, error) {
	query := url.Values{"time_range": {timeRange}, "limit": {strconv.Itoa(limit)}}

	var response struct {
		Items []SpotifyTrack `json:"items"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/me/top/tracks", query, nil, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

// PlaylistTracks retrieves one page of a playlist's items.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID, market string, limit int) ([]SpotifyPlaylistTrack, error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if market != "" {
		query.Set("market", market)
	}

	var response struct {
		Items []SpotifyPlaylistTrack `json:"items"`
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, http.MethodGet, endpoint, query, nil, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

// CreatePlaylist creates a new playlist for userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID string, req CreatePlaylistRequest) (*SpotifyPlaylist, error) {
	var playlist SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, nil, req, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddTracks appends uris (at most 100) to a playlist.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) (string, error) {
	if len(uris) > 100 {
		return "", fmt.Errorf("%w: maximum 100 uris per call, got %d", shared.ErrInvalidArgument, len(uris))
	}

	var response struct {
		SnapshotID string `json:"snapshot_id"`
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	body := map[string][]string{"uris": uris}
	if err := s.doRequest(ctx, http.MethodPost, endpoint, nil, body, &response); err != nil {
		return "", err
	}
	return response.SnapshotID, nil
}

// UnfollowPlaylist removes a playlist from the user's library, which is how Spotify deletes playlists.
func (s *SpotifyService) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	endpoint := fmt.Sprintf("/playlists/%s/followers", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}
