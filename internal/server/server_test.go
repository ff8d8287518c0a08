package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/spotmix/internal/models"
	"github.com/desertthunder/spotmix/internal/shared"
	"github.com/desertthunder/spotmix/internal/tasks"
	tu "github.com/desertthunder/spotmix/internal/testing"
	"golang.org/x/oauth2"
)

type fakeAuth struct {
	mu          sync.Mutex
	exchangeErr error
	refreshErr  error
	refreshed   int
}

func (f *fakeAuth) AuthURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state + "&show_dialog=true"
}

func (f *fakeAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{AccessToken: "access-" + code, RefreshToken: "refresh-" + code}, nil
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &oauth2.Token{AccessToken: "fresh", RefreshToken: refreshToken}, nil
}

type memoryHistory struct {
	mu    sync.Mutex
	items []*models.Generation
}

func (m *memoryHistory) Record(g *models.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.SetID(fmt.Sprintf("g%d", len(m.items)+1))
	g.SetSequence(len(m.items) + 1)
	m.items = append(m.items, g)
	return nil
}

func (m *memoryHistory) Recent(userID string, limit int) ([]*models.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Generation
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		if m.items[i].UserID() == userID {
			out = append(out, m.items[i])
		}
	}
	return out, nil
}

// upstream registers a profile plus playlist create and add routes on a fake Web API.
func upstream(t *testing.T) *tu.SpotifyServer {
	t.Helper()
	api := tu.NewSpotifyServer(t)
	api.JSON("GET /me", http.StatusOK, map[string]any{"id": "u1", "display_name": "Ada", "country": "US"})
	api.Handle("POST /users/{id}/playlists", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		tu.WriteJSON(w, http.StatusCreated, map[string]any{"id": "pl1", "name": body["name"], "public": body["public"]})
	})
	api.JSON("POST /playlists/{id}/tracks", http.StatusCreated, map[string]any{"snapshot_id": "snap"})
	return api
}

func newTestServer(api *tu.SpotifyServer, mutate func(*Options)) *Server {
	opts := Options{
		Auth:       &fakeAuth{},
		APIBaseURL: api.URL,
		HTTPClient: api.Client(),
		Engine:     tasks.Options{DefaultMarket: "US"},
	}
	if mutate != nil {
		mutate(&opts)
	}
	return New(opts)
}

func post(srv http.Handler, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func get(srv http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func session(access string) []*http.Cookie {
	return []*http.Cookie{
		{Name: AccessCookie, Value: access},
		{Name: RefreshCookie, Value: "r1"},
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return out
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestGenerateHandler(t *testing.T) {
	t.Run("unauthenticated requests never reach the API", func(t *testing.T) {
		api := upstream(t)
		srv := newTestServer(api, nil)

		for _, path := range []string{"/create-playlist", "/genre-random", "/top-tracks", "/trending"} {
			rec := post(srv, path, `{"genre":"pop"}`)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("%s: expected 401, got %d", path, rec.Code)
			}
			if body := decode(t, rec); body["error"] != "not_logged_in" {
				t.Errorf("%s: expected not_logged_in, got %v", path, body["error"])
			}
		}

		if rec := get(srv, "/history"); rec.Code != http.StatusUnauthorized {
			t.Errorf("/history: expected 401, got %d", rec.Code)
		}
		if calls := api.Calls(); len(calls) != 0 {
			t.Errorf("expected zero upstream calls, got %d", len(calls))
		}
	})

	t.Run("personalized pop playlist with 50 tracks", func(t *testing.T) {
		api := upstream(t)
		api.Handle("GET /search", func(w http.ResponseWriter, r *http.Request) {
			name := r.URL.Query().Get("q")
			tu.WriteJSON(w, http.StatusOK, map[string]any{
				"artists": map[string]any{"items": []map[string]any{{"id": "id-" + name, "name": name}}},
			})
		})
		api.JSON("GET /recommendations", http.StatusOK, tu.Tracks(tu.URIs("pop", 50)...))
		history := &memoryHistory{}
		srv := newTestServer(api, func(o *Options) { o.Engine.Recorder = history; o.History = history })

		rec := post(srv, "/create-playlist", `{"genre":"pop"}`, session("tok")...)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		body := decode(t, rec)
		if body["ok"] != true || body["added"] != float64(50) {
			t.Errorf("unexpected body: %v", body)
		}
		playlist, _ := body["playlist"].(map[string]any)
		if playlist["id"] != "pl1" || playlist["name"] != "POP • Auto Mix" {
			t.Errorf("unexpected playlist: %v", playlist)
		}
		if _, ok := body["topTrack"]; ok {
			t.Error("topTrack is only returned by trending")
		}

		recs := api.CallsTo(http.MethodGet, "/recommendations")
		if len(recs) != 1 {
			t.Fatalf("expected 1 recommendations call, got %d", len(recs))
		}
		q := recs[0].Query
		if q.Get("seed_genres") != "pop" || q.Get("limit") != "50" || q.Get("market") != "US" {
			t.Errorf("unexpected recommendations query: %v", q)
		}
		if seeds := strings.Split(q.Get("seed_artists"), ","); len(seeds) != 4 {
			t.Errorf("expected 4 seed artists, got %v", seeds)
		}
		if recs[0].Auth != "Bearer tok" {
			t.Errorf("expected session bearer token, got %q", recs[0].Auth)
		}

		if adds := api.CallsTo(http.MethodPost, "/playlists/pl1/tracks"); len(adds) != 1 {
			t.Errorf("expected 1 add call, got %d", len(adds))
		}
		if len(history.items) != 1 {
			t.Errorf("expected the generation to be recorded, got %d", len(history.items))
		}
	})

	t.Run("each request creates its own playlist", func(t *testing.T) {
		api := upstream(t)
		api.JSON("GET /search", http.StatusOK, map[string]any{"artists": map[string]any{"items": []any{}}})
		api.JSON("GET /recommendations", http.StatusOK, tu.Tracks(tu.URIs("a", 20)...))
		srv := newTestServer(api, nil)

		for range 2 {
			if rec := post(srv, "/create-playlist", `{"genre":"rock","limit":20}`, session("tok")...); rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
		}
		if creates := api.CallsTo(http.MethodPost, "/users/u1/playlists"); len(creates) != 2 {
			t.Errorf("expected 2 playlists created, got %d", len(creates))
		}
	})

	t.Run("trending falls back to a spotify-owned search result", func(t *testing.T) {
		api := upstream(t)
		api.JSON("GET /search", http.StatusOK, map[string]any{
			"playlists": map[string]any{"items": []any{
				map[string]any{"id": "fan", "name": "Fan Top 50", "owner": map[string]any{"id": "someone"}},
				nil,
				map[string]any{"id": "official", "name": "Top 50 - Global", "owner": map[string]any{"id": "spotify"}},
			}},
		})
		api.Handle("GET /playlists/{id}/tracks", func(w http.ResponseWriter, r *http.Request) {
			if r.PathValue("id") != "official" {
				tu.WriteJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"status": 404}})
				return
			}
			tu.WriteJSON(w, http.StatusOK, tu.PlaylistItems(tu.URIs("hit", 42)...))
		})
		srv := newTestServer(api, nil)

		rec := post(srv, "/trending", ``, session("tok")...)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		body := decode(t, rec)
		if body["added"] != float64(42) {
			t.Errorf("expected 42 added, got %v", body["added"])
		}
		top, _ := body["topTrack"].(map[string]any)
		if top["uri"] != "spotify:track:hit0" {
			t.Errorf("unexpected top track: %v", top)
		}
		if reads := api.CallsTo(http.MethodGet, "/playlists/fan/tracks"); len(reads) != 0 {
			t.Error("spotify-owned playlist should be read first")
		}
	})

	t.Run("random kpop samples a 260-track pool down to 50", func(t *testing.T) {
		api := upstream(t)
		api.JSON("GET /recommendations/available-genre-seeds", http.StatusOK, map[string]any{"genres": []string{"k-pop", "pop"}})
		api.JSON("GET /recommendations", http.StatusNotFound, map[string]any{"error": "gone"})
		items := make([]any, 5)
		for i := range items {
			items[i] = map[string]any{"id": fmt.Sprintf("cat%d", i), "name": "K-Pop Hits"}
		}
		api.JSON("GET /browse/categories/{id}/playlists", http.StatusOK, map[string]any{"playlists": map[string]any{"items": items}})
		api.Handle("GET /playlists/{id}/tracks", func(w http.ResponseWriter, r *http.Request) {
			tu.WriteJSON(w, http.StatusOK, tu.PlaylistItems(tu.URIs(r.PathValue("id")+"-", 65)...))
		})
		srv := newTestServer(api, nil)

		rec := post(srv, "/genre-random", `{"genre":"KPOP"}`, session("tok")...)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if body := decode(t, rec); body["added"] != float64(50) {
			t.Errorf("expected 50 added, got %v", body["added"])
		}
		reads := 0
		for _, c := range api.Calls() {
			if c.Method == http.MethodGet && strings.HasPrefix(c.Path, "/playlists/cat") {
				reads++
			}
		}
		if reads != tasks.SampleCandidates {
			t.Errorf("expected %d sampled playlists, got %d", tasks.SampleCandidates, reads)
		}
	})

	t.Run("exhausted chain answers no_tracks without creating a playlist", func(t *testing.T) {
		api := upstream(t)
		srv := newTestServer(api, nil)

		rec := post(srv, "/genre-random", `{"genre":"edm"}`, session("tok")...)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decode(t, rec)
		if body["error"] != "no_tracks" {
			t.Errorf("expected no_tracks, got %v", body["error"])
		}
		if details, _ := body["details"].(string); !strings.HasPrefix(details, "no catalog tracks found for 'edm'") {
			t.Errorf("unexpected details: %q", details)
		}
		if creates := api.CallsTo(http.MethodPost, "/users/u1/playlists"); len(creates) != 0 {
			t.Errorf("expected no playlist, got %d creates", len(creates))
		}
	})

	t.Run("bad input", func(t *testing.T) {
		tests := []struct {
			name string
			path string
			body string
			kind string
		}{
			{"missing genre", "/genre-random", `{}`, "missing_genre"},
			{"blank genre", "/genre-random", `{"genre":"  "}`, "missing_genre"},
			{"unparseable body", "/genre-random", `{genre: pop`, "missing_genre"},
			{"unknown range", "/top-tracks", `{"range":"weekly"}`, "invalid_range"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				api := upstream(t)
				srv := newTestServer(api, nil)

				rec := post(srv, tt.path, tt.body, session("tok")...)
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("expected 400, got %d", rec.Code)
				}
				if body := decode(t, rec); body["error"] != tt.kind {
					t.Errorf("expected %s, got %v", tt.kind, body["error"])
				}
				if calls := api.Calls(); len(calls) != 0 {
					t.Errorf("expected zero upstream calls, got %d", len(calls))
				}
			})
		}
	})

	t.Run("out of range limits saturate", func(t *testing.T) {
		tests := []struct {
			name  string
			path  string
			body  string
			query string
			want  string
		}{
			{"huge number on genre mode", "/create-playlist", `{"genre":"pop","limit":1e300}`, "/recommendations", "100"},
			{"huge numeric string on genre mode", "/create-playlist", `{"genre":"pop","limit":"1e30"}`, "/recommendations", "100"},
			{"huge negative on genre mode", "/create-playlist", `{"genre":"pop","limit":-1e300}`, "/recommendations", "10"},
			{"explicit zero reads as absent", "/create-playlist", `{"genre":"pop","limit":0}`, "/recommendations", "50"},
			{"NaN reads as absent", "/create-playlist", `{"genre":"pop","limit":"NaN"}`, "/recommendations", "50"},
			{"huge number on top tracks", "/top-tracks", `{"limit":1e300}`, "/me/top/tracks", "50"},
			{"infinity reads as absent", "/top-tracks", `{"limit":"+Inf"}`, "/me/top/tracks", "50"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				api := upstream(t)
				api.Handle("GET /search", func(w http.ResponseWriter, r *http.Request) {
					name := r.URL.Query().Get("q")
					tu.WriteJSON(w, http.StatusOK, map[string]any{
						"artists": map[string]any{"items": []map[string]any{{"id": "id-" + name, "name": name}}},
					})
				})
				api.JSON("GET /recommendations", http.StatusOK, tu.Tracks(tu.URIs("pop", 10)...))
				api.JSON("GET /me/top/tracks", http.StatusOK, map[string]any{"items": tu.Tracks(tu.URIs("top", 10)...)["tracks"]})
				srv := newTestServer(api, nil)

				rec := post(srv, tt.path, tt.body, session("tok")...)
				if rec.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
				}
				calls := api.CallsTo(http.MethodGet, tt.query)
				if len(calls) != 1 {
					t.Fatalf("expected 1 call to %s, got %d", tt.query, len(calls))
				}
				if got := calls[0].Query.Get("limit"); got != tt.want {
					t.Errorf("expected limit=%s upstream, got %s", tt.want, got)
				}
			})
		}
	})

	t.Run("non-string genre is kept", func(t *testing.T) {
		api := upstream(t)
		srv := newTestServer(api, nil)

		rec := post(srv, "/genre-random", `{"genre":123,"limit":20}`, session("tok")...)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decode(t, rec)
		if body["error"] != "no_tracks" {
			t.Errorf("expected no_tracks, got %v", body["error"])
		}
		if details, _ := body["details"].(string); !strings.HasPrefix(details, "no catalog tracks found for '123'") {
			t.Errorf("unexpected details: %q", details)
		}
	})

	t.Run("top tracks honors range and limit", func(t *testing.T) {
		api := upstream(t)
		api.JSON("GET /me/top/tracks", http.StatusOK, map[string]any{"items": tu.Tracks(tu.URIs("top", 10)...)["tracks"]})
		srv := newTestServer(api, nil)

		rec := post(srv, "/top-tracks", `{"range":"long_term","limit":"10"}`, session("tok")...)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		calls := api.CallsTo(http.MethodGet, "/me/top/tracks")
		if len(calls) != 1 || calls[0].Query.Get("time_range") != "long_term" || calls[0].Query.Get("limit") != "10" {
			t.Errorf("unexpected top tracks calls: %+v", calls)
		}
		playlist, _ := decode(t, rec)["playlist"].(map[string]any)
		if playlist["name"] != "Your Top Tracks • All Time" {
			t.Errorf("unexpected name: %v", playlist["name"])
		}
	})

	t.Run("upstream failure answers failed with details", func(t *testing.T) {
		api := tu.NewSpotifyServer(t)
		api.JSON("GET /me", http.StatusOK, map[string]any{"id": "u1"})
		api.JSON("GET /me/top/tracks", http.StatusOK, map[string]any{"items": tu.Tracks(tu.URIs("top", 5)...)["tracks"]})
		api.JSON("POST /users/{id}/playlists", http.StatusForbidden, map[string]any{"error": "forbidden"})
		srv := newTestServer(api, nil)

		rec := post(srv, "/top-tracks", `{}`, session("tok")...)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		body := decode(t, rec)
		if body["error"] != "failed" {
			t.Errorf("expected failed, got %v", body["error"])
		}
		if details, _ := body["details"].(string); !strings.Contains(details, "403") {
			t.Errorf("expected upstream status in details, got %q", details)
		}
	})

	t.Run("GET on a generation route is rejected", func(t *testing.T) {
		srv := newTestServer(upstream(t), nil)
		if rec := get(srv, "/trending", session("tok")...); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestTokenPolicy(t *testing.T) {
	expiring := func(t *testing.T) *tu.SpotifyServer {
		api := upstream(t)
		api.Handle("GET /me/top/tracks", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer fresh" {
				tu.WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "expired"})
				return
			}
			tu.WriteJSON(w, http.StatusOK, map[string]any{"items": tu.Tracks(tu.URIs("top", 3)...)["tracks"]})
		})
		return api
	}

	t.Run("relogin surfaces an expired token as not_logged_in", func(t *testing.T) {
		auth := &fakeAuth{}
		srv := newTestServer(expiring(t), func(o *Options) { o.Auth = auth })

		rec := post(srv, "/top-tracks", `{}`, session("stale")...)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if body := decode(t, rec); body["error"] != "not_logged_in" {
			t.Errorf("expected not_logged_in, got %v", body["error"])
		}
		if auth.refreshed != 0 {
			t.Errorf("relogin policy must not refresh, got %d", auth.refreshed)
		}
	})

	t.Run("refresh retries once and rewrites the cookies", func(t *testing.T) {
		auth := &fakeAuth{}
		api := expiring(t)
		srv := newTestServer(api, func(o *Options) {
			o.Auth = auth
			o.TokenPolicy = shared.TokenPolicyRefresh
		})

		rec := post(srv, "/top-tracks", `{}`, session("stale")...)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if auth.refreshed != 1 {
			t.Errorf("expected one refresh, got %d", auth.refreshed)
		}
		if c := responseCookie(rec, AccessCookie); c == nil || c.Value != "fresh" {
			t.Errorf("expected rewritten access cookie, got %+v", c)
		}
		if c := responseCookie(rec, RefreshCookie); c == nil || c.Value != "r1" {
			t.Errorf("expected kept refresh cookie, got %+v", c)
		}
	})

	t.Run("failed refresh reads as logged out", func(t *testing.T) {
		auth := &fakeAuth{refreshErr: errors.New("invalid_grant")}
		srv := newTestServer(expiring(t), func(o *Options) {
			o.Auth = auth
			o.TokenPolicy = shared.TokenPolicyRefresh
		})

		rec := post(srv, "/top-tracks", `{}`, session("stale")...)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestAuthHandler(t *testing.T) {
	t.Run("login sets state and redirects", func(t *testing.T) {
		srv := newTestServer(upstream(t), nil)

		rec := get(srv, "/login")
		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
		state := responseCookie(rec, StateCookie)
		if state == nil || len(state.Value) != 32 {
			t.Fatalf("expected 32 char state cookie, got %+v", state)
		}
		if !state.HttpOnly || state.SameSite != http.SameSiteLaxMode || state.Path != "/" {
			t.Errorf("unexpected cookie attributes: %+v", state)
		}

		loc, err := url.Parse(rec.Header().Get("Location"))
		if err != nil {
			t.Fatalf("bad location: %v", err)
		}
		if loc.Query().Get("state") != state.Value || loc.Query().Get("show_dialog") != "true" {
			t.Errorf("unexpected redirect: %s", loc)
		}
	})

	t.Run("callback", func(t *testing.T) {
		tests := []struct {
			name      string
			query     string
			stored    string
			auth      *fakeAuth
			location  string
			wantToken bool
		}{
			{"success", "?code=c1&state=s1", "s1", &fakeAuth{}, "/", true},
			{"state mismatch", "?code=c1&state=s2", "s1", &fakeAuth{}, "/", false},
			{"missing state cookie", "?code=c1&state=s1", "", &fakeAuth{}, "/", false},
			{"missing code", "?state=s1", "s1", &fakeAuth{}, "/", false},
			{"exchange failure", "?code=c1&state=s1", "s1", &fakeAuth{exchangeErr: shared.ErrAuthFailed}, "/?error=auth", false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				srv := newTestServer(upstream(t), func(o *Options) { o.Auth = tt.auth })

				var cookies []*http.Cookie
				if tt.stored != "" {
					cookies = append(cookies, &http.Cookie{Name: StateCookie, Value: tt.stored})
				}
				rec := get(srv, "/callback"+tt.query, cookies...)

				if rec.Code != http.StatusFound {
					t.Fatalf("expected 302, got %d", rec.Code)
				}
				if loc := rec.Header().Get("Location"); loc != tt.location {
					t.Errorf("expected redirect to %s, got %s", tt.location, loc)
				}

				access := responseCookie(rec, AccessCookie)
				if tt.wantToken {
					if access == nil || access.Value != "access-c1" || !access.HttpOnly {
						t.Errorf("expected access cookie, got %+v", access)
					}
					if refresh := responseCookie(rec, RefreshCookie); refresh == nil || refresh.Value != "refresh-c1" {
						t.Errorf("expected refresh cookie, got %+v", refresh)
					}
				} else if access != nil {
					t.Errorf("expected no session cookie, got %+v", access)
				}
			})
		}
	})

	t.Run("logout clears cookies", func(t *testing.T) {
		srv := newTestServer(upstream(t), nil)

		rec := get(srv, "/logout", session("tok")...)
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
			t.Fatalf("expected redirect to /login, got %d %s", rec.Code, rec.Header().Get("Location"))
		}
		for _, name := range []string{AccessCookie, RefreshCookie} {
			if c := responseCookie(rec, name); c == nil || c.MaxAge >= 0 {
				t.Errorf("expected %s to be expired, got %+v", name, c)
			}
		}
	})

	t.Run("me", func(t *testing.T) {
		api := upstream(t)
		srv := newTestServer(api, nil)

		if body := decode(t, get(srv, "/me")); body["loggedIn"] != false {
			t.Errorf("expected logged out, got %v", body)
		}
		if len(api.Calls()) != 0 {
			t.Error("anonymous /me should not call the API")
		}

		body := decode(t, get(srv, "/me", session("tok")...))
		me, _ := body["me"].(map[string]any)
		if body["loggedIn"] != true || me["id"] != "u1" {
			t.Errorf("unexpected body: %v", body)
		}
	})

	t.Run("me with a rejected token", func(t *testing.T) {
		api := tu.NewSpotifyServer(t)
		api.JSON("GET /me", http.StatusUnauthorized, map[string]any{"error": "expired"})
		srv := newTestServer(api, nil)

		rec := get(srv, "/me", session("stale")...)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body := decode(t, rec); body["loggedIn"] != false {
			t.Errorf("expected logged out, got %v", body)
		}
	})
}

func TestServerRoutes(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		srv := newTestServer(upstream(t), nil)
		rec := get(srv, "/healthz")
		if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
			t.Errorf("unexpected healthz: %d %s", rec.Code, rec.Body.String())
		}
		if rec.Header().Get(RequestIDHeader) == "" {
			t.Error("expected a request id header")
		}
	})

	t.Run("index", func(t *testing.T) {
		index := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "<html>") })
		srv := newTestServer(upstream(t), func(o *Options) { o.Index = index })

		if rec := get(srv, "/"); rec.Code != http.StatusOK || rec.Body.String() != "<html>" {
			t.Errorf("unexpected index: %d %s", rec.Code, rec.Body.String())
		}
		if rec := get(srv, "/nope"); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for unknown path, got %d", rec.Code)
		}
	})

	t.Run("history", func(t *testing.T) {
		api := upstream(t)
		history := &memoryHistory{}
		history.Record(models.NewGeneration(0, models.ModeTrending, "", "u1", "p1", "Trending", 50, 42, "editorial:x"))
		history.Record(models.NewGeneration(0, models.ModeTopTracks, "", "someone-else", "p2", "Top", 50, 50, "top-tracks"))
		srv := newTestServer(api, func(o *Options) { o.History = history })

		rec := get(srv, "/history", session("tok")...)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var body historyResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(body.Items) != 1 || body.Items[0].PlaylistID != "p1" || body.Items[0].Added != 42 {
			t.Errorf("unexpected items: %+v", body.Items)
		}
	})

	t.Run("history disabled", func(t *testing.T) {
		api := upstream(t)
		srv := newTestServer(api, nil)

		rec := get(srv, "/history", session("tok")...)
		if rec.Code != http.StatusOK || rec.Body.String() != "{\"items\":[]}\n" {
			t.Errorf("unexpected body: %d %s", rec.Code, rec.Body.String())
		}
		if len(api.Calls()) != 0 {
			t.Error("disabled history should not call the API")
		}
	})

	t.Run("ListenAndServe stops with the context", func(t *testing.T) {
		srv := newTestServer(upstream(t), nil)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("expected clean shutdown, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("server did not shut down")
		}
	})
}
