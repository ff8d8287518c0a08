// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Call is one request received by [SpotifyServer].
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
	Auth   string
}

// SpotifyServer is an httptest-backed fake of the Spotify Web API that records every request.
//
// Routes use [http.ServeMux] patterns, e.g. "GET /playlists/{id}/tracks". Unrouted requests get a 404.
type SpotifyServer struct {
	*httptest.Server
	mux   *http.ServeMux
	mu    sync.Mutex
	calls []Call
}

// NewSpotifyServer starts a fake Web API that is closed when the test ends.
func NewSpotifyServer(t *testing.T) *SpotifyServer {
	t.Helper()
	s := &SpotifyServer{mux: http.NewServeMux()}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *SpotifyServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Body:   body,
		Auth:   r.Header.Get("Authorization"),
	})
	s.mu.Unlock()

	r.Body = io.NopCloser(strings.NewReader(string(body)))
	s.mux.ServeHTTP(w, r)
}

// Handle registers a handler for pattern.
func (s *SpotifyServer) Handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, h)
}

// JSON registers a route that always answers with status and body encoded as JSON.
func (s *SpotifyServer) JSON(pattern string, status int, body any) {
	s.Handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Calls returns a copy of every recorded request.
func (s *SpotifyServer) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded requests matching method and path exactly.
func (s *SpotifyServer) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// WriteJSON writes body as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// Tracks builds a {"tracks": [...]} payload with one entry per uri.
func Tracks(uris ...string) map[string]any {
	items := make([]map[string]any, len(uris))
	for i, uri := range uris {
		items[i] = map[string]any{"id": strings.TrimPrefix(uri, "spotify:track:"), "name": uri, "uri": uri}
	}
	return map[string]any{"tracks": items}
}

// PlaylistItems builds a {"items": [{"track": ...}]} playlist page with one entry per uri.
func PlaylistItems(uris ...string) map[string]any {
	items := make([]map[string]any, len(uris))
	for i, uri := range uris {
		items[i] = map[string]any{"track": map[string]any{"id": strings.TrimPrefix(uri, "spotify:track:"), "name": uri, "uri": uri}}
	}
	return map[string]any{"items": items}
}

// URIs returns n track uris "spotify:track:{prefix}{i}".
func URIs(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "spotify:track:" + prefix + strconv.Itoa(i)
	}
	return out
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
