package server

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/spotmix/internal/models"
	"github.com/desertthunder/spotmix/internal/services"
	"github.com/desertthunder/spotmix/internal/shared"
	"github.com/desertthunder/spotmix/internal/tasks"
	"golang.org/x/oauth2"
)

const (
	maxBodyBytes = 1 << 16
	historyLimit = 20
)

// flexInt decodes a JSON number or numeric string. Anything else, including NaN and infinities, reads as
// zero. Finite values are saturated to the int32 range before conversion.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*f = 0
		return nil
	}
	*f = flexInt(math.Max(math.Min(v, math.MaxInt32), math.MinInt32))
	return nil
}

// flexString decodes a JSON string, or the literal text of a number or boolean. Null, arrays and
// objects read as empty.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	raw := strings.TrimSpace(string(b))
	if raw == "true" || raw == "false" {
		*f = flexString(raw)
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		*f = flexString(raw)
		return nil
	}
	*f = ""
	return nil
}

// generateBody is the union of every generation route's body.
type generateBody struct {
	Genre flexString `json:"genre"`
	Name  flexString `json:"name"`
	Limit flexInt    `json:"limit"`
	Range flexString `json:"range"`
}

// decodeBody reads r's JSON body. An empty or unparseable body yields the zero value.
func decodeBody(r *http.Request) generateBody {
	var body generateBody
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(data) == 0 {
		return body
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return generateBody{}
	}
	return body
}

type generateResponse struct {
	OK       bool                      `json:"ok"`
	Playlist *services.SpotifyPlaylist `json:"playlist"`
	Added    int                       `json:"added"`
	TopTrack *services.SpotifyTrack    `json:"topTrack,omitempty"`
}

// GenerateHandler serves the four generation routes, one engine call each.
// Implements the Handler interface for registration with a Router.
type GenerateHandler struct {
	srv *Server
}

// NewGenerateHandler creates a new GenerateHandler for srv.
func NewGenerateHandler(srv *Server) *GenerateHandler {
	return &GenerateHandler{srv: srv}
}

// Routes returns the HTTP routes this handler serves.
func (h *GenerateHandler) Routes() []string {
	return []string{"POST /create-playlist", "POST /genre-random", "POST /top-tracks", "POST /trending"}
}

// ServeHTTP checks the session, maps the route and body to a [tasks.Request], and runs it.
func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.srv.requireSession(h.generate)(w, r)
}

func (h *GenerateHandler) generate(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	req := tasks.Request{Genre: strings.TrimSpace(string(body.Genre)), Name: string(body.Name), Limit: int(body.Limit)}

	switch r.URL.Path {
	case "/create-playlist":
		req.Mode = models.ModePersonalized
		req.Genre = strings.ToLower(req.Genre)
	case "/genre-random":
		req.Mode = models.ModeCatalogRandom
		req.Genre = strings.ToLower(req.Genre)
		if req.Genre == "" {
			writeError(w, http.StatusBadRequest, kindMissingGenre, "")
			return
		}
	case "/top-tracks":
		req.Mode = models.ModeTopTracks
		req.TimeRange = strings.TrimSpace(string(body.Range))
		if req.TimeRange == "" {
			req.TimeRange = tasks.ShortTerm
		}
		if _, ok := tasks.RangeLabel(req.TimeRange); !ok {
			writeError(w, http.StatusBadRequest, kindInvalidRange, "range must be one of short_term, medium_term, long_term")
			return
		}
	case "/trending":
		req.Mode = models.ModeTrending
	default:
		http.NotFound(w, r)
		return
	}

	h.srv.runGeneration(w, r, req)
}

// runGeneration runs req with a per-request client and writes the outcome.
//
// A token refreshed during the run is written back to the cookies before the body.
func (s *Server) runGeneration(w http.ResponseWriter, r *http.Request, req tasks.Request) {
	sess := sessionFrom(r.Context())
	logger := s.logger.With("mode", req.Mode, "request_id", RequestIDFrom(r.Context()))

	var refreshed *oauth2.Token
	client, err := s.newCatalog(sess, func(t *oauth2.Token) { refreshed = t })
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	engine := tasks.NewPlaylistEngine(client, logger, s.opts.Engine)
	result, err := engine.Generate(r.Context(), req, nil)
	if refreshed != nil {
		s.sessions.SaveToken(w, refreshed)
	}
	if err != nil {
		logger.Error("generation failed", "error", err)
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		OK:       true,
		Playlist: result.Playlist,
		Added:    result.Added,
		TopTrack: result.TopTrack,
	})
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	switch kind {
	case kindNotLoggedIn:
		writeError(w, status, kind, "")
	case kindNoTracks:
		writeError(w, status, kind, strings.TrimPrefix(err.Error(), shared.ErrNoTracks.Error()+": "))
	default:
		writeError(w, status, kind, err.Error())
	}
}

type historyResponse struct {
	Items []models.GenerationView `json:"items"`
}

// handleHistory lists the caller's recent generations. Without a history store the list is empty.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	items := []models.GenerationView{}
	if s.opts.History == nil {
		writeJSON(w, http.StatusOK, historyResponse{Items: items})
		return
	}

	sess := sessionFrom(r.Context())
	var refreshed *oauth2.Token
	client, err := s.newCatalog(sess, func(t *oauth2.Token) { refreshed = t })
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	user, err := client.CurrentUser(r.Context())
	if refreshed != nil {
		s.sessions.SaveToken(w, refreshed)
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	limit := historyLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, 100)
	}

	gens, err := s.opts.History.Recent(user.ID, limit)
	if err != nil {
		s.logger.Error("failed to read history", "error", err)
		writeError(w, http.StatusInternalServerError, kindFailed, err.Error())
		return
	}
	for _, g := range gens {
		items = append(items, g.View())
	}
	writeJSON(w, http.StatusOK, historyResponse{Items: items})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
