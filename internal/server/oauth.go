package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotmix/internal/services"
	"github.com/desertthunder/spotmix/internal/shared"
	"golang.org/x/oauth2"
)

type catalogFactory func(sess Session, onRefresh func(*oauth2.Token)) (*services.SpotifyService, error)

// AuthHandler serves the login, callback, logout, and profile routes.
// Implements the Handler interface for registration with a Router.
type AuthHandler struct {
	auth       Authenticator
	sessions   *SessionStore
	newCatalog catalogFactory
	logger     *log.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth Authenticator, sessions *SessionStore, newCatalog catalogFactory, logger *log.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, newCatalog: newCatalog, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"GET /login", "GET /callback", "GET /logout", "GET /me"}
}

// ServeHTTP dispatches on the request path.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login":
		h.login(w, r)
	case "/callback":
		h.callback(w, r)
	case "/logout":
		h.logout(w, r)
	case "/me":
		h.me(w, r)
	default:
		http.NotFound(w, r)
	}
}

// login stores a fresh CSRF state and redirects to the authorize page.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, http.StatusServiceUnavailable, kindFailed, shared.ErrMissingCredentials.Error())
		return
	}

	state := shared.GenerateState()
	h.sessions.SetState(w, state)
	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusFound)
}

// callback validates state, exchanges the code, and stores the tokens.
//
// A missing or mismatched state returns to "/" without a session; an exchange failure adds ?error=auth.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	stored := h.sessions.State(r)
	h.sessions.ClearState(w)

	if code == "" || state == "" || state != stored {
		h.logger.Warn("oauth callback rejected", "error", shared.ErrStateMismatch, "has_code", code != "")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if h.auth == nil {
		http.Redirect(w, r, "/?error=auth", http.StatusFound)
		return
	}

	token, err := h.auth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth exchange failed", "error", err)
		http.Redirect(w, r, "/?error=auth", http.StatusFound)
		return
	}

	h.sessions.SaveToken(w, token)
	h.logger.Info("user authenticated")
	http.Redirect(w, r, "/", http.StatusFound)
}

// logout clears the session and restarts the OAuth flow.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

type meResponse struct {
	LoggedIn bool                  `json:"loggedIn"`
	Me       *services.SpotifyUser `json:"me,omitempty"`
}

// me reports the current profile. Any failure reads as logged out.
func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Load(r)
	if !sess.LoggedIn() {
		writeJSON(w, http.StatusOK, meResponse{})
		return
	}

	var refreshed *oauth2.Token
	client, err := h.newCatalog(sess, func(t *oauth2.Token) { refreshed = t })
	if err != nil {
		writeJSON(w, http.StatusOK, meResponse{})
		return
	}

	user, err := client.CurrentUser(r.Context())
	if refreshed != nil {
		h.sessions.SaveToken(w, refreshed)
	}
	if err != nil {
		h.logger.Debug("profile lookup failed", "error", err)
		writeJSON(w, http.StatusOK, meResponse{})
		return
	}

	writeJSON(w, http.StatusOK, meResponse{LoggedIn: true, Me: user})
}

var _ Authenticator = (*services.SpotifyAuth)(nil)
