package server

import (
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Cookie names shared with the browser UI.
const (
	AccessCookie  = "sp_access_token"
	RefreshCookie = "sp_refresh_token"
	StateCookie   = "oauth_state"
)

const stateTTL = 10 * time.Minute

// Session holds the tokens of one browser.
type Session struct {
	Access  string
	Refresh string
}

// LoggedIn reports whether the session carries an access token.
func (s Session) LoggedIn() bool {
	return s.Access != ""
}

// SessionStore reads and writes the session cookies. Cookies are HTTP-only, SameSite=Lax, and scoped to "/".
type SessionStore struct {
	secure bool
}

// NewSessionStore creates a store. secure marks cookies Secure, for HTTPS deployments.
func NewSessionStore(secure bool) *SessionStore {
	return &SessionStore{secure: secure}
}

// Load reads the session from r. Missing cookies yield empty tokens.
func (s *SessionStore) Load(r *http.Request) Session {
	return Session{
		Access:  cookieValue(r, AccessCookie),
		Refresh: cookieValue(r, RefreshCookie),
	}
}

// Save writes both token cookies.
func (s *SessionStore) Save(w http.ResponseWriter, sess Session) {
	http.SetCookie(w, s.cookie(AccessCookie, sess.Access, 0))
	http.SetCookie(w, s.cookie(RefreshCookie, sess.Refresh, 0))
}

// SaveToken writes the cookies for a token returned by the token endpoint.
func (s *SessionStore) SaveToken(w http.ResponseWriter, token *oauth2.Token) {
	s.Save(w, Session{Access: token.AccessToken, Refresh: token.RefreshToken})
}

// Clear expires both token cookies.
func (s *SessionStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(AccessCookie, "", -1))
	http.SetCookie(w, s.cookie(RefreshCookie, "", -1))
}

// SetState stores the OAuth CSRF state for the callback.
func (s *SessionStore) SetState(w http.ResponseWriter, state string) {
	http.SetCookie(w, s.cookie(StateCookie, state, int(stateTTL.Seconds())))
}

// State returns the stored OAuth state.
func (s *SessionStore) State(r *http.Request) string {
	return cookieValue(r, StateCookie)
}

// ClearState expires the state cookie.
func (s *SessionStore) ClearState(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(StateCookie, "", -1))
}

func (s *SessionStore) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
