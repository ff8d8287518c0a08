// package server contains the router, middleware & handlers for the playlist web app
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotmix/internal/models"
	"github.com/desertthunder/spotmix/internal/services"
	"github.com/desertthunder/spotmix/internal/shared"
	"github.com/desertthunder/spotmix/internal/tasks"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, timeouts, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own a group of routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Authenticator runs the OAuth authorization-code flow. [services.SpotifyAuth] implements it.
type Authenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// History lists recorded generations. [repositories.HistoryRecorder] implements it.
type History interface {
	Recent(userID string, limit int) ([]*models.Generation, error)
}

// Options configures a [Server].
type Options struct {
	Auth           Authenticator
	APIBaseURL     string       // Web API base; defaults to the public API
	HTTPClient     *http.Client // upstream client; defaults to [http.DefaultClient]
	Limiter        *rate.Limiter
	TokenPolicy    string // [shared.TokenPolicyRelogin] or [shared.TokenPolicyRefresh]
	RequestTimeout time.Duration
	SecureCookies  bool
	Engine         tasks.Options
	History        History
	Index          http.Handler // served at GET /
	Logger         *log.Logger
}

// Server is the playlist web app.
type Server struct {
	router   *BasicRouter
	opts     Options
	sessions *SessionStore
	logger   *log.Logger
}

// New wires every route onto a fresh [BasicRouter].
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.TokenPolicy == "" {
		opts.TokenPolicy = shared.TokenPolicyRelogin
	}

	s := &Server{
		router:   NewBasicRouter(),
		opts:     opts,
		sessions: NewSessionStore(opts.SecureCookies),
		logger:   opts.Logger,
	}

	s.router.Use(RequestID(), RequestLogger(s.logger), Recoverer(s.logger), Timeout(opts.RequestTimeout))

	if opts.Index != nil {
		s.router.Handle(http.MethodGet, "/{$}", opts.Index)
	}
	s.router.Handler(NewAuthHandler(opts.Auth, s.sessions, s.newCatalog, s.logger))
	s.router.Handler(NewGenerateHandler(s))
	s.router.HandleFunc(http.MethodGet, "/history", s.requireSession(s.handleHistory))
	s.router.HandleFunc(http.MethodGet, "/healthz", s.handleHealth)

	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// newCatalog builds a per-request Web API client for sess.
//
// Under the refresh policy the client refreshes once on a 401 and reports the new token to onRefresh.
func (s *Server) newCatalog(sess Session, onRefresh func(*oauth2.Token)) (*services.SpotifyService, error) {
	opts := services.SpotifyOpts{
		AccessToken:  sess.Access,
		RefreshToken: sess.Refresh,
		BaseURL:      s.opts.APIBaseURL,
		HTTPClient:   s.opts.HTTPClient,
		Limiter:      s.opts.Limiter,
	}
	if strings.EqualFold(s.opts.TokenPolicy, shared.TokenPolicyRefresh) && s.opts.Auth != nil {
		opts.Refresher = s.opts.Auth
	}

	client, err := services.NewSpotifyService(opts)
	if err != nil {
		return nil, err
	}
	if onRefresh != nil {
		client.SetTokenRefreshCallback(onRefresh)
	}
	return client, nil
}
