package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/spotmix/internal/server"
	"github.com/desertthunder/spotmix/internal/shared"
	"github.com/desertthunder/spotmix/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const loginTimeout = 2 * time.Minute

// AuthLogin runs the authorization-code flow against a one-shot local callback server and saves the token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET or fill in config.toml", shared.ErrMissingCredentials)
	}

	token, err := r.doOAuth(ctx, creds.RedirectURI)
	if err != nil {
		return err
	}

	if err := shared.SaveToken(r.tokenPath, token); err != nil {
		return err
	}

	r.writePlainln("%s", ui.Success("✓ Logged in to Spotify"))
	r.writePlain("✓ Token saved to %s\n\n", r.tokenPath)
	r.writePlain("You can now use: spotmix generate genre pop\n")
	return nil
}

// callbackAddr derives the listen address from the redirect URI so Spotify's redirect lands on this process.
func callbackAddr(redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, redirectURI)
	}
	if u.Path != "/callback" {
		return "", fmt.Errorf("%w: redirect_uri must end in /callback, got %q", shared.ErrInvalidConfig, redirectURI)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		return "", fmt.Errorf("%w: redirect_uri needs an explicit port: %v", shared.ErrInvalidConfig, err)
	}
	return net.JoinHostPort(host, port), nil
}

func (r *Runner) doOAuth(ctx context.Context, redirectURI string) (*oauth2.Token, error) {
	addr, err := callbackAddr(redirectURI)
	if err != nil {
		return nil, err
	}

	state := shared.GenerateState()
	authURL := r.auth.AuthURL(state)

	oauthHandler := server.NewOAuthHandler(r.auth, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify login...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("%s", ui.Warning("⚠ Could not open browser automatically."))
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		err = fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if err != nil {
		return nil, err
	}
	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

type authStatus struct {
	LoggedIn    bool   `json:"loggedIn"`
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Country     string `json:"country,omitempty"`
	Expires     string `json:"expires,omitempty"`
	TokenPath   string `json:"tokenPath"`
}

// AuthStatus reports whether the saved token still works by fetching the profile.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	status := authStatus{TokenPath: r.tokenPath}

	client, err := r.catalog(ctx)
	if err == nil {
		user, uerr := client.CurrentUser(ctx)
		if uerr != nil {
			err = uerr
		} else {
			status.LoggedIn = true
			status.ID = user.ID
			status.DisplayName = user.DisplayName
			status.Country = user.Country
			if tok, lerr := shared.LoadToken(r.tokenPath); lerr == nil && !tok.Expiry.IsZero() {
				status.Expires = tok.Expiry.Local().Format(time.RFC1123)
			}
		}
	}
	if err != nil {
		r.logger.Debug("auth status check failed", "error", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if !status.LoggedIn {
		r.writePlain("%s\n", ui.Failure("✗ Not logged in"))
		r.writePlain("Run 'spotmix auth login' to connect your Spotify account.\n")
		return nil
	}

	name := status.DisplayName
	if name == "" {
		name = status.ID
	}
	r.writePlain("%s\n", ui.Success("✓ Logged in as "+name))
	r.writePlain("User ID: %s\n", status.ID)
	if status.Country != "" {
		r.writePlain("Market: %s\n", status.Country)
	}
	if status.Expires != "" {
		r.writePlain("Access token expires: %s\n", status.Expires)
	}
	r.writePlain("Token file: %s\n", status.TokenPath)
	return nil
}

// AuthLogout removes the saved token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := shared.DeleteToken(r.tokenPath); err != nil {
		return err
	}
	r.writePlain("✓ Logged out (removed %s)\n", r.tokenPath)
	return nil
}
