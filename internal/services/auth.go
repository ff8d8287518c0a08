package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotmix/internal/shared"
	"golang.org/x/oauth2"
)

// Scopes requested at login. user-top-read backs the top-tracks mode.
var Scopes = []string{
	"playlist-modify-public",
	"playlist-modify-private",
	"user-read-email",
	"user-read-private",
	"user-top-read",
}

// SpotifyAuth wraps the OAuth2 authorization-code flow against the Spotify accounts service.
type SpotifyAuth struct {
	config *oauth2.Config
}

// NewSpotifyAuth builds the OAuth2 config from credentials. authURL and tokenURL override the
// Spotify accounts endpoints when non-empty.
func NewSpotifyAuth(creds shared.SpotifyConfig, authURL, tokenURL string) *SpotifyAuth {
	if authURL == "" {
		authURL = spotifyAuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}

	return &SpotifyAuth{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
	}
}

// AuthURL returns the authorization URL for state, forcing the consent dialog so scope changes are granted.
func (a *SpotifyAuth) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// Exchange trades an authorization code for tokens.
func (a *SpotifyAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange failed: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Refresh runs the refresh grant. The original refresh token is kept when Spotify does not rotate it.
func (a *SpotifyAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	token, err := a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

// refresherSource adapts a [TokenRefresher] to [oauth2.TokenSource].
type refresherSource struct {
	ctx          context.Context
	refresher    TokenRefresher
	refreshToken string
}

func (r *refresherSource) Token() (*oauth2.Token, error) {
	token, err := r.refresher.Refresh(r.ctx, r.refreshToken)
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == "" {
		token.RefreshToken = r.refreshToken
	}
	return token, nil
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports every new access token to callback.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != r.last {
		r.last = token.AccessToken
		if r.callback != nil {
			r.callback(token)
		}
	}
	return token, nil
}
