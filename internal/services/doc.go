// Package services implements the authenticated Spotify Web API client used by the playlist engine.
//
// # Client
//
// [SpotifyService] is built per request from a session's bearer token. It issues sequential calls
// against the Web API through a shared [rate.Limiter] and decodes responses into the typed
// Spotify* structs in this package.
//
// # Errors
//
// Any non-2xx response becomes an [*APIError] carrying method, path, status, and body text. APIError
// matches [shared.ErrAPIRequest] with [errors.Is]; a 401 additionally matches [shared.ErrTokenExpired].
//
// # OAuth
//
// [SpotifyAuth] wraps an [oauth2.Config] for the authorization-code exchange and the refresh grant.
// When a [SpotifyService] is given a [TokenRefresher] and a refresh token, a 401 triggers one refresh
// and a single retry of the failed call; the new token is reported through the refresh callback so
// the caller can persist it.
package services
