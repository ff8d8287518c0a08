// Package server exposes the playlist generator over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally, registering "METHOD /path" patterns.
//
// # Sessions
//
// A browser session is two HTTP-only cookies, sp_access_token and sp_refresh_token, plus a short-lived
// oauth_state cookie during login. [SessionStore] reads them per request; nothing is kept server side.
//
// # Handlers
//
// [AuthHandler] serves /login, /callback, /logout and /me. [GenerateHandler] serves one route per generation
// mode and answers {ok, playlist, added[, topTrack]} or {error, details}. Error kinds:
//
//	not_logged_in  401
//	missing_genre  400
//	invalid_range  400
//	no_tracks      404
//	failed         500
//
// Every generation builds its own Web API client from the session cookies, sharing only the rate limiter.
// Under the "refresh" token policy a 401 from the Web API triggers one refresh, and the new tokens are
// written back to the cookies.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
