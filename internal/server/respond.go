package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/spotmix/internal/shared"
)

// Error kinds returned in the "error" field.
const (
	kindNotLoggedIn  = "not_logged_in"
	kindMissingGenre = "missing_genre"
	kindInvalidRange = "invalid_range"
	kindNoTracks     = "no_tracks"
	kindFailed       = "failed"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, details string) {
	writeJSON(w, status, errorBody{Error: kind, Details: details})
}

// classify maps an engine error to a status and error kind.
//
// An expired or unrefreshable token reads as a logged-out session. Missing genre and bad range are
// reported by the handlers before the engine runs, so any remaining argument error is a 400 failed.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrTokenExpired),
		errors.Is(err, shared.ErrRefreshFailed),
		errors.Is(err, shared.ErrNoRefreshToken):
		return http.StatusUnauthorized, kindNotLoggedIn
	case errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest, kindMissingGenre
	case errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest, kindFailed
	case errors.Is(err, shared.ErrNoTracks):
		return http.StatusNotFound, kindNoTracks
	default:
		return http.StatusInternalServerError, kindFailed
	}
}
