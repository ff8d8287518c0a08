package models

import (
	"fmt"
	"time"
)

// Mode identifies how a playlist was generated.
type Mode string

const (
	ModePersonalized  Mode = "genre"
	ModeCatalogRandom Mode = "random"
	ModeTopTracks     Mode = "top"
	ModeTrending      Mode = "trending"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModePersonalized, ModeCatalogRandom, ModeTopTracks, ModeTrending:
		return true
	}
	return false
}

func (m Mode) String() string {
	return string(m)
}

// Generation records a playlist the engine created.
type Generation struct {
	id           string
	sequence     int
	mode         Mode
	genre        string
	userID       string
	playlistID   string
	playlistName string
	requested    int
	added        int
	strategy     string
	createdAt    time.Time
}

// NewGeneration creates a Generation stamped with the current time. The id is assigned on insert.
func NewGeneration(sequence int, mode Mode, genre, userID, playlistID, playlistName string, requested, added int, strategy string) *Generation {
	return &Generation{
		sequence:     sequence,
		mode:         mode,
		genre:        genre,
		userID:       userID,
		playlistID:   playlistID,
		playlistName: playlistName,
		requested:    requested,
		added:        added,
		strategy:     strategy,
		createdAt:    time.Now().UTC(),
	}
}

func (g *Generation) ID() string           { return g.id }
func (g *Generation) Sequence() int        { return g.sequence }
func (g *Generation) Mode() Mode           { return g.mode }
func (g *Generation) Genre() string        { return g.genre }
func (g *Generation) UserID() string       { return g.userID }
func (g *Generation) PlaylistID() string   { return g.playlistID }
func (g *Generation) PlaylistName() string { return g.playlistName }
func (g *Generation) Requested() int       { return g.requested }
func (g *Generation) Added() int           { return g.added }
func (g *Generation) Strategy() string     { return g.strategy }
func (g *Generation) CreatedAt() time.Time { return g.createdAt }

func (g *Generation) SetID(id string)          { g.id = id }
func (g *Generation) SetSequence(seq int)      { g.sequence = seq }
func (g *Generation) SetCreatedAt(t time.Time) { g.createdAt = t }

// Validate checks required fields.
func (g *Generation) Validate() error {
	if g.id == "" {
		return fmt.Errorf("generation id is required")
	}
	if !g.mode.Valid() {
		return fmt.Errorf("invalid generation mode: %q", g.mode)
	}
	if g.userID == "" {
		return fmt.Errorf("user id is required")
	}
	if g.playlistID == "" {
		return fmt.Errorf("playlist id is required")
	}
	if g.added < 0 || g.requested < 0 {
		return fmt.Errorf("track counts must not be negative")
	}
	return nil
}

// GenerationView is the JSON form of a [Generation] returned by the history endpoint.
type GenerationView struct {
	ID           string    `json:"id"`
	Sequence     int       `json:"sequence"`
	Mode         Mode      `json:"mode"`
	Genre        string    `json:"genre,omitempty"`
	PlaylistID   string    `json:"playlistId"`
	PlaylistName string    `json:"playlistName"`
	Requested    int       `json:"requested"`
	Added        int       `json:"added"`
	Strategy     string    `json:"strategy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// View converts g for JSON rendering.
func (g *Generation) View() GenerationView {
	return GenerationView{
		ID:           g.id,
		Sequence:     g.sequence,
		Mode:         g.mode,
		Genre:        g.genre,
		PlaylistID:   g.playlistID,
		PlaylistName: g.playlistName,
		Requested:    g.requested,
		Added:        g.added,
		Strategy:     g.strategy,
		CreatedAt:    g.createdAt,
	}
}
