package tasks

import (
	"slices"
	"strings"
)

// Genre is a UI genre key.
type Genre string

const (
	EDM    Genre = "edm"
	HipHop Genre = "hiphop"
	Pop    Genre = "pop"
	Rock   Genre = "rock"
	RnB    Genre = "rnb"
	KPop   Genre = "kpop"
)

// Genres lists the supported genre keys in display order.
var Genres = []Genre{EDM, HipHop, Pop, Rock, RnB, KPop}

// ParseGenre normalizes a raw key. Unknown keys are kept so they can pass through as seed tokens.
func ParseGenre(s string) Genre {
	return Genre(strings.ToLower(strings.TrimSpace(s)))
}

// Known reports whether g is one of [Genres].
func (g Genre) Known() bool {
	return slices.Contains(Genres, g)
}

func (g Genre) String() string {
	return string(g)
}

var seedArtists = map[Genre][]string{
	EDM:    {"ILLENIUM", "Dabin", "Knock2", "Seven Lions", "SLANDER"},
	HipHop: {"Kendrick Lamar", "J. Cole", "Travis Scott", "Drake", "21 Savage"},
	Pop:    {"Taylor Swift", "Ariana Grande", "Dua Lipa", "Olivia Rodrigo", "The Weeknd"},
	Rock:   {"Foo Fighters", "Red Hot Chili Peppers", "Muse", "Arctic Monkeys", "The Killers"},
	RnB:    {"SZA", "Frank Ocean", "The Weeknd", "H.E.R.", "Brent Faiyaz"},
	KPop:   {"BTS", "BLACKPINK", "Stray Kids", "NewJeans", "SEVENTEEN"},
}

var seedTokens = map[Genre]string{
	EDM:    "edm",
	HipHop: "hip-hop",
	Pop:    "pop",
	Rock:   "rock",
	RnB:    "r-n-b",
	KPop:   "k-pop",
}

var searchQueries = map[Genre]string{
	HipHop: "hip hop",
	RnB:    "r&b OR r n b",
	KPop:   "k-pop OR kpop",
}

var categoryIDs = map[Genre]string{
	EDM:    "edm_dance",
	HipHop: "hiphop",
	Pop:    "pop",
	Rock:   "rock",
	RnB:    "rnb",
	KPop:   "kpop",
}

// fallbackSeeds are tried in order when the mapped seed token is not an available genre seed.
var fallbackSeeds = []string{"edm", "pop", "rock", "hip-hop", "r-n-b", "k-pop"}

// SeedArtists returns the curated artist names for g, or nil for unknown genres.
func (g Genre) SeedArtists() []string {
	return seedArtists[g]
}

// SeedToken returns the Spotify seed genre for g.
func (g Genre) SeedToken() string {
	if tok, ok := seedTokens[g]; ok {
		return tok
	}
	return string(g)
}

// SearchQuery returns the playlist search text for g.
func (g Genre) SearchQuery() string {
	if q, ok := searchQueries[g]; ok {
		return q
	}
	return string(g)
}

// CategoryID returns the browse category for g.
func (g Genre) CategoryID() string {
	if id, ok := categoryIDs[g]; ok {
		return id
	}
	return string(g)
}

// Target is a single recommendation tuning attribute, sent as target_{Attr}.
type Target struct {
	Attr  string
	Value float64
}

// Tuning is an ordered set of targets. The zero value applies no tuning.
type Tuning []Target

// Targets converts t to the form [services.RecommendationQuery] expects.
func (t Tuning) Targets() map[string]float64 {
	if len(t) == 0 {
		return nil
	}
	out := make(map[string]float64, len(t))
	for _, target := range t {
		out[target.Attr] = target.Value
	}
	return out
}

var tunings = map[Genre]Tuning{
	EDM:    {{"energy", 0.75}, {"danceability", 0.7}},
	HipHop: {{"speechiness", 0.2}, {"tempo", 95}},
	Pop:    {{"valence", 0.7}},
}

// Tuning returns the light per-genre tuning for g.
func (g Genre) Tuning() Tuning {
	return tunings[g]
}

// seedTuning looks tuning up by seed token, as the catalog mode does after seed validation.
func seedTuning(seed string) Tuning {
	if seed == seedTokens[HipHop] {
		return HipHop.Tuning()
	}
	return Genre(seed).Tuning()
}
