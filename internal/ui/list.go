package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spotmix/internal/models"
	"github.com/desertthunder/spotmix/internal/tasks"
)

var (
	_ list.Item = modeItem{}
	_ list.Item = optionItem{}
)

// modeItem is one generation mode in the first menu.
type modeItem struct {
	mode  models.Mode
	title string
	desc  string
}

func (i modeItem) FilterValue() string { return i.title }
func (i modeItem) Title() string       { return i.title }
func (i modeItem) Description() string { return i.desc }

// optionItem is a genre key or time range in the second menu.
type optionItem struct {
	value string
	label string
}

func (i optionItem) FilterValue() string { return i.label }
func (i optionItem) Title() string       { return i.label }
func (i optionItem) Description() string { return i.value }

func modeItems() []list.Item {
	return []list.Item{
		modeItem{models.ModePersonalized, "Made for you", "Recommendations seeded by a genre and its artists"},
		modeItem{models.ModeCatalogRandom, "Random catalog", "Random picks from the genre's playlists"},
		modeItem{models.ModeTopTracks, "My most played", "Your own top tracks over a time range"},
		modeItem{models.ModeTrending, "Trending now", "A copy of the global Top 50"},
	}
}

var genreLabels = map[tasks.Genre]string{
	tasks.EDM:    "EDM",
	tasks.HipHop: "Hip-Hop",
	tasks.Pop:    "Pop",
	tasks.Rock:   "Rock",
	tasks.RnB:    "R&B",
	tasks.KPop:   "K-Pop",
}

func genreItems() []list.Item {
	items := make([]list.Item, 0, len(tasks.Genres))
	for _, g := range tasks.Genres {
		items = append(items, optionItem{value: string(g), label: genreLabels[g]})
	}
	return items
}

func rangeItems() []list.Item {
	ranges := []string{tasks.ShortTerm, tasks.MediumTerm, tasks.LongTerm}
	items := make([]list.Item, 0, len(ranges))
	for _, r := range ranges {
		label, _ := tasks.RangeLabel(r)
		items = append(items, optionItem{value: r, label: label})
	}
	return items
}
