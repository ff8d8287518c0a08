// package formatter renders generated playlists and the generation history as CSV, Markdown, plain text, and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spotmix/internal/models"
	"github.com/desertthunder/spotmix/internal/services"
)

const timeLayout = "2006-01-02 15:04"

// Formats accepted by [WriteHistoryExport].
var Formats = []string{"json", "csv", "markdown", "txt"}

// PlaylistURL returns the open.spotify.com link for a playlist, preferring the API's own external URL.
func PlaylistURL(pl *services.SpotifyPlaylist) string {
	if pl == nil {
		return ""
	}
	if u := pl.ExternalURLs["spotify"]; u != "" {
		return u
	}
	return "https://open.spotify.com/playlist/" + pl.ID
}

// TrackLine formats a track as "Artist, Artist - Title".
func TrackLine(t *services.SpotifyTrack) string {
	if t == nil {
		return ""
	}
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	if len(names) == 0 {
		return t.Name
	}
	return fmt.Sprintf("%s - %s", strings.Join(names, ", "), t.Name)
}

// SummarizePlaylist renders a generated playlist as a few lines of plain text.
func SummarizePlaylist(pl *services.SpotifyPlaylist, added int, strategy string, top *services.SpotifyTrack) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Playlist: %s\n", pl.Name)
	fmt.Fprintf(&buf, "URL: %s\n", PlaylistURL(pl))
	fmt.Fprintf(&buf, "Tracks added: %d\n", added)
	if strategy != "" {
		fmt.Fprintf(&buf, "Source: %s\n", strategy)
	}
	if top != nil {
		fmt.Fprintf(&buf, "Top track: %s\n", TrackLine(top))
	}
	return buf.String()
}

// HistoryToCSV converts generations to CSV with columns: Sequence, Created, Mode, Genre, Playlist ID, Playlist, Requested, Added, Strategy
func HistoryToCSV(items []models.GenerationView) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "Created", "Mode", "Genre", "Playlist ID", "Playlist", "Requested", "Added", "Strategy"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, g := range items {
		record := []string{
			strconv.Itoa(g.Sequence),
			g.CreatedAt.UTC().Format(time.RFC3339),
			string(g.Mode),
			g.Genre,
			g.PlaylistID,
			g.PlaylistName,
			strconv.Itoa(g.Requested),
			strconv.Itoa(g.Added),
			g.Strategy,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToMarkdown converts generations to a Markdown document with one list entry per playlist.
func HistoryToMarkdown(items []models.GenerationView) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Generation History\n\n")
	buf.WriteString(fmt.Sprintf("**Playlists**: %d\n\n", len(items)))

	for _, g := range items {
		url := "https://open.spotify.com/playlist/" + g.PlaylistID
		buf.WriteString(fmt.Sprintf("%d. [%s](%s) - %s", g.Sequence, g.PlaylistName, url, describeMode(g)))
		buf.WriteString(fmt.Sprintf(", %d/%d tracks", g.Added, g.Requested))
		if g.Strategy != "" {
			buf.WriteString(fmt.Sprintf(" via `%s`", g.Strategy))
		}
		buf.WriteString(fmt.Sprintf(" (%s)\n", g.CreatedAt.Local().Format(timeLayout)))
	}

	return buf.Bytes(), nil
}

// HistoryToText converts generations to plain text, one line per playlist.
func HistoryToText(items []models.GenerationView) ([]byte, error) {
	var buf bytes.Buffer

	if len(items) == 0 {
		buf.WriteString("No playlists generated yet.\n")
		return buf.Bytes(), nil
	}

	for _, g := range items {
		buf.WriteString(fmt.Sprintf("#%-4d %s  %-14s %3d/%-3d %s\n",
			g.Sequence,
			g.CreatedAt.Local().Format(timeLayout),
			describeMode(g),
			g.Added,
			g.Requested,
			g.PlaylistName,
		))
	}

	return buf.Bytes(), nil
}

func describeMode(g models.GenerationView) string {
	if g.Genre == "" {
		return string(g.Mode)
	}
	return fmt.Sprintf("%s %s", g.Mode, g.Genre)
}

// MarshalJSON encodes v, indented when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// WriteJSONFile writes v to path as indented JSON.
func WriteJSONFile(v any, path string) error {
	data, err := MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}

// RenderHistory renders generations in one of [Formats].
func RenderHistory(items []models.GenerationView, format string) ([]byte, error) {
	switch format {
	case "csv":
		return HistoryToCSV(items)
	case "markdown", "md":
		return HistoryToMarkdown(items)
	case "txt", "text", "":
		return HistoryToText(items)
	case "json":
		return MarshalJSON(map[string]any{"items": items}, true)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteHistoryExport writes generations to path in format.
//
// Defaults to spotmix_history.{ext} as the filename.
func WriteHistoryExport(items []models.GenerationView, format, path string) (string, error) {
	data, err := RenderHistory(items, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = "spotmix_history." + extension(format)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write history export: %w", err)
	}
	return path, nil
}

func extension(format string) string {
	switch format {
	case "markdown", "md":
		return "md"
	case "csv", "json":
		return format
	default:
		return "txt"
	}
}
