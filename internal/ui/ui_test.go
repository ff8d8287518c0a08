package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotmix/internal/models"
	"github.com/desertthunder/spotmix/internal/services"
	"github.com/desertthunder/spotmix/internal/tasks"
)

type fakeGenerator struct {
	got    tasks.Request
	result *tasks.Result
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, req tasks.Request, progress chan<- tasks.ProgressUpdate) (*tasks.Result, error) {
	f.got = req
	progress <- tasks.ProgressUpdate{Phase: tasks.ResolveProfile, Message: "Resolving profile"}
	progress <- tasks.ProgressUpdate{Phase: tasks.AddTracks, Step: 1, Total: 1, Message: "Adding tracks"}
	return f.result, f.err
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	yes   = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")}
)

func send(t *testing.T, m *Model, msgs ...tea.Msg) tea.Cmd {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = m.Update(msg)
	}
	return cmd
}

// drain runs generation commands until the model leaves GenerateView.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; m.view == GenerateView; i++ {
		if cmd == nil || i > 20 {
			t.Fatal("generation did not complete")
		}
		_, cmd = m.Update(cmd())
	}
}

func newTestModel(gen Generator) *Model {
	m := NewModel(context.Background(), gen, 30)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func TestModel(t *testing.T) {
	playlist := &services.SpotifyPlaylist{ID: "pl1", Name: "EDM • Auto Mix"}

	t.Run("personalized flow", func(t *testing.T) {
		gen := &fakeGenerator{result: &tasks.Result{Playlist: playlist, Added: 30, Strategy: "recommendations"}}
		m := newTestModel(gen)

		send(t, m, enter)
		if m.view != OptionView {
			t.Fatalf("expected option view, got %v", m.view)
		}
		send(t, m, enter)
		if m.view != ConfirmView {
			t.Fatalf("expected confirm view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "EDM") {
			t.Errorf("confirm view should name the genre: %s", m.View())
		}

		cmd := send(t, m, yes)
		if m.view != GenerateView {
			t.Fatalf("expected generate view, got %v", m.view)
		}
		drain(t, m, cmd)

		if m.view != ResultView {
			t.Fatalf("expected result view, got %v", m.view)
		}
		if gen.got.Mode != models.ModePersonalized || gen.got.Genre != "edm" || gen.got.Limit != 30 {
			t.Errorf("unexpected request: %+v", gen.got)
		}
		if len(m.progress) != 2 {
			t.Errorf("expected 2 progress updates, got %d", len(m.progress))
		}
		view := m.View()
		if !strings.Contains(view, "Playlist created") || !strings.Contains(view, "Tracks added: 30") {
			t.Errorf("unexpected result view: %s", view)
		}
	})

	t.Run("top tracks picks a range", func(t *testing.T) {
		gen := &fakeGenerator{result: &tasks.Result{Playlist: playlist, Added: 10}}
		m := newTestModel(gen)

		send(t, m, down, down, enter)
		if m.view != OptionView {
			t.Fatalf("expected option view, got %v", m.view)
		}
		cmd := send(t, m, down, enter, yes)
		drain(t, m, cmd)

		if gen.got.Mode != models.ModeTopTracks || gen.got.TimeRange != tasks.MediumTerm {
			t.Errorf("unexpected request: %+v", gen.got)
		}
	})

	t.Run("trending skips the option menu", func(t *testing.T) {
		gen := &fakeGenerator{result: &tasks.Result{Playlist: playlist, Added: 42}}
		m := newTestModel(gen)

		send(t, m, down, down, down, enter)
		if m.view != ConfirmView {
			t.Fatalf("expected confirm view, got %v", m.view)
		}
	})

	t.Run("esc returns to the mode menu", func(t *testing.T) {
		m := newTestModel(&fakeGenerator{})
		send(t, m, enter, esc)
		if m.view != ModeView {
			t.Errorf("expected mode view, got %v", m.view)
		}
	})

	t.Run("failure shows the error", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("no tracks found")}
		m := newTestModel(gen)

		cmd := send(t, m, enter, enter, yes)
		drain(t, m, cmd)

		if !strings.Contains(m.View(), "Generation failed: no tracks found") {
			t.Errorf("unexpected view: %s", m.View())
		}

		send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
		if m.view != ModeView || m.err != nil {
			t.Errorf("restart should reset the model, got view %v err %v", m.view, m.err)
		}
	})
}
