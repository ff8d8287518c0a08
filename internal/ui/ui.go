package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotmix/internal/formatter"
	"github.com/desertthunder/spotmix/internal/models"
	"github.com/desertthunder/spotmix/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ModeView ViewState = iota
	OptionView
	ConfirmView
	GenerateView
	ResultView
)

const maxProgressLines = 6

// Generator runs one generation. [tasks.PlaylistEngine] implements it.
type Generator interface {
	Generate(ctx context.Context, req tasks.Request, progress chan<- tasks.ProgressUpdate) (*tasks.Result, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       Generator
	limit        int
	width        int
	height       int
	modeList     list.Model
	optionList   list.Model
	req          tasks.Request
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     []tasks.ProgressUpdate
	result       *tasks.Result
	err          error
	spinner      spinner.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model over engine. limit is passed through to every request.
func NewModel(ctx context.Context, engine Generator, limit int) *Model {
	modes := list.New(modeItems(), list.NewDefaultDelegate(), 0, 0)
	modes.Title = "What should we build?"
	modes.SetShowHelp(false)

	return &Model{
		ctx:      ctx,
		view:     ModeView,
		engine:   engine,
		limit:    limit,
		modeList: modes,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, engine Generator, limit int) error {
	p := tea.NewProgram(NewModel(ctx, engine, limit), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.modeList.SetSize(msg.Width-4, msg.Height-8)
		if m.view == OptionView {
			m.optionList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ModeView:
			return m.handleModeKeys(msg)
		case OptionView:
			return m.handleOptionKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case GenerateView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.progress = append(m.progress, msg.data.(tasks.ProgressUpdate))
			if len(m.progress) > maxProgressLines {
				m.progress = m.progress[len(m.progress)-maxProgressLines:]
			}
			return m, m.waitForProgress()
		case MsgGenerationComplete:
			outcome := msg.data.(generationOutcome)
			m.result, m.err = outcome.result, outcome.err
			m.progressChan, m.doneChan = nil, nil
			m.view = ResultView
			return m, nil
		}
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ModeView:
		return m.renderList(m.modeList, m.keys.enter, m.keys.quit)
	case OptionView:
		return m.renderList(m.optionList, m.keys.enter, m.keys.back, m.keys.quit)
	case ConfirmView:
		return m.renderConfirm()
	case GenerateView:
		return m.renderGenerate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleModeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modeList.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		item, ok := m.modeList.SelectedItem().(modeItem)
		if !ok {
			return m, nil
		}
		m.req = tasks.Request{Mode: item.mode, Limit: m.limit}

		switch item.mode {
		case models.ModeTrending:
			m.view = ConfirmView
		case models.ModeTopTracks:
			m.showOptions("Time range", rangeItems())
		default:
			m.showOptions("Genre", genreItems())
		}
		return m, nil
	}

	return m.updateLists(msg)
}

func (m *Model) showOptions(title string, items []list.Item) {
	m.optionList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.optionList.Title = title
	m.optionList.SetShowHelp(false)
	m.optionList.SetSize(m.width-4, m.height-8)
	m.view = OptionView
}

func (m *Model) handleOptionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ModeView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		item, ok := m.optionList.SelectedItem().(optionItem)
		if !ok {
			return m, nil
		}
		if m.req.Mode == models.ModeTopTracks {
			m.req.TimeRange = item.value
		} else {
			m.req.Genre = item.value
		}
		m.view = ConfirmView
		return m, nil
	}

	return m.updateLists(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = ModeView
		return m, nil
	case key.Matches(msg, m.keys.yes), key.Matches(msg, m.keys.enter):
		m.view = GenerateView
		return m, m.startGeneration()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = ModeView
		m.req = tasks.Request{}
		m.progress = nil
		m.result = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ModeView:
		m.modeList, cmd = m.modeList.Update(msg)
	case OptionView:
		m.optionList, cmd = m.optionList.Update(msg)
	}
	return m, cmd
}

// startGeneration runs the engine in a goroutine. Progress arrives on progressChan, which is closed
// before the outcome is sent on doneChan.
func (m *Model) startGeneration() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.progressChan, m.doneChan = progress, done
	m.progress = nil

	req := m.req
	go func() {
		result, err := m.engine.Generate(m.ctx, req, progress)
		close(progress)
		done <- generationCompleteMsg(result, err)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progress == nil {
			return generationCompleteMsg(nil, fmt.Errorf("generation was not started"))
		}

		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderList(l list.Model, keys ...key.Binding) string {
	return fmt.Sprintf("%s\n\n%s", l.View(), m.help.ShortHelpView(keys))
}

func describe(req tasks.Request) string {
	switch req.Mode {
	case models.ModePersonalized:
		return fmt.Sprintf("A personalized %s playlist", genreLabels[tasks.ParseGenre(req.Genre)])
	case models.ModeCatalogRandom:
		return fmt.Sprintf("A random catalog %s playlist", genreLabels[tasks.ParseGenre(req.Genre)])
	case models.ModeTopTracks:
		label, _ := tasks.RangeLabel(req.TimeRange)
		return fmt.Sprintf("Your top tracks, %s", strings.ToLower(label))
	case models.ModeTrending:
		return "Trending now, copied from the global charts"
	default:
		return string(req.Mode)
	}
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Create this playlist?")
	info := describe(m.req)
	if m.req.Limit > 0 {
		info = fmt.Sprintf("%s (%d tracks)", info, m.req.Limit)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func (m *Model) renderGenerate() string {
	title := styles.title.Render(describe(m.req))

	var lines []string
	for i, u := range m.progress {
		line := u.Message
		if u.Total > 1 {
			line = fmt.Sprintf("%s (%d/%d)", line, u.Step, u.Total)
		}
		if i == len(m.progress)-1 {
			line = fmt.Sprintf("%s %s", m.spinner.View(), line)
		} else {
			line = styles.help.Render("  " + line)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, m.spinner.View()+" Starting...")
	}

	return fmt.Sprintf("%s\n%s", title, strings.Join(lines, "\n"))
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.err != nil {
		msg := styles.err.Render(fmt.Sprintf("Generation failed: %v", m.err))
		if m.result != nil && m.result.Playlist != nil {
			msg += "\n" + styles.warn.Render(fmt.Sprintf("Playlist %s was created with %d tracks", m.result.Playlist.Name, m.result.Added))
		}
		return fmt.Sprintf("%s\n\n%s", msg, helpView)
	}

	if m.result == nil || m.result.Playlist == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Playlist created!")
	summary := formatter.SummarizePlaylist(m.result.Playlist, m.result.Added, m.result.Strategy, m.result.TopTrack)
	return fmt.Sprintf("%s\n\n%s\n%s", title, summary, helpView)
}
