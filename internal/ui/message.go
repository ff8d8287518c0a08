package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotmix/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgGenerationComplete
)

type generationOutcome struct {
	result *tasks.Result
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// generationCompleteMsg is the constructor for [MsgGenerationComplete]
func generationCompleteMsg(result *tasks.Result, err error) Msg {
	return Msg{kind: MsgGenerationComplete, data: generationOutcome{result, err}}
}
