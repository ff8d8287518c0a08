// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through one playlist generation:
//  1. [ModeView] : pick a generation mode
//  2. [OptionView] : pick a genre or time range, skipped for trending
//  3. [ConfirmView] : confirm the request
//  4. [GenerateView] : follow the engine's progress updates
//  5. [ResultView] : show the created playlist or the failure
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the PlaylistEngine, providing non-blocking status reporting during generation.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
