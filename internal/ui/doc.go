// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a thin view over a [tasks.TaskList]:
//  1. [ListView] : Browse the active and finished tabs, select tasks and run row or bulk actions
//  2. [FormView] : Create a single or batch download, or edit one
//  3. [LogView] : Read the engine log of a task
//  4. [ConfirmView] : Confirm a bulk delete
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern. Commands run in tea.Cmd
// goroutines; their outcomes come back on the task list's notice channel, and every state change is picked up
// from its change channel, so the model never polls.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
