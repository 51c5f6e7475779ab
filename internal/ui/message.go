package ui

import (
	"github.com/desertthunder/vidx/internal/tasks"
)

// changedMsg signals that the task list may have new state to render.
type changedMsg struct{}

// noticeMsg carries an operation outcome from the task list.
type noticeMsg tasks.Notice

// opDoneMsg reports that a command issued from the UI returned.
//
// Outcomes already arrive as notices; err is kept so the form can stay open on failure.
type opDoneMsg struct {
	op  tasks.Op
	err error
}

// logFetchedMsg carries the engine log of one task.
type logFetchedMsg struct {
	id    int64
	title string
	text  string
	err   error
}

// playbackMsg carries the resolved mobile playback base URL.
type playbackMsg struct {
	url string
	err error
}

// clearNoticeMsg hides the notice with the given sequence number.
type clearNoticeMsg struct{ seq int }
