package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/vidx/internal/tasks"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title    lipgloss.Style
	ok       lipgloss.Style
	err      lipgloss.Style
	warn     lipgloss.Style
	help     lipgloss.Style
	muted    lipgloss.Style
	disabled lipgloss.Style
	cursor   lipgloss.Style
	tab      lipgloss.Style
	tabOn    lipgloss.Style
	panel    lipgloss.Style
	live     lipgloss.Style
	progress lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:    NewBold(t).MarginBottom(1),
		ok:       NewBold(s),
		err:      NewBold(e),
		warn:     NewStyle(w),
		help:     NewEm(h),
		muted:    NewStyle(h),
		disabled: NewStyle(h).Strikethrough(true),
		cursor:   NewBold(t),
		tab:      NewStyle(h).Padding(0, 1),
		tabOn:    NewBold("#FFFFFF").Background(lipgloss.Color(t)).Padding(0, 1),
		panel:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(t)).Padding(0, 1),
		live:     NewBold(e),
		progress: NewStyle(t),
	}
}

// Tone returns the style for a status tag.
func (p *Palette) Tone(t tasks.Tone) lipgloss.Style {
	switch t {
	case tasks.ToneProgress:
		return p.progress
	case tasks.ToneSuccess:
		return p.ok
	case tasks.ToneWarning:
		return p.warn
	case tasks.ToneError:
		return p.err
	case tasks.ToneLive:
		return p.live
	default:
		return p.muted
	}
}

// Level returns the style for a notice.
func (p *Palette) Level(l tasks.Level) lipgloss.Style {
	switch l {
	case tasks.LevelSuccess:
		return p.ok
	case tasks.LevelError:
		return p.err
	default:
		return p.muted
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
