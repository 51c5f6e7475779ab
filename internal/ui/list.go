package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/vidx/internal/tasks"
)

// rowRenderer renders composed rows. The progress bar is shared and drawn with ViewAs, so no animation state
// is kept per row.
type rowRenderer struct {
	bar   progress.Model
	width int
}

func newRowRenderer() rowRenderer {
	return rowRenderer{bar: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())}
}

func (r *rowRenderer) SetWidth(w int) {
	r.width = w
	r.bar.Width = max(10, min(40, w/3))
}

// Render draws one row as two or three lines.
func (r rowRenderer) Render(row tasks.Row, focused bool) string {
	var b strings.Builder

	marker := "  "
	if focused {
		marker = styles.cursor.Render("> ")
	}
	check := "[ ]"
	if row.Selected {
		check = styles.ok.Render("[x]")
	}

	title := row.Title
	if row.TitleDisabled {
		title = styles.disabled.Render(title)
	} else if focused {
		title = styles.cursor.Render(title)
	}

	fmt.Fprintf(&b, "%s%s %s", marker, check, title)
	for _, tag := range row.Tags {
		b.WriteString(" ")
		b.WriteString(styles.Tone(tag.Tone).Render("[" + tag.Label + "]"))
	}
	b.WriteString("\n")

	indent := "      "
	if row.Progress != nil {
		fmt.Fprintf(&b, "%s%s %3d%% %s\n", indent, r.bar.ViewAs(float64(row.Progress.Percent)/100), row.Progress.Percent, styles.muted.Render(row.Progress.Speed))
	} else {
		desc := row.Description
		if r.width > 0 && lipgloss.Width(desc) > r.width-len(indent) {
			desc = truncate(desc, r.width-len(indent))
		}
		fmt.Fprintf(&b, "%s%s\n", indent, styles.muted.Render(desc))
	}

	if focused {
		if actions := renderActions(row); actions != "" {
			fmt.Fprintf(&b, "%s%s\n", indent, actions)
		}
	}
	return b.String()
}

func renderActions(row tasks.Row) string {
	if row.Note != "" {
		return styles.warn.Render(row.Note)
	}
	parts := make([]string, 0, len(row.Actions))
	for _, a := range row.Actions {
		label := fmt.Sprintf("%s %s", actionKey(a.Kind), a.Kind)
		if a.Disabled {
			parts = append(parts, styles.disabled.Render(label))
		} else {
			parts = append(parts, styles.help.Render(label))
		}
	}
	return strings.Join(parts, "  ")
}

// actionKey is the key that triggers k on the focused row.
func actionKey(k tasks.ActionKind) string {
	switch k {
	case tasks.ActionLog:
		return "L"
	case tasks.ActionEdit:
		return "e"
	case tasks.ActionDownload, tasks.ActionRedownload, tasks.ActionContinue:
		return "s"
	case tasks.ActionStop:
		return "p"
	case tasks.ActionPlay:
		return "o"
	case tasks.ActionConvert:
		return "c"
	default:
		return "?"
	}
}

func truncate(s string, n int) string {
	if n <= 1 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
