package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/vidx/internal/models"
)

// formKind selects what a form submits.
type formKind int

const (
	formAdd formKind = iota
	formEdit
	formBatch
)

// form collects the fields of a new, edited or batch download.
//
// Single forms use the url, name and headers inputs. The batch form replaces url and name with a textarea of
// `url [name]` lines.
type form struct {
	kind    formKind
	id      int64
	url     textinput.Model
	name    textinput.Model
	headers textinput.Model
	lines   textarea.Model
	focus   int
	err     error
}

func newInput(placeholder string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 2048
	in.Width = 60
	return in
}

func newAddForm() *form {
	f := &form{
		kind:    formAdd,
		url:     newInput("https://example.com/stream.m3u8"),
		name:    newInput("defaults to the current time"),
		headers: newInput("Referer: https://example.com/"),
	}
	f.setFocus(0)
	return f
}

func newEditForm(item models.DownloadItem) *form {
	f := newAddForm()
	f.kind = formEdit
	f.id = item.ID
	f.url.SetValue(item.URL)
	f.name.SetValue(item.Name)
	f.headers.SetValue(item.Headers)
	return f
}

func newBatchForm() *form {
	lines := textarea.New()
	lines.Placeholder = "one `url [name]` per line"
	lines.SetWidth(70)
	lines.SetHeight(8)
	lines.ShowLineNumbers = false

	f := &form{
		kind:    formBatch,
		lines:   lines,
		headers: newInput("Referer: https://example.com/"),
	}
	f.setFocus(0)
	return f
}

func (f *form) fields() int {
	if f.kind == formBatch {
		return 2
	}
	return 3
}

func (f *form) setFocus(i int) {
	f.focus = (i + f.fields()) % f.fields()

	f.url.Blur()
	f.name.Blur()
	f.headers.Blur()
	f.lines.Blur()

	switch {
	case f.kind == formBatch && f.focus == 0:
		f.lines.Focus()
	case f.kind == formBatch:
		f.headers.Focus()
	case f.focus == 0:
		f.url.Focus()
	case f.focus == 1:
		f.name.Focus()
	default:
		f.headers.Focus()
	}
}

func (f *form) next() { f.setFocus(f.focus + 1) }
func (f *form) prev() { f.setFocus(f.focus - 1) }

func (f *form) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case f.kind == formBatch && f.focus == 0:
		f.lines, cmd = f.lines.Update(msg)
	case f.kind == formBatch:
		f.headers, cmd = f.headers.Update(msg)
	case f.focus == 0:
		f.url, cmd = f.url.Update(msg)
	case f.focus == 1:
		f.name, cmd = f.name.Update(msg)
	default:
		f.headers, cmd = f.headers.Update(msg)
	}
	return cmd
}

func (f *form) newItem() models.NewDownloadItem {
	return models.NewDownloadItem{
		Name:    strings.TrimSpace(f.name.Value()),
		URL:     strings.TrimSpace(f.url.Value()),
		Headers: f.headers.Value(),
		Type:    models.TypeM3U8,
	}
}

func (f *form) editItem() models.EditDownloadItem {
	n := f.newItem()
	return models.EditDownloadItem{ID: f.id, Name: n.Name, URL: n.URL, Headers: n.Headers, Type: n.Type}
}

func (f *form) title() string {
	switch f.kind {
	case formEdit:
		return "Edit download"
	case formBatch:
		return "Batch download"
	default:
		return "New download"
	}
}

func (f *form) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(f.title()))
	b.WriteString("\n")

	if f.kind == formBatch {
		b.WriteString(styles.muted.Render("Sources") + "\n")
		b.WriteString(f.lines.View() + "\n\n")
	} else {
		b.WriteString(styles.muted.Render("URL") + "\n")
		b.WriteString(f.url.View() + "\n\n")
		b.WriteString(styles.muted.Render("Name") + "\n")
		b.WriteString(f.name.View() + "\n\n")
	}
	b.WriteString(styles.muted.Render("Headers (shared)") + "\n")
	b.WriteString(f.headers.View() + "\n")

	if f.err != nil {
		b.WriteString("\n" + styles.err.Render(f.err.Error()) + "\n")
	}
	return b.String()
}
