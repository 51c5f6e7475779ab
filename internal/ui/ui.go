package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ListView ViewState = iota
	FormView
	LogView
	ConfirmView
)

const noticeTTL = 4 * time.Second

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	tasks    *tasks.TaskList
	view     ViewState
	snapshot tasks.View
	cursor   int
	width    int
	height   int

	rows    rowRenderer
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	form    *form
	logPane viewport.Model
	logFor  string
	confirm string // bulk delete prompt

	notice    *tasks.Notice
	noticeSeq int
	playURL   string
	quitting  bool
}

// NewModel creates a TUI model over an attached task list.
func NewModel(ctx context.Context, list *tasks.TaskList) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.progress

	return &Model{
		ctx:      ctx,
		tasks:    list,
		view:     ListView,
		snapshot: list.View(),
		rows:     newRowRenderer(),
		spinner:  sp,
		help:     help.New(),
		keys:     newKeyMap(),
		logPane:  viewport.New(80, 20),
	}
}

// Init starts listening for task list changes and notices, and resolves the playback URL.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForChange(), m.waitForNotice(), m.spinner.Tick, m.resolvePlayback())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.rows.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.logPane.Width = max(20, msg.Width-4)
		m.logPane.Height = max(5, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case FormView:
			return m.handleFormKeys(msg)
		case LogView:
			return m.handleLogKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		default:
			return m.handleListKeys(msg)
		}

	case changedMsg:
		m.sync()
		return m, m.waitForChange()

	case noticeMsg:
		n := tasks.Notice(msg)
		m.notice = &n
		m.noticeSeq++
		seq := m.noticeSeq
		return m, tea.Batch(m.waitForNotice(), tea.Tick(noticeTTL, func(time.Time) tea.Msg {
			return clearNoticeMsg{seq: seq}
		}))

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case opDoneMsg:
		if m.view == FormView && m.form != nil {
			if msg.err != nil {
				m.form.err = msg.err
				return m, nil
			}
			m.form = nil
			m.view = ListView
		}
		return m, nil

	case logFetchedMsg:
		if msg.err != nil {
			return m, nil
		}
		m.logFor = msg.title
		text := msg.text
		if strings.TrimSpace(text) == "" {
			text = styles.muted.Render("No log output yet.")
		}
		m.logPane.SetContent(text)
		m.logPane.GotoBottom()
		m.view = LogView
		return m, nil

	case playbackMsg:
		if msg.err == nil {
			m.playURL = msg.url
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.view == FormView && m.form != nil {
		return m, m.form.Update(msg)
	}
	return m, nil
}

// sync takes a fresh snapshot and keeps the cursor on the page.
func (m *Model) sync() {
	m.snapshot = m.tasks.View()
	if m.cursor >= len(m.snapshot.Rows) {
		m.cursor = max(0, len(m.snapshot.Rows)-1)
	}
}

func (m *Model) focused() (tasks.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snapshot.Rows) {
		return tasks.Row{}, false
	}
	return m.snapshot.Rows[m.cursor], true
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	row, ok := m.focused()
	req := m.snapshot.Request

	switch {
	case key.Matches(msg, m.keys.quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.down):
		if m.cursor < len(m.snapshot.Rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.prevPage):
		if req.Current > 1 {
			m.cursor = 0
			return m, m.do(tasks.OpRefresh, func(ctx context.Context) error { return m.tasks.SetPage(ctx, req.Current-1) })
		}
	case key.Matches(msg, m.keys.nextPage):
		if req.Current < m.snapshot.Pages {
			m.cursor = 0
			return m, m.do(tasks.OpRefresh, func(ctx context.Context) error { return m.tasks.SetPage(ctx, req.Current+1) })
		}
	case key.Matches(msg, m.keys.tab):
		next := models.FilterDone
		if req.Filter == models.FilterDone {
			next = models.FilterList
		}
		m.cursor = 0
		return m, m.do(tasks.OpRefresh, func(ctx context.Context) error { return m.tasks.SetFilter(ctx, next) })
	case key.Matches(msg, m.keys.refresh):
		return m, m.do(tasks.OpRefresh, m.tasks.Refresh)
	case key.Matches(msg, m.keys.toggle):
		if ok {
			m.tasks.Toggle(row.Item.ID)
			m.sync()
		}
	case key.Matches(msg, m.keys.selectAll):
		m.tasks.SelectAll()
		m.sync()
	case key.Matches(msg, m.keys.clear):
		m.tasks.ClearSelection()
		m.sync()
	case key.Matches(msg, m.keys.bulkStart):
		return m, m.do(tasks.OpBulkDownload, m.tasks.BulkDownload)
	case key.Matches(msg, m.keys.bulkDelete):
		if m.snapshot.Selected > 0 {
			m.confirm = fmt.Sprintf("Delete %d selected task(s)?", m.snapshot.Selected)
			m.view = ConfirmView
		}
	case key.Matches(msg, m.keys.add):
		if req.Filter == models.FilterList {
			m.form = newAddForm()
			m.view = FormView
		}
	case key.Matches(msg, m.keys.batch):
		if req.Filter == models.FilterList {
			m.form = newBatchForm()
			m.view = FormView
		}
	case key.Matches(msg, m.keys.showTerminal):
		on := !m.snapshot.Prefs.ShowTerminal
		m.tasks.UpdatePreferences(models.PreferencesUpdate{ShowTerminal: &on})
		m.sync()
	case key.Matches(msg, m.keys.folder):
		if req.Filter == models.FilterDone {
			return m, m.do(tasks.OpOpen, m.tasks.OpenFolder)
		}
	case key.Matches(msg, m.keys.window):
		if req.Filter == models.FilterList && m.snapshot.Prefs.OpenInNewWindow {
			return m, m.do(tasks.OpOpen, m.tasks.ShowWindow)
		}
	case ok:
		return m, m.handleRowKeys(msg, row)
	}
	return m, nil
}

// handleRowKeys maps per-row keys onto the actions the focused row exposes. Keys for actions the row lacks or
// has disabled do nothing.
func (m *Model) handleRowKeys(msg tea.KeyMsg, row tasks.Row) tea.Cmd {
	id := row.Item.ID
	switch {
	case key.Matches(msg, m.keys.start):
		for _, k := range []tasks.ActionKind{tasks.ActionDownload, tasks.ActionRedownload, tasks.ActionContinue} {
			if row.Enabled(k) {
				return m.do(tasks.OpStart, func(ctx context.Context) error { return m.tasks.Start(ctx, id) })
			}
		}
	case key.Matches(msg, m.keys.stop):
		if row.Enabled(tasks.ActionStop) {
			return m.do(tasks.OpStop, func(ctx context.Context) error { return m.tasks.Stop(ctx, id) })
		}
	case key.Matches(msg, m.keys.edit):
		if row.Enabled(tasks.ActionEdit) {
			m.form = newEditForm(row.Item)
			m.view = FormView
		}
	case key.Matches(msg, m.keys.remove):
		return m.do(tasks.OpDelete, func(ctx context.Context) error { return m.tasks.Delete(ctx, id) })
	case key.Matches(msg, m.keys.convert):
		if row.Enabled(tasks.ActionConvert) {
			return m.do(tasks.OpConvert, func(ctx context.Context) error { return m.tasks.Convert(ctx, id) })
		}
	case key.Matches(msg, m.keys.play):
		if row.Enabled(tasks.ActionPlay) {
			return m.do(tasks.OpOpen, m.tasks.Play)
		}
	case key.Matches(msg, m.keys.log):
		if row.Enabled(tasks.ActionLog) {
			return m.fetchLog(row)
		}
	}
	return nil
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.form = nil
		m.view = ListView
		return m, nil
	case key.Matches(msg, m.keys.submit):
		return m, m.submit()
	case msg.String() == "tab":
		m.form.next()
		return m, nil
	case msg.String() == "shift+tab":
		m.form.prev()
		return m, nil
	case msg.String() == "enter" && m.form.kind != formBatch:
		if m.form.focus == m.form.fields()-1 {
			return m, m.submit()
		}
		m.form.next()
		return m, nil
	}
	return m, m.form.Update(msg)
}

func (m *Model) submit() tea.Cmd {
	f := m.form
	f.err = nil
	switch f.kind {
	case formEdit:
		item := f.editItem()
		return m.do(tasks.OpEdit, func(ctx context.Context) error { return m.tasks.Edit(ctx, item) })
	case formBatch:
		text, headers := f.lines.Value(), f.headers.Value()
		return m.do(tasks.OpAdd, func(ctx context.Context) error {
			_, err := m.tasks.AddBatch(ctx, text, headers)
			return err
		})
	default:
		item := f.newItem()
		return m.do(tasks.OpAdd, func(ctx context.Context) error {
			_, err := m.tasks.Add(ctx, item)
			return err
		})
	}
}

func (m *Model) handleLogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = ListView
		return m, nil
	}
	var cmd tea.Cmd
	m.logPane, cmd = m.logPane.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = ListView
		m.confirm = ""
		return m, m.do(tasks.OpBulkDelete, m.tasks.BulkDelete)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.view = ListView
		m.confirm = ""
	}
	return m, nil
}

// do runs fn off the update loop. Its outcome arrives as a notice; the returned error only steers the form.
func (m *Model) do(op tasks.Op, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(m.ctx)}
	}
}

func (m *Model) fetchLog(row tasks.Row) tea.Cmd {
	id, title := row.Item.ID, row.Title
	return func() tea.Msg {
		text, err := m.tasks.GetLog(m.ctx, id)
		return logFetchedMsg{id: id, title: title, text: text, err: err}
	}
}

func (m *Model) resolvePlayback() tea.Cmd {
	return func() tea.Msg {
		url, err := m.tasks.PlaybackURL(m.ctx)
		return playbackMsg{url: url, err: err}
	}
}

// waitForChange blocks until the task list signals a change.
func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.tasks.Changes():
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// waitForNotice blocks until the task list reports an outcome.
func (m *Model) waitForNotice() tea.Cmd {
	return func() tea.Msg {
		select {
		case n := <-m.tasks.Notices():
			return noticeMsg(n)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.view {
	case FormView:
		return m.renderForm()
	case LogView:
		return m.renderLog()
	case ConfirmView:
		return m.renderConfirm()
	default:
		return m.renderList()
	}
}

func (m *Model) renderTabs() string {
	tab := func(label string, on bool) string {
		if on {
			return styles.tabOn.Render(label)
		}
		return styles.tab.Render(label)
	}
	filter := m.snapshot.Request.Filter
	return lipgloss.JoinHorizontal(lipgloss.Top,
		tab("Downloading", filter != models.FilterDone),
		tab("Downloaded", filter == models.FilterDone),
	)
}

func (m *Model) renderList() string {
	var b strings.Builder

	b.WriteString(m.renderTabs())
	if m.snapshot.Loading {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n\n")

	switch {
	case !m.snapshot.Loaded && m.snapshot.Loading:
		b.WriteString(styles.muted.Render("Loading...") + "\n")
	case len(m.snapshot.Rows) == 0:
		b.WriteString(styles.muted.Render("No downloads here.") + "\n")
	default:
		for i, row := range m.snapshot.Rows {
			b.WriteString(m.rows.Render(row, i == m.cursor))
		}
	}

	b.WriteString("\n" + m.renderStatus() + "\n")
	if m.notice != nil {
		b.WriteString(styles.Level(m.notice.Level).Render(m.notice.Message) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderStatus() string {
	s := m.snapshot
	parts := []string{fmt.Sprintf("page %d/%d", s.Request.Current, max(s.Pages, 1)), fmt.Sprintf("%d total", s.Total)}
	if s.Selected > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", s.Selected))
	}
	if s.Request.Filter == models.FilterDone {
		if m.playURL != "" {
			parts = append(parts, "phone: "+m.playURL+"player")
		}
		if s.Prefs.Local != "" {
			parts = append(parts, "folder: "+s.Prefs.Local)
		}
	}
	return styles.muted.Render(strings.Join(parts, " • "))
}

func (m *Model) renderForm() string {
	keys := []key.Binding{m.keys.next, m.keys.submit, m.keys.back}
	return fmt.Sprintf("%s\n%s", m.form.View(), m.help.ShortHelpView(keys))
}

func (m *Model) renderLog() string {
	title := styles.title.Render("Log: " + m.logFor)
	keys := []key.Binding{m.keys.up, m.keys.down, m.keys.back}
	return fmt.Sprintf("%s\n%s\n%s", title, styles.panel.Render(m.logPane.View()), m.help.ShortHelpView(keys))
}

func (m *Model) renderConfirm() string {
	title := styles.warn.Render(m.confirm)
	keys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n\n%s", title, m.help.ShortHelpView(keys))
}
