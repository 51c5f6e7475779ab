package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/vidx/internal/engine"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
)

// Options configures a [TaskList].
type Options struct {
	PageSize         int
	BatchConcurrency int
	BatchRateLimit   float64
	Preferences      models.Preferences
	PlaybackPort     int
	Logger           *log.Logger

	// Run executes event-triggered work; defaults to a new goroutine per event.
	Run func(func())
	// Now supplies default task names; defaults to time.Now.
	Now func() time.Time
}

// View is a consistent snapshot for rendering.
type View struct {
	Request  models.PageRequest
	Total    int
	Pages    int
	Rows     []Row
	Loading  bool
	Loaded   bool
	Selected int
	Prefs    models.Preferences
}

// TaskList is the task list state reconciler.
//
// It owns the page store, progress samples, selection, transient flags and preferences, and issues engine
// commands on behalf of the UI. Every mutating command refreshes the current page afterwards. Outcomes are
// reported on [TaskList.Notices]; state changes are signalled on [TaskList.Changes].
type TaskList struct {
	engine    engine.Engine
	store     *Store
	progress  *ProgressMap
	selection *Selection
	transient *Transient
	prefs     *PreferenceStore
	batch     *Executor
	bridge    *Bridge
	logger    *log.Logger
	port      int
	now       func() time.Time

	notices chan Notice
	changes chan struct{}

	playMu  sync.Mutex
	playURL string
}

var _ BridgeTarget = (*TaskList)(nil)

// New creates a detached TaskList over e.
func New(e engine.Engine, opts Options) *TaskList {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NopLogger()
	}
	logger = logger.With("component", "tasks")

	l := &TaskList{
		engine:    e,
		store:     NewStore(e, opts.PageSize, logger),
		progress:  NewProgressMap(),
		selection: NewSelection(),
		transient: NewTransient(),
		prefs:     NewPreferenceStore(opts.Preferences),
		batch: NewExecutor(ExecutorOpts{
			Concurrency: opts.BatchConcurrency,
			RateLimit:   opts.BatchRateLimit,
			Logger:      logger,
		}),
		logger:  logger,
		port:    opts.PlaybackPort,
		now:     opts.Now,
		notices: make(chan Notice, 32),
		changes: make(chan struct{}, 1),
	}
	if l.now == nil {
		l.now = time.Now
	}

	l.store.onApply = func(p models.Page) { l.selection.Retain(p.IDs()) }
	l.store.onChange = l.changed
	l.bridge = NewBridge(e, l, opts.Run, logger)
	return l
}

// Notices delivers operation outcomes. Notices are dropped when nobody keeps up.
func (l *TaskList) Notices() <-chan Notice { return l.notices }

// Changes receives a value whenever visible state may have changed. Bursts collapse into one signal.
func (l *TaskList) Changes() <-chan struct{} { return l.changes }

// Attach subscribes to engine events and loads the first page.
func (l *TaskList) Attach(ctx context.Context) error {
	l.bridge.Attach(ctx)
	return l.Refresh(ctx)
}

// Detach removes every event subscription made by Attach.
func (l *TaskList) Detach() { l.bridge.Detach() }

// Wait blocks until event-triggered work has returned.
func (l *TaskList) Wait() { l.bridge.Wait() }

// Attached reports whether event handlers are registered.
func (l *TaskList) Attached() bool { return l.bridge.Attached() }

// sendNotice sends a notice through the channel without blocking.
func (l *TaskList) sendNotice(n Notice) {
	if n.Level == LevelError {
		l.logger.Warn(n.Message, "op", n.Op, "id", n.ID)
	} else {
		l.logger.Info(n.Message, "op", n.Op, "id", n.ID)
	}
	select {
	case l.notices <- n:
	default:
	}
}

func (l *TaskList) changed() {
	select {
	case l.changes <- struct{}{}:
	default:
	}
}

// View derives the current rows.
func (l *TaskList) View() View {
	req := l.store.Request()
	page := l.store.Page()
	prefs := l.prefs.Get()
	ids := page.IDs()

	selected := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if l.selection.Has(id) {
			selected[id] = true
		}
	}

	return View{
		Request: req,
		Total:   page.Total,
		Pages:   l.store.Pages(),
		Rows: Compose(page.List, ComposeInput{
			Filter:       req.Filter,
			Progress:     l.progress.Snapshot(ids),
			Converting:   l.transient.Snapshot(FlagConverting),
			Selected:     selected,
			ShowTerminal: prefs.ShowTerminal,
		}),
		Loading:  l.store.Loading(),
		Loaded:   l.store.Loaded(),
		Selected: l.selection.Len(),
		Prefs:    prefs,
	}
}

// Selection returns the selected ids in the order they were picked.
func (l *TaskList) Selection() []int64 { return l.selection.IDs() }

// Progress returns the latest sample for id.
func (l *TaskList) Progress(id int64) (models.DownloadProgress, bool) { return l.progress.Get(id) }

// Converting reports whether a conversion of id is in flight.
func (l *TaskList) Converting(id int64) bool { return l.transient.Active(FlagConverting, id) }

// Preferences returns the current preference record.
func (l *TaskList) Preferences() models.Preferences { return l.prefs.Get() }

// ApplyProgress stores the latest progress sample. Progress never triggers a fetch.
func (l *TaskList) ApplyProgress(p models.DownloadProgress) {
	l.progress.Apply(p)
	l.changed()
}

// Refresh re-fetches the current page.
func (l *TaskList) Refresh(ctx context.Context) error {
	if err := l.store.Refresh(ctx); err != nil {
		l.sendNotice(errorNotice(OpRefresh, 0, err))
		return err
	}
	return nil
}

// SetFilter switches between the active and completed views.
func (l *TaskList) SetFilter(ctx context.Context, f models.DownloadFilter) error {
	if err := l.store.SetFilter(ctx, f); err != nil {
		l.sendNotice(errorNotice(OpRefresh, 0, err))
		return err
	}
	return nil
}

// SetPage moves to a 1-based page.
func (l *TaskList) SetPage(ctx context.Context, current int) error {
	if err := l.store.SetPage(ctx, current); err != nil {
		l.sendNotice(errorNotice(OpRefresh, 0, err))
		return err
	}
	return nil
}

// Toggle flips the selection of id.
func (l *TaskList) Toggle(id int64) bool {
	on := l.selection.Toggle(id)
	l.changed()
	return on
}

// SelectAll selects every task on the current page.
func (l *TaskList) SelectAll() {
	l.selection.SelectAll(l.store.Page().IDs())
	l.changed()
}

func (l *TaskList) ClearSelection() {
	l.selection.Clear()
	l.changed()
}

// SelectItem adds id to the selection.
func (l *TaskList) SelectItem(id int64) error {
	l.selection.Add(id)
	l.changed()
	return nil
}

// DownloadItem starts id.
func (l *TaskList) DownloadItem(ctx context.Context, id int64) error { return l.Start(ctx, id) }

// RefreshItems refreshes the current page.
func (l *TaskList) RefreshItems(ctx context.Context) error { return l.Refresh(ctx) }

// DeleteItem deletes id and refreshes.
func (l *TaskList) DeleteItem(ctx context.Context, id int64) error { return l.Delete(ctx, id) }

// Start asks the engine to start, resume or retry id.
func (l *TaskList) Start(ctx context.Context, id int64) error {
	if err := l.engine.StartDownload(ctx, id); err != nil {
		l.sendNotice(errorNotice(OpStart, id, err))
		return err
	}
	l.sendNotice(startedNotice(id))
	return l.Refresh(ctx)
}

// Stop asks the engine to pause id. Stop is the only way a live source ends.
func (l *TaskList) Stop(ctx context.Context, id int64) error {
	if err := l.engine.StopDownload(ctx, id); err != nil {
		l.sendNotice(errorNotice(OpStop, id, err))
		return err
	}
	l.sendNotice(stoppedNotice(id))
	return l.Refresh(ctx)
}

// Delete removes id and refreshes.
func (l *TaskList) Delete(ctx context.Context, id int64) error {
	if err := l.engine.DeleteItem(ctx, id); err != nil {
		l.sendNotice(errorNotice(OpDelete, id, err))
		return err
	}
	l.selection.Retain(without(l.selection.IDs(), id))
	l.sendNotice(deletedNotice(id))
	return l.Refresh(ctx)
}

// Edit updates the metadata of a task.
func (l *TaskList) Edit(ctx context.Context, item models.EditDownloadItem) error {
	if item.Type == "" {
		item.Type = models.TypeM3U8
	}
	if err := item.Validate(); err != nil {
		err = fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		l.sendNotice(errorNotice(OpEdit, item.ID, err))
		return err
	}
	if err := l.engine.EditItem(ctx, item); err != nil {
		l.sendNotice(errorNotice(OpEdit, item.ID, err))
		return err
	}
	l.sendNotice(editedNotice(item.ID))
	return l.Refresh(ctx)
}

// Add creates one task. An empty name defaults to the current timestamp.
func (l *TaskList) Add(ctx context.Context, item models.NewDownloadItem) (models.DownloadItem, error) {
	if strings.TrimSpace(item.Name) == "" {
		item.Name = l.now().Format(time.RFC3339)
	}
	if item.Type == "" {
		item.Type = models.TypeM3U8
	}
	if err := item.Validate(); err != nil {
		err = fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		l.sendNotice(errorNotice(OpAdd, 0, err))
		return models.DownloadItem{}, err
	}

	created, err := l.engine.AddItem(ctx, item)
	if err != nil {
		l.sendNotice(errorNotice(OpAdd, 0, err))
		return models.DownloadItem{}, err
	}
	l.sendNotice(addedNotice(1))
	return created, l.Refresh(ctx)
}

// AddBatch creates one task per `url [name]` line of text, sharing headers.
func (l *TaskList) AddBatch(ctx context.Context, text, headers string) ([]models.DownloadItem, error) {
	items, err := ParseBatch(text, headers, l.now())
	if err != nil {
		l.sendNotice(errorNotice(OpAdd, 0, err))
		return nil, err
	}

	created, err := l.engine.AddItems(ctx, items)
	if err != nil {
		l.sendNotice(errorNotice(OpAdd, 0, err))
		return nil, err
	}
	l.sendNotice(addedNotice(len(created)))
	return created, l.Refresh(ctx)
}

// Convert asks the engine to extract audio from a finished task. The converting flag is set for the duration of
// the call and cleared on every path; a failure leaves the task untouched.
func (l *TaskList) Convert(ctx context.Context, id int64) error {
	err := l.transient.Track(FlagConverting, id, func() error {
		l.changed()
		return l.engine.ConvertToAudio(ctx, id)
	})
	l.changed()

	if err != nil {
		l.sendNotice(errorNotice(OpConvert, id, err))
		return err
	}
	l.sendNotice(convertedNotice(id))
	return nil
}

// BulkDownload starts every selected task in selection order.
func (l *TaskList) BulkDownload(ctx context.Context) error {
	return l.runBulk(ctx, OpBulkDownload, l.engine.StartDownload, bulkDownloadNotice)
}

// BulkDelete deletes every selected task in selection order.
func (l *TaskList) BulkDelete(ctx context.Context) error {
	return l.runBulk(ctx, OpBulkDelete, l.engine.DeleteItem, bulkDeleteNotice)
}

// runBulk runs fn over a snapshot of the selection. The selection is cleared and the page refreshed whether the
// run completed or stopped part way.
func (l *TaskList) runBulk(ctx context.Context, op Op, fn BatchOp, done func([]int64) Notice) error {
	ids := l.selection.IDs()
	if len(ids) == 0 {
		err := fmt.Errorf("%w: nothing selected", shared.ErrEmptySelection)
		l.sendNotice(errorNotice(op, 0, err))
		return err
	}

	completed, err := l.batch.Run(ctx, op, ids, fn)

	l.selection.Clear()
	l.changed()
	refreshErr := l.Refresh(ctx)

	if err != nil {
		var batchErr *BatchError
		id := int64(0)
		if errors.As(err, &batchErr) {
			id = batchErr.Failed
		}
		l.sendNotice(errorNotice(op, id, err))
		return err
	}

	l.sendNotice(done(completed))
	return refreshErr
}

// GetLog returns the engine's log text for id.
func (l *TaskList) GetLog(ctx context.Context, id int64) (string, error) {
	text, err := l.engine.GetLog(ctx, id)
	if err != nil {
		l.sendNotice(errorNotice(OpLog, id, err))
		return "", err
	}
	return text, nil
}

// PlaybackURL returns the base URL for mobile playback. It is resolved from the engine once per session; a failed
// lookup is retried on the next call.
func (l *TaskList) PlaybackURL(ctx context.Context) (string, error) {
	l.playMu.Lock()
	defer l.playMu.Unlock()

	if l.playURL != "" {
		return l.playURL, nil
	}
	ip, err := l.engine.GetLocalIP(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve local address: %w", err)
	}
	l.playURL = shared.PlaybackURL(ip, l.port)
	return l.playURL, nil
}

// Play opens the player page for the playback URL.
func (l *TaskList) Play(ctx context.Context) error {
	base, err := l.PlaybackURL(ctx)
	if err == nil {
		err = l.engine.OpenURL(ctx, base+"player")
	}
	if err != nil {
		l.sendNotice(errorNotice(OpOpen, 0, err))
	}
	return err
}

// OpenFolder opens the download directory.
func (l *TaskList) OpenFolder(ctx context.Context) error {
	if err := l.engine.OpenDir(ctx, l.prefs.Get().Local); err != nil {
		l.sendNotice(errorNotice(OpOpen, 0, err))
		return err
	}
	return nil
}

// ShowWindow asks the engine to show its window. Only offered when OpenInNewWindow is on.
func (l *TaskList) ShowWindow(ctx context.Context) error {
	if !l.prefs.Get().OpenInNewWindow {
		return fmt.Errorf("%w: open in new window is disabled", shared.ErrNotSupported)
	}
	if err := l.engine.ShowWindow(ctx); err != nil {
		l.sendNotice(errorNotice(OpOpen, 0, err))
		return err
	}
	return nil
}

// ContextMenu asks the engine to show its item menu for id. Choices come back as item events.
func (l *TaskList) ContextMenu(ctx context.Context, id int64) error {
	if err := l.engine.ContextMenu(ctx, id); err != nil {
		l.sendNotice(errorNotice(OpOpen, id, err))
		return err
	}
	return nil
}

// UpdatePreferences merges u into the preference record.
func (l *TaskList) UpdatePreferences(u models.PreferencesUpdate) models.Preferences {
	before := l.prefs.Get()
	after := l.prefs.Apply(u)
	if fields := changedFields(before, after); len(fields) > 0 {
		l.sendNotice(preferencesNotice(fields))
	}
	l.changed()
	return after
}

func changedFields(a, b models.Preferences) []string {
	var fields []string
	if a.Local != b.Local {
		fields = append(fields, "local")
	}
	if a.PromptTone != b.PromptTone {
		fields = append(fields, "promptTone")
	}
	if a.Proxy != b.Proxy {
		fields = append(fields, "proxy")
	}
	if a.UseProxy != b.UseProxy {
		fields = append(fields, "useProxy")
	}
	if a.ShowTerminal != b.ShowTerminal {
		fields = append(fields, "showTerminal")
	}
	if a.OpenInNewWindow != b.OpenInNewWindow {
		fields = append(fields, "openInNewWindow")
	}
	return fields
}

// ParseBatch turns `url [name]` lines into new items. Blank lines are skipped and missing names default to the
// timestamp, suffixed by line position when more than one task is created.
func ParseBatch(text, headers string, now time.Time) ([]models.NewDownloadItem, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no urls given", shared.ErrInvalidInput)
	}

	stamp := now.Format(time.RFC3339)
	items := make([]models.NewDownloadItem, 0, len(lines))
	for i, line := range lines {
		url, name := line, ""
		if sp := strings.IndexFunc(line, unicode.IsSpace); sp >= 0 {
			url, name = line[:sp], strings.TrimSpace(line[sp:])
		}
		if name == "" {
			name = stamp
			if len(lines) > 1 {
				name = fmt.Sprintf("%s-%d", stamp, i+1)
			}
		}
		items = append(items, models.NewDownloadItem{
			Name:    name,
			URL:     strings.TrimSpace(url),
			Headers: headers,
			Type:    models.TypeM3U8,
		})
	}
	return items, nil
}

func without(ids []int64, id int64) []int64 {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
