package devengine

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/desertthunder/vidx/internal/engine"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/repositories"
	"github.com/desertthunder/vidx/internal/shared"
)

// Options tunes the simulated transfers.
type Options struct {
	TickRate     float64 // segments advanced per second
	SegmentStep  int     // segments advanced per tick
	SegmentBytes int64   // nominal segment size for the reported speed
	HTTPClient   *http.Client
	Logger       *log.Logger

	// Open hands a path or URL to the desktop; defaults to [shared.Open].
	Open func(target string) error
	// LocalIP reports this host's LAN address; defaults to [shared.LocalIP].
	LocalIP func() (string, error)
}

// Engine is an [engine.Engine] that simulates downloads over a SQLite task store.
type Engine struct {
	*engine.Bus

	downloads *repositories.DownloadRepository
	logs      *repositories.LogRepository
	prober    *Prober
	logger    *log.Logger
	opts      Options

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running map[int64]*transfer
	wg      sync.WaitGroup
}

type transfer struct {
	cancel context.CancelFunc
	done   chan struct{}
}

var _ engine.Engine = (*Engine)(nil)

// New creates an engine over the given repositories. Tasks left downloading by a previous process are stopped.
func New(downloads *repositories.DownloadRepository, logs *repositories.LogRepository, opts Options) (*Engine, error) {
	if opts.TickRate <= 0 {
		opts.TickRate = 4
	}
	if opts.SegmentStep <= 0 {
		opts.SegmentStep = 1
	}
	if opts.SegmentBytes <= 0 {
		opts.SegmentBytes = 1 << 20
	}
	if opts.Open == nil {
		opts.Open = shared.Open
	}
	if opts.LocalIP == nil {
		opts.LocalIP = shared.LocalIP
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NopLogger()
	}

	reset, err := downloads.ResetRunning()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		Bus:       engine.NewBus(),
		downloads: downloads,
		logs:      logs,
		prober:    NewProber(opts.HTTPClient),
		logger:    logger.With("component", "devengine"),
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		running:   make(map[int64]*transfer),
	}
	if reset > 0 {
		e.logger.Info("stopped interrupted downloads", "count", reset)
	}
	return e, nil
}

// Close stops every transfer and waits for them to return. Interrupted tasks are left stopped.
func (e *Engine) Close() error {
	e.cancel()
	e.wg.Wait()
	return nil
}

// Running reports whether a transfer for id is active.
func (e *Engine) Running(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.running[id]
	return ok
}

func (e *Engine) appendLog(id int64, level, msg string) {
	if err := e.logs.Append(id, level, msg); err != nil {
		e.logger.Warn("failed to write task log", "id", id, "error", err)
	}
}

func (e *Engine) FetchPage(_ context.Context, req models.PageRequest) (models.Page, error) {
	return e.downloads.Page(req)
}

func (e *Engine) AddItem(_ context.Context, item models.NewDownloadItem) (models.DownloadItem, error) {
	created, err := e.downloads.Create(item)
	if err != nil {
		return models.DownloadItem{}, err
	}
	e.appendLog(created.ID, "info", "task created for "+created.URL)
	e.Publish(engine.ItemNotifierEvent{})
	return created, nil
}

// AddItems creates every item or stops at the first invalid one. Items created before the failure are kept.
func (e *Engine) AddItems(_ context.Context, items []models.NewDownloadItem) ([]models.DownloadItem, error) {
	created := make([]models.DownloadItem, 0, len(items))
	var err error
	for _, item := range items {
		var c models.DownloadItem
		if c, err = e.downloads.Create(item); err != nil {
			break
		}
		e.appendLog(c.ID, "info", "task created for "+c.URL)
		created = append(created, c)
	}
	if len(created) > 0 {
		e.Publish(engine.ItemNotifierEvent{})
	}
	return created, err
}

func (e *Engine) EditItem(_ context.Context, item models.EditDownloadItem) error {
	if e.Running(item.ID) {
		return fmt.Errorf("%w: stop task %d before editing it", shared.ErrTaskRunning, item.ID)
	}
	if err := e.downloads.Update(item); err != nil {
		return err
	}
	e.appendLog(item.ID, "info", "task edited")
	return nil
}

func (e *Engine) DeleteItem(_ context.Context, id int64) error {
	if e.Running(id) {
		return fmt.Errorf("%w: stop task %d before deleting it", shared.ErrTaskRunning, id)
	}
	if err := e.downloads.Delete(id); err != nil {
		return err
	}
	if err := e.logs.Clear(id); err != nil {
		e.logger.Warn("failed to clear task log", "id", id, "error", err)
	}
	return nil
}

// StartDownload starts, resumes or retries id. The transfer runs in the background; the call returns once the
// task is marked downloading.
func (e *Engine) StartDownload(_ context.Context, id int64) error {
	item, err := e.downloads.Get(id)
	if err != nil {
		return err
	}
	if item.Status == models.StatusSuccess {
		return fmt.Errorf("%w: task %d already finished", shared.ErrInvalidInput, id)
	}

	e.mu.Lock()
	if _, ok := e.running[id]; ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: task %d", shared.ErrTaskRunning, id)
	}
	if e.ctx.Err() != nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: engine is shutting down", shared.ErrEngineUnavailable)
	}
	ctx, cancel := context.WithCancel(e.ctx)
	t := &transfer{cancel: cancel, done: make(chan struct{})}
	e.running[id] = t
	e.wg.Add(1)
	e.mu.Unlock()

	if err := e.downloads.SetStatus(id, models.StatusDownloading); err != nil {
		e.finish(id, t)
		cancel()
		return err
	}

	e.appendLog(id, "info", "download started")
	e.Publish(engine.StartEvent{ID: id})

	go e.run(ctx, item, t)
	return nil
}

func (e *Engine) finish(id int64, t *transfer) {
	e.mu.Lock()
	if e.running[id] == t {
		delete(e.running, id)
	}
	e.mu.Unlock()
	close(t.done)
	e.wg.Done()
}

func (e *Engine) run(ctx context.Context, item models.DownloadItem, t *transfer) {
	defer e.finish(item.ID, t)
	defer t.cancel()

	manifest, err := e.prober.Probe(ctx, item.URL, item.Headers)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.fail(item.ID, err)
		return
	}

	e.appendLog(item.ID, "info", fmt.Sprintf("manifest %s: %d segments, live=%t", manifest.URL, manifest.Segments, manifest.Live))

	changed, err := e.downloads.SetLive(item.ID, manifest.Live)
	if err != nil {
		e.fail(item.ID, err)
		return
	}
	if changed {
		e.Publish(engine.LiveStatusChangeEvent{ID: item.ID, IsLive: manifest.Live})
	}

	limiter := rate.NewLimiter(rate.Limit(e.opts.TickRate), 1)
	speed := humanize.Bytes(uint64(float64(e.opts.SegmentBytes)*e.opts.TickRate*float64(e.opts.SegmentStep))) + "/s"

	cur := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		cur += e.opts.SegmentStep
		total := float64(0)
		if !manifest.Live {
			cur = min(cur, manifest.Segments)
			total = float64(manifest.Segments)
		}
		e.Publish(engine.ProgressEvent{Progress: models.DownloadProgress{
			ID:    item.ID,
			Cur:   float64(cur),
			Total: total,
			Speed: speed,
		}})

		if !manifest.Live && cur >= manifest.Segments {
			break
		}
	}

	if err := e.downloads.SetStatus(item.ID, models.StatusSuccess); err != nil {
		e.fail(item.ID, err)
		return
	}
	if err := e.downloads.SetExist(item.ID, true); err != nil {
		e.logger.Warn("failed to mark artifact present", "id", item.ID, "error", err)
	}
	e.appendLog(item.ID, "info", fmt.Sprintf("download finished: %d segments, %.0fs", manifest.Segments, manifest.Duration))
	e.Publish(engine.SuccessEvent{ID: item.ID})
}

func (e *Engine) fail(id int64, cause error) {
	e.logger.Warn("download failed", "id", id, "error", cause)
	if err := e.downloads.SetStatus(id, models.StatusFailed); err != nil {
		e.logger.Error("failed to mark task failed", "id", id, "error", err)
	}
	e.appendLog(id, "error", cause.Error())
	e.Publish(engine.FailedEvent{ID: id, Message: cause.Error()})
}

// StopDownload pauses id. For live sources this is the only way a transfer ends.
func (e *Engine) StopDownload(ctx context.Context, id int64) error {
	e.mu.Lock()
	t, ok := e.running[id]
	e.mu.Unlock()

	if !ok {
		if _, err := e.downloads.Get(id); err != nil {
			return err
		}
		return fmt.Errorf("%w: task %d is not downloading", shared.ErrInvalidInput, id)
	}

	t.cancel()
	select {
	case <-t.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	item, err := e.downloads.Get(id)
	if err != nil {
		return err
	}
	if item.Status != models.StatusDownloading {
		return nil
	}
	if err := e.downloads.SetStatus(id, models.StatusStopped); err != nil {
		return err
	}
	e.appendLog(id, "info", "download stopped")
	return nil
}

// ConvertToAudio records an audio extraction for a finished task whose file is present.
func (e *Engine) ConvertToAudio(_ context.Context, id int64) error {
	item, err := e.downloads.Get(id)
	if err != nil {
		return err
	}
	switch {
	case item.Status != models.StatusSuccess:
		return fmt.Errorf("%w: task %d has not finished downloading", shared.ErrNotConvertible, id)
	case !item.Exist:
		return fmt.Errorf("%w: the downloaded file for task %d is missing", shared.ErrNotConvertible, id)
	}
	e.appendLog(id, "info", "converted to audio")
	return nil
}

func (e *Engine) GetLog(_ context.Context, id int64) (string, error) {
	if _, err := e.downloads.Get(id); err != nil {
		return "", err
	}
	return e.logs.Text(id)
}

func (e *Engine) OpenDir(_ context.Context, path string) error { return e.opts.Open(path) }

func (e *Engine) OpenURL(_ context.Context, url string) error { return e.opts.Open(url) }

func (e *Engine) GetLocalIP(context.Context) (string, error) { return e.opts.LocalIP() }

func (e *Engine) ShowWindow(context.Context) error {
	return fmt.Errorf("%w: the development engine has no window", shared.ErrNotSupported)
}

func (e *Engine) ContextMenu(context.Context, int64) error {
	return fmt.Errorf("%w: the development engine has no item menu", shared.ErrNotSupported)
}

// MarkMissing records that the artifact of id was removed from disk.
func (e *Engine) MarkMissing(id int64) error {
	if err := e.downloads.SetExist(id, false); err != nil {
		return err
	}
	e.appendLog(id, "warn", "downloaded file is missing")
	return nil
}

