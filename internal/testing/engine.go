package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/vidx/internal/engine"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
)

// Call is one recorded engine command.
type Call struct {
	Method string
	ID     int64 // task id for id-keyed commands
	Arg    any   // payload for the rest
}

// FakeEngine is a recording test double for [engine.Engine].
//
// Pages are served per filter with simple pagination. Errors registered with [FakeEngine.Fail] are returned
// from the named method (see the engine.Method* constants). Events are injected with [FakeEngine.Emit].
type FakeEngine struct {
	*engine.Bus

	mu     sync.Mutex
	pages  map[models.DownloadFilter][]models.DownloadItem
	errs   map[string]error
	errsAt map[string]map[int64]error
	logs   map[int64]string
	ip     string
	nextID int64
	calls  []Call

	// FetchHook replaces the default FetchPage behaviour when set.
	FetchHook func(ctx context.Context, req models.PageRequest) (models.Page, error)
}

var _ engine.Engine = (*FakeEngine)(nil)

func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		Bus:    engine.NewBus(),
		pages:  make(map[models.DownloadFilter][]models.DownloadItem),
		errs:   make(map[string]error),
		errsAt: make(map[string]map[int64]error),
		logs:   make(map[int64]string),
		ip:     "192.168.1.20",
		nextID: 100,
	}
}

// SetItems replaces the items served for filter.
func (f *FakeEngine) SetItems(filter models.DownloadFilter, items ...models.DownloadItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[filter] = append([]models.DownloadItem(nil), items...)
}

// Fail makes every call to method return err. A nil err clears it.
func (f *FakeEngine) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

// FailFor makes calls to method for task id return err.
func (f *FakeEngine) FailFor(method string, id int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errsAt[method] == nil {
		f.errsAt[method] = make(map[int64]error)
	}
	f.errsAt[method][id] = err
}

// SetLog sets the log text returned for id.
func (f *FakeEngine) SetLog(id int64, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs[id] = text
}

// SetLocalIP sets the address returned by GetLocalIP.
func (f *FakeEngine) SetLocalIP(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ip = ip
}

// Emit publishes ev to the registered handlers on the caller's goroutine.
func (f *FakeEngine) Emit(ev engine.Event) { f.Publish(ev) }

// Calls returns a copy of every recorded call in order.
func (f *FakeEngine) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded calls to method.
func (f *FakeEngine) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// IDsFor returns the task ids passed to method, in call order.
func (f *FakeEngine) IDsFor(method string) []int64 {
	var ids []int64
	for _, c := range f.CallsTo(method) {
		ids = append(ids, c.ID)
	}
	return ids
}

// Reset forgets the recorded calls.
func (f *FakeEngine) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *FakeEngine) record(method string, id int64, arg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, ID: id, Arg: arg})
	if err, ok := f.errsAt[method][id]; ok {
		return err
	}
	return f.errs[method]
}

func (f *FakeEngine) FetchPage(ctx context.Context, req models.PageRequest) (models.Page, error) {
	if err := f.record(engine.MethodFetchPage, 0, req); err != nil {
		return models.Page{}, err
	}
	if f.FetchHook != nil {
		return f.FetchHook(ctx, req)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.pages[req.Filter]
	page := models.Page{Total: len(items), List: []models.DownloadItem{}}
	if req.PageSize <= 0 {
		page.List = append(page.List, items...)
		return page, nil
	}
	start := (max(req.Current, 1) - 1) * req.PageSize
	if start >= len(items) {
		return page, nil
	}
	end := min(start+req.PageSize, len(items))
	page.List = append(page.List, items[start:end]...)
	return page, nil
}

func (f *FakeEngine) StartDownload(_ context.Context, id int64) error {
	return f.record(engine.MethodStartDownload, id, nil)
}

func (f *FakeEngine) StopDownload(_ context.Context, id int64) error {
	return f.record(engine.MethodStopDownload, id, nil)
}

func (f *FakeEngine) DeleteItem(_ context.Context, id int64) error {
	if err := f.record(engine.MethodDeleteItem, id, nil); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for filter, items := range f.pages {
		kept := items[:0:0]
		for _, item := range items {
			if item.ID != id {
				kept = append(kept, item)
			}
		}
		f.pages[filter] = kept
	}
	return nil
}

func (f *FakeEngine) EditItem(_ context.Context, item models.EditDownloadItem) error {
	return f.record(engine.MethodEditItem, item.ID, item)
}

func (f *FakeEngine) AddItem(_ context.Context, item models.NewDownloadItem) (models.DownloadItem, error) {
	if err := f.record(engine.MethodAddItem, 0, item); err != nil {
		return models.DownloadItem{}, err
	}
	return f.create(item), nil
}

func (f *FakeEngine) AddItems(_ context.Context, items []models.NewDownloadItem) ([]models.DownloadItem, error) {
	if err := f.record(engine.MethodAddItems, 0, items); err != nil {
		return nil, err
	}
	created := make([]models.DownloadItem, 0, len(items))
	for _, item := range items {
		created = append(created, f.create(item))
	}
	return created, nil
}

func (f *FakeEngine) create(n models.NewDownloadItem) models.DownloadItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item := models.DownloadItem{
		ID:      f.nextID,
		Name:    n.Name,
		URL:     n.URL,
		Headers: n.Headers,
		Type:    n.Type,
		Status:  models.StatusReady,
	}
	f.pages[models.FilterList] = append([]models.DownloadItem{item}, f.pages[models.FilterList]...)
	return item
}

func (f *FakeEngine) ConvertToAudio(_ context.Context, id int64) error {
	return f.record(engine.MethodConvertToAudio, id, nil)
}

func (f *FakeEngine) GetLog(_ context.Context, id int64) (string, error) {
	if err := f.record(engine.MethodGetLog, id, nil); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.logs[id]
	if !ok {
		return "", fmt.Errorf("%w: %d", shared.ErrTaskNotFound, id)
	}
	return text, nil
}

func (f *FakeEngine) OpenDir(_ context.Context, path string) error {
	return f.record(engine.MethodOpenDir, 0, path)
}

func (f *FakeEngine) OpenURL(_ context.Context, url string) error {
	return f.record(engine.MethodOpenURL, 0, url)
}

func (f *FakeEngine) GetLocalIP(context.Context) (string, error) {
	if err := f.record(engine.MethodGetLocalIP, 0, nil); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ip, nil
}

func (f *FakeEngine) ShowWindow(context.Context) error {
	return f.record(engine.MethodShowWindow, 0, nil)
}

func (f *FakeEngine) ContextMenu(_ context.Context, id int64) error {
	return f.record(engine.MethodContextMenu, id, nil)
}
