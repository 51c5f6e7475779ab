package devengine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/vidx/internal/engine"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/repositories"
	"github.com/desertthunder/vidx/internal/shared"
)

const vodPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,
seg0.ts
#EXTINF:10.0,
seg1.ts
#EXTINF:5.0,
seg2.ts
#EXT-X-ENDLIST
`

const livePlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:40
#EXTINF:6.0,
seg40.ts
#EXTINF:6.0,
seg41.ts
`

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=800000
low/index.m3u8
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=2400000
high/index.m3u8
`

func manifestServer(t *testing.T) (*httptest.Server, *sync.Map) {
	t.Helper()
	seen := &sync.Map{}
	mux := http.NewServeMux()
	serve := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			seen.Store(r.URL.Path, r.Header.Get("Referer"))
			w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/vod.m3u8", serve(vodPlaylist))
	mux.HandleFunc("/live.m3u8", serve(livePlaylist))
	mux.HandleFunc("/master.m3u8", serve(masterPlaylist))
	mux.HandleFunc("/high/index.m3u8", serve(vodPlaylist))
	mux.HandleFunc("/low/index.m3u8", serve(livePlaylist))
	mux.HandleFunc("/garbage.m3u8", serve("not a playlist"))
	mux.HandleFunc("/missing.m3u8", http.NotFound)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, seen
}

type recorder struct {
	mu     sync.Mutex
	events []engine.Event
	ch     chan engine.Event
}

func record(bus *engine.Bus) *recorder {
	r := &recorder{ch: make(chan engine.Event, 256)}
	for _, k := range engine.EventKinds {
		bus.On(k, func(ev engine.Event) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
			select {
			case r.ch <- ev:
			default:
			}
		})
	}
	return r
}

func (r *recorder) waitFor(t *testing.T, kind engine.EventKind) engine.Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-r.ch:
			if ev.Kind() == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", kind)
			return nil
		}
	}
}

func (r *recorder) progress() []models.DownloadProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DownloadProgress
	for _, ev := range r.events {
		if p, ok := ev.(engine.ProgressEvent); ok {
			out = append(out, p.Progress)
		}
	}
	return out
}

func setupEngine(t *testing.T, opts Options) (*Engine, *repositories.DownloadRepository, *repositories.LogRepository) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if opts.TickRate == 0 {
		opts.TickRate = 500
	}
	downloads := repositories.NewDownloadRepository(db)
	logs := repositories.NewLogRepository(db)
	e, err := New(downloads, logs, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e, downloads, logs
}

func add(t *testing.T, e *Engine, url string) models.DownloadItem {
	t.Helper()
	item, err := e.AddItem(context.Background(), models.NewDownloadItem{Name: "clip", URL: url, Type: models.TypeM3U8})
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	return item
}

func TestProber(t *testing.T) {
	srv, seen := manifestServer(t)
	p := NewProber(srv.Client())
	ctx := context.Background()

	t.Run("vod playlist", func(t *testing.T) {
		m, err := p.Probe(ctx, srv.URL+"/vod.m3u8", "Referer: https://example.com/\n")
		if err != nil {
			t.Fatalf("Probe() error = %v", err)
		}
		if m.Segments != 3 || m.Duration != 25 || m.Live {
			t.Errorf("unexpected manifest %+v", m)
		}
		if ref, _ := seen.Load("/vod.m3u8"); ref != "https://example.com/" {
			t.Errorf("expected task headers on the request, got Referer %q", ref)
		}
	})

	t.Run("live playlist", func(t *testing.T) {
		m, err := p.Probe(ctx, srv.URL+"/live.m3u8", "")
		if err != nil {
			t.Fatalf("Probe() error = %v", err)
		}
		if !m.Live || m.Segments != 2 {
			t.Errorf("unexpected manifest %+v", m)
		}
	})

	t.Run("master follows highest bandwidth", func(t *testing.T) {
		m, err := p.Probe(ctx, srv.URL+"/master.m3u8", "")
		if err != nil {
			t.Fatalf("Probe() error = %v", err)
		}
		if m.URL != srv.URL+"/high/index.m3u8" {
			t.Errorf("expected high variant, got %q", m.URL)
		}
		if m.Live {
			t.Error("expected the high variant to be a closed playlist")
		}
	})

	tests := []struct {
		name string
		url  string
		want error
	}{
		{"invalid url", "not a url", shared.ErrInvalidInput},
		{"not found", srv.URL + "/missing.m3u8", shared.ErrRequestFailed},
		{"garbage", srv.URL + "/garbage.m3u8", shared.ErrManifestInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Probe(ctx, tt.url, ""); !errors.Is(err, tt.want) {
				t.Errorf("Probe() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseHeaders(t *testing.T) {
	h := parseHeaders("Referer: https://a.example/\r\n\nbad line\nUser-Agent:  vidx \n")
	if got := h.Get("Referer"); got != "https://a.example/" {
		t.Errorf("Referer = %q", got)
	}
	if got := h.Get("User-Agent"); got != "vidx" {
		t.Errorf("User-Agent = %q", got)
	}
	if len(h) != 2 {
		t.Errorf("expected 2 headers, got %d", len(h))
	}
}

func TestEngineDownload(t *testing.T) {
	srv, _ := manifestServer(t)
	ctx := context.Background()

	t.Run("vod reaches success", func(t *testing.T) {
		e, downloads, logs := setupEngine(t, Options{HTTPClient: srv.Client(), SegmentBytes: 1000})
		rec := record(e.Bus)
		item := add(t, e, srv.URL+"/vod.m3u8")

		if err := e.StartDownload(ctx, item.ID); err != nil {
			t.Fatalf("StartDownload() error = %v", err)
		}
		if ev := rec.waitFor(t, engine.EventStart); ev.(engine.StartEvent).ID != item.ID {
			t.Errorf("unexpected start event %+v", ev)
		}
		if ev := rec.waitFor(t, engine.EventSuccess); ev.(engine.SuccessEvent).ID != item.ID {
			t.Errorf("unexpected success event %+v", ev)
		}

		samples := rec.progress()
		if len(samples) != 3 {
			t.Fatalf("expected 3 progress samples, got %d", len(samples))
		}
		last := samples[len(samples)-1]
		if last.Cur != 3 || last.Total != 3 {
			t.Errorf("unexpected final sample %+v", last)
		}
		if !strings.HasSuffix(last.Speed, "/s") {
			t.Errorf("expected a rate for speed, got %q", last.Speed)
		}

		e.wg.Wait()
		got, err := downloads.Get(item.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Status != models.StatusSuccess || !got.Exist {
			t.Errorf("expected success with artifact, got %+v", got)
		}

		text, err := logs.Text(item.ID)
		if err != nil {
			t.Fatalf("Text() error = %v", err)
		}
		if !strings.Contains(text, "download finished") {
			t.Errorf("expected finish line in log, got %q", text)
		}
	})

	t.Run("live runs until stopped", func(t *testing.T) {
		e, downloads, _ := setupEngine(t, Options{HTTPClient: srv.Client(), TickRate: 200})
		rec := record(e.Bus)
		item := add(t, e, srv.URL+"/live.m3u8")

		if err := e.StartDownload(ctx, item.ID); err != nil {
			t.Fatalf("StartDownload() error = %v", err)
		}
		ev := rec.waitFor(t, engine.EventLiveStatusChange).(engine.LiveStatusChangeEvent)
		if ev.ID != item.ID || !ev.IsLive {
			t.Errorf("unexpected live event %+v", ev)
		}
		p := rec.waitFor(t, engine.EventProgress).(engine.ProgressEvent)
		if p.Progress.Total != 0 {
			t.Errorf("expected unknown total for live source, got %v", p.Progress.Total)
		}

		if err := e.StartDownload(ctx, item.ID); !errors.Is(err, shared.ErrTaskRunning) {
			t.Errorf("expected ErrTaskRunning on second start, got %v", err)
		}
		if err := e.DeleteItem(ctx, item.ID); !errors.Is(err, shared.ErrTaskRunning) {
			t.Errorf("expected ErrTaskRunning on delete, got %v", err)
		}

		if err := e.StopDownload(ctx, item.ID); err != nil {
			t.Fatalf("StopDownload() error = %v", err)
		}
		if e.Running(item.ID) {
			t.Error("expected transfer to be gone after stop")
		}
		got, _ := downloads.Get(item.ID)
		if got.Status != models.StatusStopped || !got.IsLive {
			t.Errorf("expected stopped live task, got %+v", got)
		}
		if err := e.StopDownload(ctx, item.ID); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput stopping an idle task, got %v", err)
		}
	})

	t.Run("bad manifest fails", func(t *testing.T) {
		e, downloads, logs := setupEngine(t, Options{HTTPClient: srv.Client()})
		rec := record(e.Bus)
		item := add(t, e, srv.URL+"/missing.m3u8")

		if err := e.StartDownload(ctx, item.ID); err != nil {
			t.Fatalf("StartDownload() error = %v", err)
		}
		ev := rec.waitFor(t, engine.EventFailed).(engine.FailedEvent)
		if ev.ID != item.ID || ev.Message == "" {
			t.Errorf("unexpected failed event %+v", ev)
		}

		e.wg.Wait()
		got, _ := downloads.Get(item.ID)
		if got.Status != models.StatusFailed {
			t.Errorf("expected failed, got %s", got.Status)
		}
		text, _ := logs.Text(item.ID)
		if !strings.Contains(text, "[ERROR]") {
			t.Errorf("expected error line in log, got %q", text)
		}
	})

	t.Run("finished task cannot restart", func(t *testing.T) {
		e, downloads, _ := setupEngine(t, Options{HTTPClient: srv.Client()})
		item := add(t, e, srv.URL+"/vod.m3u8")
		if err := downloads.SetStatus(item.ID, models.StatusSuccess); err != nil {
			t.Fatal(err)
		}
		if err := e.StartDownload(ctx, item.ID); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("unknown task", func(t *testing.T) {
		e, _, _ := setupEngine(t, Options{HTTPClient: srv.Client()})
		if err := e.StartDownload(ctx, 999); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
		if err := e.StopDownload(ctx, 999); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
		if _, err := e.GetLog(ctx, 999); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})
}

func TestEngineCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("add publishes notifier", func(t *testing.T) {
		e, _, _ := setupEngine(t, Options{})
		rec := record(e.Bus)

		items, err := e.AddItems(ctx, []models.NewDownloadItem{
			{Name: "a", URL: "http://example.com/a.m3u8"},
			{Name: "b", URL: "http://example.com/b.m3u8"},
		})
		if err != nil {
			t.Fatalf("AddItems() error = %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		rec.waitFor(t, engine.EventItemNotifier)

		page, err := e.FetchPage(ctx, models.PageRequest{Current: 1, PageSize: 10, Filter: models.FilterList})
		if err != nil {
			t.Fatalf("FetchPage() error = %v", err)
		}
		if page.Total != 2 || page.List[0].ID != items[1].ID {
			t.Errorf("expected newest first, got %+v", page)
		}
	})

	t.Run("edit and delete", func(t *testing.T) {
		e, downloads, logs := setupEngine(t, Options{})
		item := add(t, e, "http://example.com/a.m3u8")

		err := e.EditItem(ctx, models.EditDownloadItem{ID: item.ID, Name: "renamed", URL: item.URL, Type: models.TypeM3U8})
		if err != nil {
			t.Fatalf("EditItem() error = %v", err)
		}
		got, _ := downloads.Get(item.ID)
		if got.Name != "renamed" {
			t.Errorf("expected renamed, got %q", got.Name)
		}

		if err := e.DeleteItem(ctx, item.ID); err != nil {
			t.Fatalf("DeleteItem() error = %v", err)
		}
		if _, err := downloads.Get(item.ID); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected deleted task to be gone, got %v", err)
		}
		entries, _ := logs.List(item.ID)
		if len(entries) != 0 {
			t.Errorf("expected log cleared, got %d entries", len(entries))
		}
	})

	t.Run("convert requires finished artifact", func(t *testing.T) {
		e, downloads, _ := setupEngine(t, Options{})
		item := add(t, e, "http://example.com/a.m3u8")

		if err := e.ConvertToAudio(ctx, item.ID); !errors.Is(err, shared.ErrNotConvertible) {
			t.Errorf("expected ErrNotConvertible for unfinished task, got %v", err)
		}

		downloads.SetStatus(item.ID, models.StatusSuccess)
		downloads.SetExist(item.ID, true)
		if err := e.ConvertToAudio(ctx, item.ID); err != nil {
			t.Errorf("ConvertToAudio() error = %v", err)
		}

		if err := e.MarkMissing(item.ID); err != nil {
			t.Fatalf("MarkMissing() error = %v", err)
		}
		if err := e.ConvertToAudio(ctx, item.ID); !errors.Is(err, shared.ErrNotConvertible) {
			t.Errorf("expected ErrNotConvertible for missing file, got %v", err)
		}
	})

	t.Run("desktop integration", func(t *testing.T) {
		var opened []string
		e, _, _ := setupEngine(t, Options{
			Open:    func(target string) error { opened = append(opened, target); return nil },
			LocalIP: func() (string, error) { return "10.0.0.7", nil },
		})

		if err := e.OpenDir(ctx, "/tmp/videos"); err != nil {
			t.Errorf("OpenDir() error = %v", err)
		}
		if err := e.OpenURL(ctx, "http://10.0.0.7:3000/player"); err != nil {
			t.Errorf("OpenURL() error = %v", err)
		}
		if len(opened) != 2 || opened[0] != "/tmp/videos" {
			t.Errorf("unexpected opened targets %v", opened)
		}
		if ip, _ := e.GetLocalIP(ctx); ip != "10.0.0.7" {
			t.Errorf("GetLocalIP() = %q", ip)
		}
		if err := e.ShowWindow(ctx); !errors.Is(err, shared.ErrNotSupported) {
			t.Errorf("expected ErrNotSupported, got %v", err)
		}
		if err := e.ContextMenu(ctx, 1); !errors.Is(err, shared.ErrNotSupported) {
			t.Errorf("expected ErrNotSupported, got %v", err)
		}
	})

	t.Run("new stops interrupted downloads", func(t *testing.T) {
		e, downloads, logs := setupEngine(t, Options{})
		item := add(t, e, "http://example.com/a.m3u8")
		downloads.SetStatus(item.ID, models.StatusDownloading)

		restarted, err := New(downloads, logs, Options{})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer restarted.Close()

		got, _ := downloads.Get(item.ID)
		if got.Status != models.StatusStopped {
			t.Errorf("expected stopped, got %s", got.Status)
		}
	})
}
