package engine_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/vidx/internal/engine"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
	tu "github.com/desertthunder/vidx/internal/testing"
)

func startServer(t *testing.T) (*tu.FakeEngine, *engine.Server, *engine.Client) {
	t.Helper()

	fake := tu.NewFakeEngine()
	srv := engine.NewServer(fake, nil)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	client, err := engine.Dial(context.Background(), url, engine.ClientOptions{RequestTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for srv.Connections() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	return fake, srv, client
}

func TestClientCommands(t *testing.T) {
	fake, _, client := startServer(t)
	ctx := context.Background()

	fake.SetItems(models.FilterList,
		models.DownloadItem{ID: 1, Name: "a", Status: models.StatusReady},
		models.DownloadItem{ID: 2, Name: "b", Status: models.StatusDownloading},
		models.DownloadItem{ID: 3, Name: "c", Status: models.StatusFailed},
	)
	fake.SetLog(2, "segment 1/10")

	t.Run("fetch page", func(t *testing.T) {
		page, err := client.FetchPage(ctx, models.PageRequest{Current: 2, PageSize: 2, Filter: models.FilterList})
		if err != nil {
			t.Fatalf("FetchPage() error = %v", err)
		}
		if page.Total != 3 || len(page.List) != 1 || page.List[0].ID != 3 {
			t.Errorf("unexpected page %+v", page)
		}
	})

	t.Run("id commands", func(t *testing.T) {
		if err := client.StartDownload(ctx, 1); err != nil {
			t.Fatalf("StartDownload() error = %v", err)
		}
		if err := client.StopDownload(ctx, 2); err != nil {
			t.Fatalf("StopDownload() error = %v", err)
		}
		if got := fake.IDsFor(engine.MethodStartDownload); len(got) != 1 || got[0] != 1 {
			t.Errorf("expected start for 1, got %v", got)
		}
		if got := fake.IDsFor(engine.MethodStopDownload); len(got) != 1 || got[0] != 2 {
			t.Errorf("expected stop for 2, got %v", got)
		}
	})

	t.Run("add item returns engine id", func(t *testing.T) {
		item, err := client.AddItem(ctx, models.NewDownloadItem{Name: "new", URL: "http://x/a.m3u8", Type: models.TypeM3U8})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		if item.ID == 0 || item.Name != "new" {
			t.Errorf("unexpected item %+v", item)
		}
	})

	t.Run("log text", func(t *testing.T) {
		text, err := client.GetLog(ctx, 2)
		if err != nil {
			t.Fatalf("GetLog() error = %v", err)
		}
		if text != "segment 1/10" {
			t.Errorf("GetLog() = %q", text)
		}
	})

	t.Run("local ip", func(t *testing.T) {
		ip, err := client.GetLocalIP(ctx)
		if err != nil {
			t.Fatalf("GetLocalIP() error = %v", err)
		}
		if ip != "192.168.1.20" {
			t.Errorf("GetLocalIP() = %q", ip)
		}
	})

	t.Run("rejection keeps engine message", func(t *testing.T) {
		fake.Fail(engine.MethodConvertToAudio, errors.New("source is still downloading"))
		err := client.ConvertToAudio(ctx, 1)

		var remote *engine.RemoteError
		if !errors.As(err, &remote) {
			t.Fatalf("expected RemoteError, got %v", err)
		}
		if remote.Message != "source is still downloading" {
			t.Errorf("unexpected message %q", remote.Message)
		}
		if !errors.Is(err, shared.ErrRequestFailed) {
			t.Error("expected ErrRequestFailed")
		}
	})
}

func TestClientEvents(t *testing.T) {
	fake, _, client := startServer(t)

	got := make(chan engine.Event, 4)
	sub := client.On(engine.EventProgress, func(ev engine.Event) { got <- ev })
	client.On(engine.EventItem, func(ev engine.Event) { got <- ev })

	want := engine.ProgressEvent{Progress: models.DownloadProgress{ID: 7, Cur: 1, Total: 4, Speed: "2 MB/s"}}
	fake.Emit(want)

	select {
	case ev := <-got:
		if ev != want {
			t.Errorf("got %#v, want %#v", ev, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for progress event")
	}

	fake.Emit(engine.ItemEvent{Action: engine.SelectAction{ID: 9}})
	select {
	case ev := <-got:
		item, ok := ev.(engine.ItemEvent)
		if !ok || item.Action != (engine.SelectAction{ID: 9}) {
			t.Errorf("unexpected event %#v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for item event")
	}

	client.Off(sub)
	fake.Emit(want)
	fake.Emit(engine.ItemEvent{Action: engine.RefreshAction{}})

	select {
	case ev := <-got:
		if ev.Kind() != engine.EventItem {
			t.Errorf("expected only the item handler to fire, got %v", ev.Kind())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh event")
	}
}

func TestClientDisconnect(t *testing.T) {
	fake, srv, client := startServer(t)

	block := make(chan struct{})
	fake.FetchHook = func(ctx context.Context, _ models.PageRequest) (models.Page, error) {
		<-block
		return models.Page{}, nil
	}
	defer close(block)

	errs := make(chan error, 1)
	go func() {
		_, err := client.FetchPage(context.Background(), models.PageRequest{Current: 1, PageSize: 10})
		errs <- err
	}()

	time.Sleep(50 * time.Millisecond)
	srv.Close()

	select {
	case err := <-errs:
		if !errors.Is(err, shared.ErrDisconnected) {
			t.Errorf("expected ErrDisconnected, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("pending call was not failed on disconnect")
	}

	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("client did not observe the closed connection")
	}

	if err := client.StartDownload(context.Background(), 1); !errors.Is(err, shared.ErrDisconnected) {
		t.Errorf("expected ErrDisconnected after close, got %v", err)
	}
}

func TestDialUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := engine.Dial(ctx, "ws://127.0.0.1:1/ws", engine.ClientOptions{})
	if !errors.Is(err, shared.ErrEngineUnavailable) {
		t.Errorf("expected ErrEngineUnavailable, got %v", err)
	}
}
