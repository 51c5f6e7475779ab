package tasks

import (
	"context"
	"slices"
	"testing"

	"github.com/desertthunder/vidx/internal/engine"
	"github.com/desertthunder/vidx/internal/models"
	tu "github.com/desertthunder/vidx/internal/testing"
)

func inline(f func()) { f() }

func newTestList(t *testing.T, opts Options) (*TaskList, *tu.FakeEngine) {
	t.Helper()
	fake := tu.NewFakeEngine()
	if opts.Run == nil {
		opts.Run = inline
	}
	l := New(fake, opts)
	t.Cleanup(l.Detach)
	return l, fake
}

func TestBridgeLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("detach leaves no handlers", func(t *testing.T) {
		l, fake := newTestList(t, Options{})
		if err := l.Attach(ctx); err != nil {
			t.Fatalf("Attach() error = %v", err)
		}
		if fake.Len() != len(engine.EventKinds) {
			t.Fatalf("expected one handler per event kind, got %d", fake.Len())
		}

		l.Detach()
		if fake.Len() != 0 {
			t.Fatalf("expected zero handlers after detach, got %d", fake.Len())
		}

		fake.Reset()
		fake.Emit(engine.SuccessEvent{ID: 1})
		fake.Emit(engine.ProgressEvent{Progress: models.DownloadProgress{ID: 1, Cur: 1, Total: 2}})
		if len(fake.Calls()) != 0 {
			t.Errorf("expected no engine calls after detach, got %v", fake.Calls())
		}
		if _, ok := l.Progress(1); ok {
			t.Error("expected progress ignored after detach")
		}
	})

	t.Run("remount does not duplicate delivery", func(t *testing.T) {
		l, fake := newTestList(t, Options{})
		_ = l.Attach(ctx)
		_ = l.Attach(ctx)
		l.Detach()
		_ = l.Attach(ctx)

		fake.Reset()
		fake.Emit(engine.StartEvent{ID: 1})
		if n := len(fake.CallsTo(engine.MethodFetchPage)); n != 1 {
			t.Errorf("expected a single refresh, got %d", n)
		}
	})
}

func TestBridgeEvents(t *testing.T) {
	ctx := context.Background()

	refreshing := []engine.Event{
		engine.SuccessEvent{ID: 1},
		engine.FailedEvent{ID: 1, Message: "403"},
		engine.StartEvent{ID: 1},
		engine.ItemNotifierEvent{},
		engine.LiveStatusChangeEvent{ID: 1, IsLive: true},
		engine.ItemEvent{Action: engine.RefreshAction{}},
	}
	for _, ev := range refreshing {
		t.Run(ev.Kind().String()+" refreshes", func(t *testing.T) {
			l, fake := newTestList(t, Options{})
			_ = l.Attach(ctx)
			fake.Reset()

			fake.Emit(ev)
			if n := len(fake.CallsTo(engine.MethodFetchPage)); n != 1 {
				t.Errorf("expected 1 refresh, got %d", n)
			}
		})
	}

	t.Run("progress updates without fetching", func(t *testing.T) {
		l, fake := newTestList(t, Options{})
		_ = l.Attach(ctx)
		fake.Reset()

		fake.Emit(engine.ProgressEvent{Progress: models.DownloadProgress{ID: 5, Cur: 2, Total: 4}})
		if len(fake.Calls()) != 0 {
			t.Errorf("expected no engine calls, got %v", fake.Calls())
		}
		if p, ok := l.Progress(5); !ok || p.Cur != 2 {
			t.Errorf("expected progress stored, got %+v", p)
		}
	})

	t.Run("select action", func(t *testing.T) {
		l, fake := newTestList(t, Options{})
		fake.SetItems(models.FilterList, items(8)...)
		_ = l.Attach(ctx)

		fake.Emit(engine.ItemEvent{Action: engine.SelectAction{ID: 8}})
		if !slices.Equal(l.Selection(), []int64{8}) {
			t.Errorf("expected 8 selected, got %v", l.Selection())
		}
	})

	t.Run("download action starts and refreshes", func(t *testing.T) {
		l, fake := newTestList(t, Options{})
		_ = l.Attach(ctx)
		fake.Reset()

		fake.Emit(engine.ItemEvent{Action: engine.DownloadAction{ID: 3}})
		if !slices.Equal(fake.IDsFor(engine.MethodStartDownload), []int64{3}) {
			t.Errorf("expected start of 3, got %v", fake.Calls())
		}
		if len(fake.CallsTo(engine.MethodFetchPage)) != 1 {
			t.Error("expected a refresh after start")
		}
	})

	t.Run("delete action deletes then refreshes", func(t *testing.T) {
		l, fake := newTestList(t, Options{})
		fake.SetItems(models.FilterList, items(3, 4)...)
		_ = l.Attach(ctx)
		fake.Reset()

		fake.Emit(engine.ItemEvent{Action: engine.DeleteAction{ID: 3}})
		calls := fake.Calls()
		if len(calls) != 2 || calls[0].Method != engine.MethodDeleteItem || calls[1].Method != engine.MethodFetchPage {
			t.Fatalf("expected delete then fetch, got %v", calls)
		}
		if ids := l.View().Rows; len(ids) != 1 || ids[0].Item.ID != 4 {
			t.Errorf("expected only 4 left, got %+v", ids)
		}
	})

	t.Run("async runner waits", func(t *testing.T) {
		l, fake := newTestList(t, Options{Run: func(f func()) { go f() }})
		_ = l.Attach(ctx)
		fake.Reset()

		fake.Emit(engine.ItemNotifierEvent{})
		l.Wait()
		if len(fake.CallsTo(engine.MethodFetchPage)) != 1 {
			t.Error("expected the background refresh to have run")
		}
	})
}
