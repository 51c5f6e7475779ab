package tasks

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
)

func TestExecutor(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("engine rejected")

	t.Run("sequential runs in order", func(t *testing.T) {
		x := NewExecutor(ExecutorOpts{Concurrency: 1})
		var seen []int64
		completed, err := x.Run(ctx, OpBulkDownload, []int64{3, 1, 2}, func(_ context.Context, id int64) error {
			seen = append(seen, id)
			return nil
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !slices.Equal(seen, []int64{3, 1, 2}) || !slices.Equal(completed, seen) {
			t.Errorf("expected calls and completions in order, got %v / %v", seen, completed)
		}
	})

	t.Run("sequential stops at first failure", func(t *testing.T) {
		x := NewExecutor(ExecutorOpts{})
		var seen []int64
		completed, err := x.Run(ctx, OpBulkDelete, []int64{1, 2, 3}, func(_ context.Context, id int64) error {
			seen = append(seen, id)
			if id == 2 {
				return boom
			}
			return nil
		})

		var batchErr *BatchError
		if !errors.As(err, &batchErr) {
			t.Fatalf("expected BatchError, got %v", err)
		}
		if !errors.Is(err, boom) {
			t.Error("expected the call error to be wrapped")
		}
		if !slices.Equal(seen, []int64{1, 2}) {
			t.Errorf("expected 3 never issued, calls were %v", seen)
		}
		if batchErr.Failed != 2 || !slices.Equal(batchErr.Completed, []int64{1}) || !slices.Equal(batchErr.Remaining, []int64{3}) {
			t.Errorf("unexpected batch error %+v", batchErr)
		}
		if !slices.Equal(completed, []int64{1}) {
			t.Errorf("expected [1] completed, got %v", completed)
		}
	})

	t.Run("bounded concurrency respects the limit", func(t *testing.T) {
		x := NewExecutor(ExecutorOpts{Concurrency: 2})
		var inFlight, peak atomic.Int32
		var mu sync.Mutex
		var seen []int64

		completed, err := x.Run(ctx, OpBulkDownload, []int64{1, 2, 3, 4, 5}, func(_ context.Context, id int64) error {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			mu.Lock()
			seen = append(seen, id)
			mu.Unlock()
			return nil
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 calls in flight, saw %d", peak.Load())
		}
		if !slices.Equal(completed, []int64{1, 2, 3, 4, 5}) {
			t.Errorf("expected completions in selection order, got %v", completed)
		}
		if len(seen) != 5 {
			t.Errorf("expected 5 calls, got %d", len(seen))
		}
	})

	t.Run("bounded failure cancels the rest", func(t *testing.T) {
		x := NewExecutor(ExecutorOpts{Concurrency: 2})
		_, err := x.Run(ctx, OpBulkDelete, []int64{1, 2, 3, 4}, func(ctx context.Context, id int64) error {
			if id == 1 {
				return boom
			}
			<-ctx.Done()
			return ctx.Err()
		})

		var batchErr *BatchError
		if !errors.As(err, &batchErr) {
			t.Fatalf("expected BatchError, got %v", err)
		}
		if batchErr.Failed != 1 {
			t.Errorf("expected failure at 1, got %d", batchErr.Failed)
		}
		if !errors.Is(err, boom) {
			t.Errorf("expected first error to be reported, got %v", batchErr.Err)
		}
		if len(batchErr.Completed) != 0 {
			t.Errorf("expected nothing completed, got %v", batchErr.Completed)
		}
		if len(batchErr.Remaining) != 3 {
			t.Errorf("expected 3 remaining, got %v", batchErr.Remaining)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		completed, err := NewExecutor(ExecutorOpts{}).Run(ctx, OpBulkDelete, nil, func(context.Context, int64) error {
			t.Fatal("unexpected call")
			return nil
		})
		if err != nil || len(completed) != 0 {
			t.Errorf("expected no-op, got %v, %v", completed, err)
		}
	})
}

func TestTransient(t *testing.T) {
	t.Run("set during call and cleared after success", func(t *testing.T) {
		tr := NewTransient()
		var during bool
		err := tr.Track(FlagConverting, 7, func() error {
			during = tr.Active(FlagConverting, 7)
			return nil
		})
		if err != nil {
			t.Fatalf("Track() error = %v", err)
		}
		if !during {
			t.Error("expected flag set during the call")
		}
		if tr.Active(FlagConverting, 7) {
			t.Error("expected flag cleared")
		}
	})

	t.Run("cleared after failure", func(t *testing.T) {
		tr := NewTransient()
		boom := errors.New("ffmpeg exited 1")
		if err := tr.Track(FlagConverting, 7, func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("expected error returned, got %v", err)
		}
		if tr.Active(FlagConverting, 7) {
			t.Error("expected flag cleared after failure")
		}
	})

	t.Run("cleared after panic", func(t *testing.T) {
		tr := NewTransient()
		func() {
			defer func() { _ = recover() }()
			_ = tr.Track(FlagConverting, 7, func() error { panic("boom") })
		}()
		if tr.Active(FlagConverting, 7) {
			t.Error("expected flag cleared after panic")
		}
		if len(tr.Snapshot(FlagConverting)) != 0 {
			t.Error("expected empty snapshot")
		}
	})
}
