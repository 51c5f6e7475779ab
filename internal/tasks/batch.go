package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/desertthunder/vidx/internal/shared"
)

// BatchOp is one per-task engine call.
type BatchOp func(ctx context.Context, id int64) error

// BatchError reports where a bulk action stopped. Completed calls are not rolled back.
type BatchError struct {
	Op        Op
	Failed    int64   // id whose call failed
	Completed []int64 // ids whose call succeeded
	Remaining []int64 // ids never issued, or cancelled after the failure
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s stopped at task %d after %d of %d: %v",
		e.Op, e.Failed, len(e.Completed), len(e.Completed)+len(e.Remaining)+1, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// ExecutorOpts configures an [Executor].
type ExecutorOpts struct {
	Concurrency int     // calls in flight at once; 1 or less is strictly sequential
	RateLimit   float64 // calls per second; zero disables pacing
	Logger      *log.Logger
}

// Executor runs a bulk action over a list of ids as an ordered, fail-fast pipeline.
//
// With a concurrency of 1 every call is awaited before the next is issued and the first failure stops the run.
// With a higher bound calls overlap up to the bound; the first failure cancels the rest and no new calls are issued.
type Executor struct {
	concurrency int
	limiter     *rate.Limiter
	logger      *log.Logger
}

func NewExecutor(opts ExecutorOpts) *Executor {
	x := &Executor{concurrency: max(opts.Concurrency, 1), logger: opts.Logger}
	if opts.RateLimit > 0 {
		x.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	if x.logger == nil {
		x.logger = shared.NopLogger()
	}
	return x
}

// Concurrency returns the configured bound.
func (x *Executor) Concurrency() int { return x.concurrency }

// Run calls fn for every id and returns the ids that completed. On failure the error is a [*BatchError].
func (x *Executor) Run(ctx context.Context, op Op, ids []int64, fn BatchOp) ([]int64, error) {
	if x.concurrency <= 1 {
		return x.sequential(ctx, op, ids, fn)
	}
	return x.bounded(ctx, op, ids, fn)
}

func (x *Executor) wait(ctx context.Context) error {
	if x.limiter == nil {
		return ctx.Err()
	}
	return x.limiter.Wait(ctx)
}

func (x *Executor) sequential(ctx context.Context, op Op, ids []int64, fn BatchOp) ([]int64, error) {
	completed := make([]int64, 0, len(ids))

	for i, id := range ids {
		err := x.wait(ctx)
		if err == nil {
			err = fn(ctx, id)
		}
		if err != nil {
			x.logger.Warn("batch halted", "op", op, "id", id, "completed", len(completed), "error", err)
			return completed, &BatchError{
				Op:        op,
				Failed:    id,
				Completed: completed,
				Remaining: append([]int64(nil), ids[i+1:]...),
				Err:       err,
			}
		}
		completed = append(completed, id)
	}
	return completed, nil
}

func (x *Executor) bounded(ctx context.Context, op Op, ids []int64, fn BatchOp) ([]int64, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.concurrency)

	var (
		mu        sync.Mutex
		done      = make(map[int64]bool, len(ids))
		failed    int64
		hasFailed bool
	)

	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := x.wait(gctx); err != nil {
				return err
			}
			if err := fn(gctx, id); err != nil {
				mu.Lock()
				if !hasFailed {
					failed, hasFailed = id, true
				}
				mu.Unlock()
				return err
			}
			mu.Lock()
			done[id] = true
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()

	completed := make([]int64, 0, len(ids))
	var remaining []int64
	for _, id := range ids {
		switch {
		case done[id]:
			completed = append(completed, id)
		case hasFailed && id == failed:
		default:
			remaining = append(remaining, id)
		}
	}

	if err == nil {
		return completed, nil
	}
	if !hasFailed && len(remaining) > 0 {
		// Cancelled from outside before any call failed.
		failed, remaining = remaining[0], remaining[1:]
	}
	x.logger.Warn("batch halted", "op", op, "id", failed, "completed", len(completed), "error", err)
	return completed, &BatchError{Op: op, Failed: failed, Completed: completed, Remaining: remaining, Err: err}
}
