package tasks

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/vidx/internal/engine"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
)

// BridgeTarget receives the effects of engine events.
type BridgeTarget interface {
	engine.ItemActionHandler
	ApplyProgress(p models.DownloadProgress)
}

// Bridge registers one handler per event kind while attached and removes exactly those registrations on detach.
//
// Progress is applied inline. Everything that calls back into the engine runs through the bridge's runner, since
// handlers are invoked on the engine's delivery goroutine.
type Bridge struct {
	sub    engine.Subscriber
	target BridgeTarget
	logger *log.Logger
	run    func(func())

	mu     sync.Mutex
	subs   []engine.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBridge creates a detached bridge. run defaults to starting a goroutine.
func NewBridge(sub engine.Subscriber, target BridgeTarget, run func(func()), logger *log.Logger) *Bridge {
	if logger == nil {
		logger = shared.NopLogger()
	}
	b := &Bridge{sub: sub, target: target, logger: logger, run: run}
	if b.run == nil {
		b.run = func(f func()) { go f() }
	}
	return b
}

// Attach registers the handlers. Attaching an attached bridge is a no-op.
func (b *Bridge) Attach(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs != nil {
		return
	}
	b.ctx, b.cancel = context.WithCancel(ctx)
	for _, kind := range engine.EventKinds {
		b.subs = append(b.subs, b.sub.On(kind, b.handle))
	}
	b.logger.Debug("bridge attached", "handlers", len(b.subs))
}

// Detach removes every registration made by Attach and cancels work started by handlers.
func (b *Bridge) Detach() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	cancel := b.cancel
	b.mu.Unlock()

	for _, sub := range subs {
		b.sub.Off(sub)
	}
	if cancel != nil {
		cancel()
	}
	b.logger.Debug("bridge detached", "handlers", len(subs))
}

// Wait blocks until work started by handlers has returned.
func (b *Bridge) Wait() { b.wg.Wait() }

// Attached reports whether handlers are registered.
func (b *Bridge) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs != nil
}

func (b *Bridge) handle(ev engine.Event) {
	switch ev := ev.(type) {
	case engine.ProgressEvent:
		b.target.ApplyProgress(ev.Progress)
	case engine.ItemEvent:
		b.async("item-event", func(ctx context.Context) error {
			return ev.Action.Apply(ctx, b.target)
		})
	case engine.SuccessEvent, engine.FailedEvent, engine.StartEvent,
		engine.ItemNotifierEvent, engine.LiveStatusChangeEvent:
		b.async(ev.Kind().String(), b.target.RefreshItems)
	}
}

func (b *Bridge) async(name string, fn func(ctx context.Context) error) {
	b.mu.Lock()
	ctx := b.ctx
	attached := b.subs != nil
	if attached {
		b.wg.Add(1)
	}
	b.mu.Unlock()

	if !attached {
		return
	}

	b.run(func() {
		defer b.wg.Done()
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			b.logger.Warn("event handler failed", "event", name, "error", err)
		}
	})
}
