package tasks

import "sync"

// Flag names a transient per-task UI state that the engine does not track.
type Flag string

const (
	FlagConverting Flag = "converting"
)

// Transient is a keyed set of in-flight flags.
type Transient struct {
	mu    sync.Mutex
	flags map[Flag]map[int64]struct{}
}

func NewTransient() *Transient {
	return &Transient{flags: make(map[Flag]map[int64]struct{})}
}

// Track sets flag for id, runs fn and clears the flag on every path, including a panic in fn.
func (t *Transient) Track(flag Flag, id int64, fn func() error) error {
	t.set(flag, id)
	defer t.clear(flag, id)
	return fn()
}

// Active reports whether flag is set for id.
func (t *Transient) Active(flag Flag, id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.flags[flag][id]
	return ok
}

// Snapshot copies the ids that have flag set.
func (t *Transient) Snapshot(flag Flag) map[int64]bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[int64]bool, len(t.flags[flag]))
	for id := range t.flags[flag] {
		out[id] = true
	}
	return out
}

func (t *Transient) set(flag Flag, id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.flags[flag] == nil {
		t.flags[flag] = make(map[int64]struct{})
	}
	t.flags[flag][id] = struct{}{}
}

func (t *Transient) clear(flag Flag, id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.flags[flag], id)
	if len(t.flags[flag]) == 0 {
		delete(t.flags, flag)
	}
}
