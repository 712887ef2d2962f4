package remap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"keyremapd/internal/keys"
	"keyremapd/internal/platform"
)

// failureBuffer bounds the queue between the hook thread and the
// goroutine that logs synthesis failures.
const failureBuffer = 64

// Verdict is the interceptor's decision for one event.
type Verdict int

const (
	// Forward passes the event to the next hook unchanged.
	Forward Verdict = iota
	// Consume swallows the event.
	Consume
)

func (v Verdict) String() string {
	if v == Consume {
		return "consume"
	}
	return "forward"
}

// FocusReader is the lock-free view of focus the hot path reads.
type FocusReader interface {
	Active() bool
}

// Failure describes a synthesized event that could not be delivered.
type Failure struct {
	Source keys.Code
	Dest   keys.Code
	Dir    Direction
	Err    error
	At     time.Time
}

func (f Failure) Error() string {
	return fmt.Sprintf("synthesize %s %s for %s: %v", keys.Name(f.Dest), f.Dir, keys.Name(f.Source), f.Err)
}

// Stats are cumulative interceptor counters.
type Stats struct {
	Events            uint64
	SelfInjected      uint64
	ForeignInjected   uint64
	Remapped          uint64
	RepeatsSuppressed uint64
	OrphanUps         uint64
	Directed          uint64
	System            uint64
	Failures          uint64
	FailuresDropped   uint64
	Released          uint64
}

type counters struct {
	events, selfInjected, foreignInjected, remapped, repeats atomic.Uint64
	orphanUps, directed, system, failures, dropped, released atomic.Uint64
}

// Interceptor is the synchronous per-event filter. OnKeyEvent runs on the
// hook thread; every other method may be called from any goroutine.
type Interceptor struct {
	table  atomic.Pointer[Table]
	focus  FocusReader
	emit   Emitter
	paused atomic.Bool

	// mu guards pressed and table swaps. It is never held across
	// synthesis.
	mu      sync.Mutex
	pressed pressedSet

	failures chan Failure
	stats    counters
}

// NewInterceptor returns an interceptor over table.
func NewInterceptor(table *Table, focus FocusReader, emit Emitter) *Interceptor {
	if table == nil {
		table = emptyTable()
	}
	i := &Interceptor{
		focus:    focus,
		emit:     emit,
		failures: make(chan Failure, failureBuffer),
	}
	i.table.Store(table)
	return i
}

// HookProc adapts OnKeyEvent to the platform hook signature.
func (i *Interceptor) HookProc() platform.HookProc {
	return func(code int32, msg uintptr, rec *platform.KeyRecord) bool {
		return i.OnKeyEvent(code, msg, rec) == Consume
	}
}

// OnKeyEvent decides the fate of one keyboard transition. Every check up
// to the table lookup is lock-free; the lock covers only the pressed-set
// update and synthesis happens after it is released.
func (i *Interceptor) OnKeyEvent(code int32, msg uintptr, rec *platform.KeyRecord) Verdict {
	if code != platform.HCAction || rec == nil {
		return Forward
	}
	i.stats.events.Add(1)

	// Our own output must never be remapped again.
	if rec.DwExtraInfo == platform.Sentinel {
		i.stats.selfInjected.Add(1)
		return Forward
	}
	// Input injected by other programs is remapped like physical input.
	if rec.Injected() {
		i.stats.foreignInjected.Add(1)
	}

	dir, ok := directionOf(msg)
	if !ok {
		return Forward
	}
	if i.paused.Load() || !i.focus.Active() {
		return Forward
	}

	src := keys.Code(rec.VkCode)
	t := i.table.Load()
	dest, ok := t.Lookup(src)
	if !ok {
		return Forward
	}

	i.mu.Lock()
	// A reload may have swapped the table since the lock-free lookup.
	if cur := i.table.Load(); cur != t {
		dest, ok = cur.Lookup(src)
		if !ok {
			i.mu.Unlock()
			return Forward
		}
	}
	var send bool
	if dir == KeyDown {
		send = i.pressed.press(src)
	} else {
		send = i.pressed.release(src)
	}
	i.mu.Unlock()

	if !send {
		if dir == KeyDown {
			i.stats.repeats.Add(1)
		} else {
			i.stats.orphanUps.Add(1)
		}
		return Consume
	}

	i.stats.remapped.Add(1)
	i.deliver(src, dest, dir)
	return Consume
}

func directionOf(msg uintptr) (Direction, bool) {
	switch msg {
	case platform.WMKeyDown, platform.WMSysKeyDown:
		return KeyDown, true
	case platform.WMKeyUp, platform.WMSysKeyUp:
		return KeyUp, true
	}
	return 0, false
}

func (i *Interceptor) deliver(src, dest keys.Code, dir Direction) {
	path, err := i.emit.Emit(dest, dir)
	switch path {
	case PathDirected:
		i.stats.directed.Add(1)
	case PathSystem:
		i.stats.system.Add(1)
	}
	if err == nil {
		return
	}
	i.stats.failures.Add(1)
	f := Failure{Source: src, Dest: dest, Dir: dir, Err: err, At: time.Now()}
	select {
	case i.failures <- f:
	default:
		i.stats.dropped.Add(1)
	}
}

// Failures delivers synthesis failures. Undrained failures beyond the
// buffer are counted and dropped.
func (i *Interceptor) Failures() <-chan Failure {
	return i.failures
}

// Table returns the current table.
func (i *Interceptor) Table() *Table {
	return i.table.Load()
}

// SwapTable installs next and releases every key held under the previous
// table, synthesizing the matching key-ups.
func (i *Interceptor) SwapTable(next *Table) *Table {
	if next == nil {
		next = emptyTable()
	}
	i.mu.Lock()
	prev := i.table.Swap(next)
	held := i.pressed.drain()
	i.mu.Unlock()

	i.releaseHeld(prev, held)
	return prev
}

// ReleaseAll clears the pressed set, synthesizing a key-up for every held
// key. It returns the number of keys released.
func (i *Interceptor) ReleaseAll() int {
	i.mu.Lock()
	t := i.table.Load()
	held := i.pressed.drain()
	i.mu.Unlock()

	i.releaseHeld(t, held)
	return len(held)
}

func (i *Interceptor) releaseHeld(t *Table, held []keys.Code) {
	for _, src := range held {
		dest, ok := t.Lookup(src)
		if !ok {
			continue
		}
		i.stats.released.Add(1)
		i.deliver(src, dest, KeyUp)
	}
}

// SetPaused stops or resumes remapping. A paused interceptor forwards
// every event.
func (i *Interceptor) SetPaused(paused bool) {
	i.paused.Store(paused)
}

// Paused reports whether remapping is paused.
func (i *Interceptor) Paused() bool {
	return i.paused.Load()
}

// Pressed returns the held source keys.
func (i *Interceptor) Pressed() []keys.Code {
	i.mu.Lock()
	defer i.mu.Unlock()
	var out []keys.Code
	for c := range i.pressed.down {
		if i.pressed.down[c] {
			out = append(out, keys.Code(c))
		}
	}
	return out
}

// IsPressed reports whether src is held.
func (i *Interceptor) IsPressed(src keys.Code) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pressed.contains(src)
}

// Stats returns a snapshot of the counters.
func (i *Interceptor) Stats() Stats {
	return Stats{
		Events:            i.stats.events.Load(),
		SelfInjected:      i.stats.selfInjected.Load(),
		ForeignInjected:   i.stats.foreignInjected.Load(),
		Remapped:          i.stats.remapped.Load(),
		RepeatsSuppressed: i.stats.repeats.Load(),
		OrphanUps:         i.stats.orphanUps.Load(),
		Directed:          i.stats.directed.Load(),
		System:            i.stats.system.Load(),
		Failures:          i.stats.failures.Load(),
		FailuresDropped:   i.stats.dropped.Load(),
		Released:          i.stats.released.Load(),
	}
}
