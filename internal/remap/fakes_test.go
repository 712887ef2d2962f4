package remap

import (
	"errors"
	"sync"
	"sync/atomic"

	"keyremapd/internal/keys"
	"keyremapd/internal/platform"
)

type postedMessage struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
}

type fakeInjector struct {
	mu         sync.Mutex
	posted     []postedMessage
	inputs     []platform.KeyInput
	windows    map[string]uintptr
	foreground uintptr
	postErr    error
	sendErr    error
	findCalls  int
}

func newFakeInjector() *fakeInjector {
	return &fakeInjector{foreground: 0x1000, windows: map[string]uintptr{}}
}

func (f *fakeInjector) FindWindow(title string) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if hwnd, ok := f.windows[title]; ok {
		return hwnd, nil
	}
	return 0, platform.ErrWindowNotFound
}

func (f *fakeInjector) ForegroundWindow() uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.foreground
}

func (f *fakeInjector) PostKeyMessage(hwnd uintptr, message uint32, wParam, lParam uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.posted = append(f.posted, postedMessage{hwnd, message, wParam, lParam})
	return nil
}

func (f *fakeInjector) SendKeyboardInput(in platform.KeyInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.inputs = append(f.inputs, in)
	return nil
}

func (f *fakeInjector) ScanCode(vk uint32) uint16 {
	return uint16(vk + 0x100)
}

func (f *fakeInjector) Posted() []postedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]postedMessage(nil), f.posted...)
}

func (f *fakeInjector) Inputs() []platform.KeyInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.KeyInput(nil), f.inputs...)
}

type emitted struct {
	key keys.Code
	dir Direction
}

// recordingEmitter captures emissions without any platform behavior.
type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
	err    error
}

func (r *recordingEmitter) Emit(key keys.Code, dir Direction) (Path, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return PathNone, r.err
	}
	r.events = append(r.events, emitted{key, dir})
	return PathSystem, nil
}

func (r *recordingEmitter) Events() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emitted(nil), r.events...)
}

type staticFocus struct{ active atomic.Bool }

func (s *staticFocus) Active() bool { return s.active.Load() }

func activeFocus() *staticFocus {
	f := &staticFocus{}
	f.active.Store(true)
	return f
}

type fakeResolver struct {
	mu         sync.Mutex
	pid        uint32
	name       string
	pidErr     error
	nameErr    error
	nameLookup int
}

func (r *fakeResolver) set(pid uint32, name string) {
	r.mu.Lock()
	r.pid, r.name, r.pidErr, r.nameErr = pid, name, nil, nil
	r.mu.Unlock()
}

func (r *fakeResolver) ForegroundProcessID() (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pid, r.pidErr
}

func (r *fakeResolver) ProcessImageName(pid uint32) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nameLookup++
	return r.name, r.nameErr
}

func (r *fakeResolver) lookups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nameLookup
}

type fakeHook struct {
	proc   platform.HookProc
	opts   platform.HookOptions
	closed atomic.Bool
}

func (h *fakeHook) Close() error     { h.closed.Store(true); return nil }
func (h *fakeHook) ThreadID() uint32 { return 42 }

// send drives one event through the installed proc the way the OS would.
func (h *fakeHook) send(msg uintptr, vk keys.Code) bool {
	return h.proc(platform.HCAction, msg, &platform.KeyRecord{VkCode: uint32(vk)})
}

type hookFactory struct {
	mu    sync.Mutex
	hooks []*fakeHook
	err   error
}

func (f *hookFactory) install(proc platform.HookProc, opts platform.HookOptions) (platform.KeyboardHook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	h := &fakeHook{proc: proc, opts: opts}
	f.hooks = append(f.hooks, h)
	return h, nil
}

func (f *hookFactory) last() *fakeHook {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.hooks) == 0 {
		return nil
	}
	return f.hooks[len(f.hooks)-1]
}

type recordingNotifier struct {
	mu          sync.Mutex
	activated   int
	deactivated int
	errs        []error
	onError     func()
}

func (n *recordingNotifier) Activated(FocusState) {
	n.mu.Lock()
	n.activated++
	n.mu.Unlock()
}

func (n *recordingNotifier) Deactivated(FocusState) {
	n.mu.Lock()
	n.deactivated++
	n.mu.Unlock()
}

func (n *recordingNotifier) Error(err error) {
	n.mu.Lock()
	n.errs = append(n.errs, err)
	fn := n.onError
	n.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (n *recordingNotifier) counts() (int, int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.activated, n.deactivated, len(n.errs)
}

var errBoom = errors.New("boom")

func mustTable(pairs ...string) *Table {
	var ps []Pair
	for i := 0; i+1 < len(pairs); i += 2 {
		ps = append(ps, Pair{From: pairs[i], To: pairs[i+1]})
	}
	t, problems := ParseTable(ps)
	if len(problems) > 0 {
		panic(problems[0])
	}
	return t
}
