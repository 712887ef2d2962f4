//go:build windows

package platform

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	whKeyboardLL = 13
	wmQuit       = 0x0012

	hookStartTimeout = 2 * time.Second
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
)

// The LowLevelKeyboardProc signature has no user-data argument, so the
// dispatcher for the installed hook lives in this package-level slot.
// Exactly one hook may own it at a time.
var (
	activeHook   atomic.Pointer[hookDispatch]
	hookCallback = windows.NewCallback(lowLevelKeyboardProc)
)

type hookDispatch struct {
	proc    HookProc
	onPanic func(any)
}

type winMsg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

// lowLevelKeyboardProc runs on the hook thread for every keyboard event.
//
// Nothing may escape this function. Windows silently removes a hook that
// fails or overruns its time budget, which restores the unmodified
// keyboard with no error anywhere. Panics are recovered here and the
// event is forwarded down the chain.
func lowLevelKeyboardProc(nCode int, wParam, lParam uintptr) (ret uintptr) {
	d := activeHook.Load()
	defer func() {
		if r := recover(); r != nil {
			if d != nil && d.onPanic != nil {
				func() {
					defer func() { _ = recover() }()
					d.onPanic(r)
				}()
			}
			ret = callNextHook(nCode, wParam, lParam)
		}
	}()

	if d != nil {
		var rec *KeyRecord
		if lParam != 0 {
			rec = (*KeyRecord)(unsafe.Pointer(lParam))
		}
		if d.proc(int32(nCode), wParam, rec) {
			return 1
		}
	}
	return callNextHook(nCode, wParam, lParam)
}

func callNextHook(nCode int, wParam, lParam uintptr) uintptr {
	r, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return r
}

type windowsHook struct {
	dispatch  *hookDispatch
	tid       atomic.Uint32
	closing   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// InstallKeyboardHook installs a WH_KEYBOARD_LL hook on a dedicated,
// OS-locked goroutine running a message loop, and returns once the hook is
// live. proc is invoked on that thread, once per transition, in order.
func InstallKeyboardHook(proc HookProc, opts HookOptions) (KeyboardHook, error) {
	d := &hookDispatch{proc: proc, onPanic: opts.OnPanic}
	if !activeHook.CompareAndSwap(nil, d) {
		return nil, ErrHookInstalled
	}

	h := &windowsHook{dispatch: d, done: make(chan struct{})}
	ready := make(chan error, 1)
	go h.run(ready)

	select {
	case err := <-ready:
		if err != nil {
			activeHook.CompareAndSwap(d, nil)
			return nil, err
		}
		return h, nil
	case <-time.After(hookStartTimeout):
		_ = h.Close()
		return nil, ErrHookTimeout
	}
}

func (h *windowsHook) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(h.done)

	h.tid.Store(windows.GetCurrentThreadId())

	var mod windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &mod); err != nil {
		ready <- fmt.Errorf("GetModuleHandleEx: %w", err)
		return
	}

	hhk, _, callErr := procSetWindowsHookExW.Call(whKeyboardLL, hookCallback, uintptr(mod), 0)
	if hhk == 0 {
		ready <- fmt.Errorf("SetWindowsHookExW: %w", callErr)
		return
	}
	defer procUnhookWindowsHookEx.Call(hhk)

	if h.closing.Load() {
		return
	}
	ready <- nil

	var m winMsg
	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		// 0 is WM_QUIT, -1 is an error.
		if int32(r) <= 0 {
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

// ThreadID returns the hook thread id, or 0 before it has started.
func (h *windowsHook) ThreadID() uint32 {
	return h.tid.Load()
}

// Close posts WM_QUIT to the hook thread and waits for it to unhook.
func (h *windowsHook) Close() error {
	h.closeOnce.Do(func() {
		h.closing.Store(true)
		defer activeHook.CompareAndSwap(h.dispatch, nil)

		deadline := time.Now().Add(hookStartTimeout)
		for {
			// The thread may not own a message queue yet; keep posting.
			if tid := h.tid.Load(); tid != 0 {
				procPostThreadMessageW.Call(uintptr(tid), wmQuit, 0, 0)
			}
			select {
			case <-h.done:
				return
			case <-time.After(50 * time.Millisecond):
			}
			if time.Now().After(deadline) {
				h.closeErr = ErrHookTimeout
				return
			}
		}
	})
	return h.closeErr
}
