// Package platform wraps the Win32 surface used by the remap engine: the
// low-level keyboard hook, keyboard input synthesis and foreground process
// lookup.
//
// On other operating systems every entry point returns ErrUnsupported so
// the rest of the module (and its tests) still builds.
package platform

import (
	"errors"
	"io"
)

// Errors returned by the platform layer.
var (
	ErrUnsupported      = errors.New("platform: not supported on this operating system")
	ErrHookInstalled    = errors.New("platform: a keyboard hook is already installed in this process")
	ErrHookTimeout      = errors.New("platform: timed out waiting for keyboard hook thread")
	ErrWindowNotFound   = errors.New("platform: window not found")
	ErrNoForeground     = errors.New("platform: no foreground window")
	ErrAlreadyRunning   = errors.New("platform: another instance is already running")
	ErrInputNotAccepted = errors.New("platform: input was not accepted")
)

// Hook codes and keyboard window messages.
const (
	HCAction = 0

	WMKeyDown    = 0x0100
	WMKeyUp      = 0x0101
	WMSysKeyDown = 0x0104
	WMSysKeyUp   = 0x0105
)

// KBDLLHOOKSTRUCT flag bits.
const (
	LLKHFExtended = 0x01
	LLKHFInjected = 0x10
)

// KEYBDINPUT flag bits.
const (
	KeyEventExtendedKey = 0x0001
	KeyEventKeyUp       = 0x0002
)

// Sentinel tags every input this process synthesizes. The hook forwards
// any event whose extra info carries it.
const Sentinel uintptr = 0xFFFFFFF0

// KeyRecord mirrors KBDLLHOOKSTRUCT bit for bit.
type KeyRecord struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// Injected reports whether the OS flagged the event as injected.
func (r *KeyRecord) Injected() bool {
	return r.Flags&LLKHFInjected != 0
}

// KeyInput is one keyboard event handed to SendInput.
type KeyInput struct {
	VK        uint16
	Scan      uint16
	Flags     uint32
	ExtraInfo uintptr
}

// HookProc receives every keyboard transition on the hook thread. It
// returns true to consume the event and false to pass it down the chain.
// rec is nil when the OS supplied no record.
type HookProc func(code int32, msg uintptr, rec *KeyRecord) (consume bool)

// HookOptions tune InstallKeyboardHook.
type HookOptions struct {
	// OnPanic is called on the hook thread when proc panics. The event is
	// forwarded. It must not block.
	OnPanic func(recovered any)
}

// KeyboardHook is an installed low-level keyboard hook.
type KeyboardHook interface {
	io.Closer
	// ThreadID is the OS thread running the hook message loop.
	ThreadID() uint32
}

// Injector delivers synthesized keyboard input.
type Injector struct{}

// NewInjector returns the platform injector.
func NewInjector() *Injector { return &Injector{} }

// ProcessResolver identifies the process owning the foreground window.
type ProcessResolver struct{}

// NewProcessResolver returns the platform resolver.
func NewProcessResolver() *ProcessResolver { return &ProcessResolver{} }
