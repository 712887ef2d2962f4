//go:build windows

package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	inputKeyboard = 1
	mapvkVKToVSC  = 0
)

var (
	procSendInput      = user32.NewProc("SendInput")
	procPostMessageW   = user32.NewProc("PostMessageW")
	procFindWindowW    = user32.NewProc("FindWindowW")
	procMapVirtualKeyW = user32.NewProc("MapVirtualKeyW")
)

type keybdInput struct {
	vk        uint16
	scan      uint16
	flags     uint32
	time      uint32
	extraInfo uintptr
}

// input is the Win32 INPUT struct with its union laid out as a fixed blob
// (64-bit layout).
type input struct {
	typ  uint32
	_    uint32
	data [32]byte
}

// FindWindow returns the top-level window whose title matches exactly.
func (i *Injector) FindWindow(title string) (uintptr, error) {
	p, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return 0, err
	}
	hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(p)))
	if hwnd == 0 {
		return 0, fmt.Errorf("%w: %q", ErrWindowNotFound, title)
	}
	return hwnd, nil
}

// ForegroundWindow returns the current foreground window, or 0.
func (i *Injector) ForegroundWindow() uintptr {
	return uintptr(windows.GetForegroundWindow())
}

// PostKeyMessage queues a keyboard message on hwnd without waiting for it
// to be processed.
func (i *Injector) PostKeyMessage(hwnd uintptr, message uint32, wParam, lParam uintptr) error {
	r, _, callErr := procPostMessageW.Call(hwnd, uintptr(message), wParam, lParam)
	if r == 0 {
		return fmt.Errorf("PostMessageW: %w", callErr)
	}
	return nil
}

// SendKeyboardInput injects one keyboard event into the system input
// stream.
func (i *Injector) SendKeyboardInput(in KeyInput) error {
	var raw input
	raw.typ = inputKeyboard
	ki := (*keybdInput)(unsafe.Pointer(&raw.data[0]))
	ki.vk = in.VK
	ki.scan = in.Scan
	ki.flags = in.Flags
	ki.extraInfo = in.ExtraInfo

	n, _, callErr := procSendInput.Call(1, uintptr(unsafe.Pointer(&raw)), unsafe.Sizeof(raw))
	if n != 1 {
		if errno, ok := callErr.(windows.Errno); ok && errno != 0 {
			return fmt.Errorf("SendInput: %w", errno)
		}
		return ErrInputNotAccepted
	}
	return nil
}

// ScanCode maps a virtual-key code to its hardware scan code for the
// active layout.
func (i *Injector) ScanCode(vk uint32) uint16 {
	r, _, _ := procMapVirtualKeyW.Call(uintptr(vk), mapvkVKToVSC)
	return uint16(r)
}
