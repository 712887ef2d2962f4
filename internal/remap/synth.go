package remap

import (
	"errors"
	"fmt"
	"sync/atomic"

	"keyremapd/internal/keys"
	"keyremapd/internal/platform"
)

// Direction is the transition of a key.
type Direction int

const (
	KeyDown Direction = iota
	KeyUp
)

func (d Direction) String() string {
	if d == KeyUp {
		return "up"
	}
	return "down"
}

// Path is the delivery route used for a synthesized event.
type Path int

const (
	PathNone Path = iota
	// PathDirected posts the key message straight to a window.
	PathDirected
	// PathSystem injects through the system input stream.
	PathSystem
)

func (p Path) String() string {
	switch p {
	case PathDirected:
		return "directed"
	case PathSystem:
		return "system"
	}
	return "none"
}

// Injector is the platform surface the synthesizer drives.
type Injector interface {
	FindWindow(title string) (uintptr, error)
	ForegroundWindow() uintptr
	PostKeyMessage(hwnd uintptr, message uint32, wParam, lParam uintptr) error
	SendKeyboardInput(in platform.KeyInput) error
	ScanCode(vk uint32) uint16
}

// Emitter delivers one synthesized key transition.
type Emitter interface {
	Emit(key keys.Code, dir Direction) (Path, error)
}

// Synthesizer turns a destination key and direction into a delivered
// event. Arrow keys go to a window as posted messages; everything else,
// and any arrow whose directed delivery fails, goes through SendInput
// tagged with the sentinel.
type Synthesizer struct {
	inj         Injector
	windowTitle atomic.Pointer[string]
}

// NewSynthesizer returns a synthesizer. windowTitle selects the window
// for directed delivery; empty means the foreground window.
func NewSynthesizer(inj Injector, windowTitle string) *Synthesizer {
	s := &Synthesizer{inj: inj}
	s.SetWindowTitle(windowTitle)
	return s
}

// SetWindowTitle changes the directed delivery target.
func (s *Synthesizer) SetWindowTitle(title string) {
	s.windowTitle.Store(&title)
}

// Emit delivers key in direction dir and reports the path that succeeded.
func (s *Synthesizer) Emit(key keys.Code, dir Direction) (Path, error) {
	if keys.IsArrow(key) {
		derr := s.emitDirected(key, dir)
		if derr == nil {
			return PathDirected, nil
		}
		if serr := s.emitSystem(key, dir); serr != nil {
			return PathNone, fmt.Errorf("directed: %v; system: %w", derr, serr)
		}
		return PathSystem, nil
	}
	if err := s.emitSystem(key, dir); err != nil {
		return PathNone, err
	}
	return PathSystem, nil
}

func (s *Synthesizer) emitDirected(key keys.Code, dir Direction) error {
	scan, ok := keys.ArrowScanCode(key)
	if !ok {
		return fmt.Errorf("no directed scan code for %s", keys.Name(key))
	}
	hwnd := s.targetWindow()
	if hwnd == 0 {
		return platform.ErrNoForeground
	}
	msg := uint32(platform.WMKeyDown)
	if dir == KeyUp {
		msg = platform.WMKeyUp
	}
	return s.inj.PostKeyMessage(hwnd, msg, uintptr(key), KeyMessageLParam(scan, true, dir))
}

func (s *Synthesizer) targetWindow() uintptr {
	if title := *s.windowTitle.Load(); title != "" {
		if hwnd, err := s.inj.FindWindow(title); err == nil && hwnd != 0 {
			return hwnd
		}
	}
	return s.inj.ForegroundWindow()
}

func (s *Synthesizer) emitSystem(key keys.Code, dir Direction) error {
	if key == 0 || key > 0xFF {
		return errors.New("virtual-key code out of range")
	}
	var flags uint32
	if dir == KeyUp {
		flags |= platform.KeyEventKeyUp
	}
	if keys.IsExtended(key) {
		flags |= platform.KeyEventExtendedKey
	}
	return s.inj.SendKeyboardInput(platform.KeyInput{
		VK:        uint16(key),
		Scan:      s.inj.ScanCode(uint32(key)),
		Flags:     flags,
		ExtraInfo: platform.Sentinel,
	})
}

// KeyMessageLParam builds the lParam of a WM_KEYDOWN/WM_KEYUP message:
// repeat count 1, the scan code in bits 16-23, the extended flag in bit
// 24, and for key-up the previous-state and transition bits 30 and 31.
func KeyMessageLParam(scan uint32, extended bool, dir Direction) uintptr {
	lp := uint32(1) | (scan&0xFF)<<16
	if extended {
		lp |= 1 << 24
	}
	if dir == KeyUp {
		lp |= 1<<30 | 1<<31
	}
	return uintptr(lp)
}
