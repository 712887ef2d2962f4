// Package hotkey binds a global pause/resume shortcut such as
// "ctrl+alt+f12".
package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"keyremapd/internal/keys"
)

// ErrUnsupported is returned by Register on platforms without a binding.
var ErrUnsupported = errors.New("global hotkeys are not supported on this platform")

// Modifier is a bit set of modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModWin
)

var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"win":     ModWin,
	"super":   ModWin,
}

// Combo is a parsed shortcut.
type Combo struct {
	Mods Modifier
	Key  keys.Code
}

// Parse reads "mod+mod+key". At least one modifier is required so the
// shortcut cannot swallow a plain key.
func Parse(s string) (Combo, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) < 2 {
		return Combo{}, fmt.Errorf("hotkey %q: need at least one modifier and a key", s)
	}

	var c Combo
	for _, p := range parts[:len(parts)-1] {
		mod, ok := modifierNames[strings.TrimSpace(p)]
		if !ok {
			return Combo{}, fmt.Errorf("hotkey %q: unknown modifier %q", s, p)
		}
		c.Mods |= mod
	}

	last := strings.TrimSpace(parts[len(parts)-1])
	if _, isMod := modifierNames[last]; isMod {
		return Combo{}, fmt.Errorf("hotkey %q: last part must be a key", s)
	}
	code, err := keys.Parse(last)
	if err != nil {
		return Combo{}, fmt.Errorf("hotkey %q: %w", s, err)
	}
	c.Key = code
	return c, nil
}

func (c Combo) String() string {
	var parts []string
	for _, m := range []struct {
		mod  Modifier
		name string
	}{{ModCtrl, "ctrl"}, {ModShift, "shift"}, {ModAlt, "alt"}, {ModWin, "win"}} {
		if c.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(append(parts, strings.ToLower(keys.Name(c.Key))), "+")
}

// binding is one registered OS hotkey.
type binding interface {
	Keydown() <-chan struct{}
	Unregister() error
}

// bind is the platform registration; tests replace it.
var bind = registerOS

const debounceInterval = 300 * time.Millisecond

// Handler owns at most one registered shortcut.
type Handler struct {
	mu      sync.Mutex
	b       binding
	current Combo
	stopCh  chan struct{}
	onPress func()
	logger  *slog.Logger
}

// New creates a handler that calls onPress on each (debounced) keydown.
func New(onPress func(), logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{onPress: onPress, logger: logger}
}

// Register replaces any previous shortcut with c.
func (h *Handler) Register(c Combo) error {
	if err := h.Unregister(); err != nil {
		h.logger.Warn("unregister previous hotkey", "error", err)
	}

	b, err := bind(c)
	if err != nil {
		return fmt.Errorf("register hotkey %s: %w", c, err)
	}

	h.mu.Lock()
	h.b = b
	h.current = c
	h.stopCh = make(chan struct{})
	stop := h.stopCh
	h.mu.Unlock()

	h.logger.Info("hotkey registered", "hotkey", c.String())
	go h.listen(b, stop)
	return nil
}

func (h *Handler) listen(b binding, stop <-chan struct{}) {
	var last time.Time
	for {
		select {
		case <-stop:
			return
		case _, ok := <-b.Keydown():
			if !ok {
				return
			}
			// auto-repeat
			now := time.Now()
			if now.Sub(last) < debounceInterval {
				continue
			}
			last = now
			if h.onPress != nil {
				h.onPress()
			}
		}
	}
}

// Unregister releases the current shortcut, if any.
func (h *Handler) Unregister() error {
	h.mu.Lock()
	b := h.b
	if h.stopCh != nil {
		close(h.stopCh)
		h.stopCh = nil
	}
	h.b = nil
	h.current = Combo{}
	h.mu.Unlock()

	if b == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- b.Unregister() }()
	select {
	case err := <-done:
		return err
	case <-time.After(500 * time.Millisecond):
		return errors.New("hotkey unregister timed out")
	}
}

// Current returns the registered shortcut; the zero Combo means none.
func (h *Handler) Current() Combo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}
