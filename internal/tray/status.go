// Package tray provides the notification-area icon and menu.
package tray

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"keyremapd/internal/remap"
)

//go:embed icon_active.ico
var iconActive []byte

//go:embed icon_paused.ico
var iconPaused []byte

// ErrUnsupported is returned by Run on platforms without a tray.
var ErrUnsupported = errors.New("tray icon is not supported on this platform")

// Callbacks holds menu handlers. A nil OnToggleStartup disables the
// Start with Windows item; other nil handlers make their item a no-op.
type Callbacks struct {
	// OnStatus is called when the status line is clicked.
	OnStatus func()
	OnReload func()
	// OnOpenConfig opens the configuration file for editing.
	OnOpenConfig func()
	// OnTogglePause returns the new paused state.
	OnTogglePause func() bool
	// OnToggleStartup returns the new start-with-Windows state.
	OnToggleStartup func() (bool, error)
	// StartupEnabled seeds the Start with Windows checkbox.
	StartupEnabled func() bool
	OnQuit         func()
}

// StatusLine is the one-line summary shown in the menu and tooltip.
func StatusLine(st remap.Status) string {
	switch {
	case !st.Installed:
		return "Hook not installed"
	case st.Paused:
		return "Paused"
	case st.Focus.Active:
		return "Active: " + st.Focus.Process
	default:
		return "Waiting for " + st.Target
	}
}

// StatusText is the detailed status shown in the Status dialog.
func StatusText(st remap.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s\n", StatusLine(st))
	fmt.Fprintf(&b, "Target application: %s\n", st.Target)
	if st.Focus.Process != "" {
		fmt.Fprintf(&b, "Foreground process: %s (pid %d)\n", st.Focus.Process, st.Focus.PID)
	}
	fmt.Fprintf(&b, "Mappings: %d\n", st.Mappings)
	fmt.Fprintf(&b, "Keys held: %d\n", st.Pressed)
	fmt.Fprintf(&b, "Remapped: %d (repeats suppressed: %d)\n", st.Stats.Remapped, st.Stats.RepeatsSuppressed)
	fmt.Fprintf(&b, "Delivered: %d directed, %d system\n", st.Stats.Directed, st.Stats.System)
	if st.Stats.ForeignInjected > 0 {
		fmt.Fprintf(&b, "Injected by other programs: %d\n", st.Stats.ForeignInjected)
	}
	fmt.Fprintf(&b, "Synthesis failures: %d", st.Stats.Failures)
	return b.String()
}
