//go:build windows

package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray manages the notification-area icon.
type Tray struct {
	callbacks Callbacks

	mu       sync.Mutex
	ready    bool
	paused   bool
	status   string
	statusMI *systray.MenuItem
	pauseMI  *systray.MenuItem
	reloadMI *systray.MenuItem
	openMI   *systray.MenuItem
	startMI  *systray.MenuItem
	quitMI   *systray.MenuItem
}

// New creates a Tray.
func New(callbacks Callbacks) *Tray {
	return &Tray{callbacks: callbacks, status: "Starting"}
}

// Run shows the icon and blocks until Quit. It must be called from the
// main goroutine.
func (t *Tray) Run(onReady func()) error {
	systray.Run(func() {
		t.onReady()
		if onReady != nil {
			onReady()
		}
	}, func() {})
	return nil
}

func (t *Tray) onReady() {
	t.mu.Lock()
	defer t.mu.Unlock()

	systray.SetTitle("keyremapd")

	t.statusMI = systray.AddMenuItem(t.status, "Show remapper status")
	systray.AddSeparator()
	t.reloadMI = systray.AddMenuItem("Reload Config", "Re-read the configuration file")
	t.openMI = systray.AddMenuItem("Open Config", "Edit the configuration file")
	t.pauseMI = systray.AddMenuItemCheckbox("Pause Remapping", "Forward every key unchanged", t.paused)

	startup := false
	if t.callbacks.StartupEnabled != nil {
		startup = t.callbacks.StartupEnabled()
	}
	t.startMI = systray.AddMenuItemCheckbox("Start with Windows", "Run at login", startup)
	systray.AddSeparator()
	t.quitMI = systray.AddMenuItem("Exit", "Stop remapping and exit")

	if t.callbacks.OnToggleStartup == nil {
		t.startMI.Disable()
	}
	t.ready = true
	t.applyLocked()

	go t.handleMenuEvents()
}

func (t *Tray) handleMenuEvents() {
	for {
		select {
		case <-t.statusMI.ClickedCh:
			if t.callbacks.OnStatus != nil {
				t.callbacks.OnStatus()
			}

		case <-t.reloadMI.ClickedCh:
			if t.callbacks.OnReload != nil {
				t.callbacks.OnReload()
			}

		case <-t.openMI.ClickedCh:
			if t.callbacks.OnOpenConfig != nil {
				t.callbacks.OnOpenConfig()
			}

		case <-t.pauseMI.ClickedCh:
			if t.callbacks.OnTogglePause != nil {
				t.SetPaused(t.callbacks.OnTogglePause())
			}

		case <-t.startMI.ClickedCh:
			if t.callbacks.OnToggleStartup == nil {
				continue
			}
			if enabled, err := t.callbacks.OnToggleStartup(); err == nil {
				setChecked(t.startMI, enabled)
			}

		case <-t.quitMI.ClickedCh:
			if t.callbacks.OnQuit != nil {
				t.callbacks.OnQuit()
			}
			systray.Quit()
			return
		}
	}
}

// SetPaused updates the icon and the Pause checkbox.
func (t *Tray) SetPaused(paused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = paused
	t.applyLocked()
}

// SetStatus replaces the status line at the top of the menu.
func (t *Tray) SetStatus(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = line
	t.applyLocked()
}

func (t *Tray) applyLocked() {
	if !t.ready {
		return
	}
	icon := iconActive
	if t.paused {
		icon = iconPaused
	}
	systray.SetIcon(icon)
	systray.SetTooltip("keyremapd - " + t.status)
	t.statusMI.SetTitle(t.status)
	setChecked(t.pauseMI, t.paused)
}

func setChecked(mi *systray.MenuItem, checked bool) {
	if checked {
		mi.Check()
	} else {
		mi.Uncheck()
	}
}

// Quit removes the icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}
