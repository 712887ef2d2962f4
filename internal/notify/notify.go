// Package notify shows desktop notifications for remapper events.
package notify

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/beeep"

	"keyremapd/internal/remap"
)

const appName = "keyremapd"

// Level orders notifications by importance.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Sender delivers one notification.
type Sender func(level Level, title, message string) error

// Notifier sends desktop notifications. In startup mode informational
// notifications are suppressed; errors always show while enabled.
type Notifier struct {
	mu          sync.Mutex
	enabled     bool
	startupMode bool
	send        Sender
}

var _ remap.Notifier = (*Notifier)(nil)

// New creates a Notifier that delivers through beeep.
func New(enabled, startupMode bool) *Notifier {
	return NewWithSender(enabled, startupMode, beeepSend)
}

// NewWithSender creates a Notifier with a custom delivery function.
func NewWithSender(enabled, startupMode bool, send Sender) *Notifier {
	return &Notifier{enabled: enabled, startupMode: startupMode, send: send}
}

func beeepSend(level Level, title, message string) error {
	if level == LevelError {
		return beeep.Alert(title, message, "")
	}
	return beeep.Notify(title, message, "")
}

// SetEnabled turns notifications on or off.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	n.enabled = enabled
	n.mu.Unlock()
}

// Enabled reports whether notifications are shown.
func (n *Notifier) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

// Started reports the configuration the remapper started with.
func (n *Notifier) Started(target string, parsed, total int) {
	n.notify(LevelInfo, "Started", fmt.Sprintf(
		"Monitoring: %s\nMappings: %d/%d keys loaded\nRemapping activates when the target is focused",
		target, parsed, total))
}

// Reloaded reports a configuration reload.
func (n *Notifier) Reloaded(target string, parsed, total int) {
	n.notify(LevelInfo, "Config Reloaded", fmt.Sprintf(
		"Monitoring: %s\nMappings: %d/%d keys parsed successfully",
		target, parsed, total))
}

// ConfigError reports a configuration file that could not be loaded.
func (n *Notifier) ConfigError(err error) {
	n.notify(LevelError, "Configuration Error", err.Error())
}

// ReloadError reports a failed reload; the previous configuration stays.
func (n *Notifier) ReloadError(err error) {
	n.notify(LevelError, "Reload Failed", err.Error())
}

// StartupError reports a failure to change the start-with-Windows setting.
func (n *Notifier) StartupError(err error) {
	n.notify(LevelError, "Startup Setting", err.Error())
}

// Paused reports a pause toggle.
func (n *Notifier) Paused(paused bool) {
	if paused {
		n.notify(LevelInfo, "Paused", "Key remapping is paused")
		return
	}
	n.notify(LevelInfo, "Resumed", "Key remapping is active")
}

// Activated is called when the target application gains focus. Focus
// changes happen constantly, so they are not shown.
func (n *Notifier) Activated(remap.FocusState) {}

// Deactivated is called when the target application loses focus.
func (n *Notifier) Deactivated(remap.FocusState) {}

// Error reports an engine error such as a failed hook install.
func (n *Notifier) Error(err error) {
	n.notify(LevelError, "Hook Error", err.Error())
}

func (n *Notifier) notify(level Level, title, message string) {
	n.mu.Lock()
	enabled, startup, send := n.enabled, n.startupMode, n.send
	n.mu.Unlock()

	if !enabled || send == nil {
		return
	}
	if startup && level == LevelInfo {
		return
	}
	if len(message) > 250 {
		message = message[:250] + "..."
	}
	// delivery errors are not actionable
	_ = send(level, appName+": "+title, strings.TrimSpace(message))
}
