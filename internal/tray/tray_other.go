//go:build !windows

package tray

// Tray is a placeholder on platforms without a notification-area icon.
type Tray struct{}

// New creates a Tray.
func New(Callbacks) *Tray { return &Tray{} }

// Run returns ErrUnsupported.
func (t *Tray) Run(func()) error { return ErrUnsupported }

// SetPaused does nothing.
func (t *Tray) SetPaused(bool) {}

// SetStatus does nothing.
func (t *Tray) SetStatus(string) {}

// Quit does nothing.
func (t *Tray) Quit() {}
