//go:build !windows

package startup

// Enable is not supported on this platform.
func Enable() error { return ErrUnsupported }

// Disable is not supported on this platform.
func Disable() error { return ErrUnsupported }

// IsEnabled is not supported on this platform.
func IsEnabled() (bool, error) { return false, ErrUnsupported }

// Command is not supported on this platform.
func Command() (string, error) { return "", ErrUnsupported }
