//go:build windows

package startup

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/windows/registry"
)

const runKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`

// Enable registers the running executable under HKCU Run.
func Enable() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	k, _, err := registry.CreateKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE|registry.QUERY_VALUE)
	if err != nil {
		return fmt.Errorf("open run key: %w", err)
	}
	defer k.Close()

	want := CommandLine(exe)
	if err := k.SetStringValue(ValueName, want); err != nil {
		return fmt.Errorf("set run value: %w", err)
	}

	got, _, err := k.GetStringValue(ValueName)
	if err != nil || got != want {
		return fmt.Errorf("verify run value: got %q", got)
	}
	return nil
}

// Disable removes the registration. Removing a missing value is not an
// error.
func Disable() error {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open run key: %w", err)
	}
	defer k.Close()

	if err := k.DeleteValue(ValueName); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("delete run value: %w", err)
	}
	return nil
}

// IsEnabled reports whether a non-empty registration exists.
func IsEnabled() (bool, error) {
	cmd, err := Command()
	return cmd != "", err
}

// Command returns the registered command line, or "" when none is set.
func Command() (string, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("open run key: %w", err)
	}
	defer k.Close()

	val, _, err := k.GetStringValue(ValueName)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("get run value: %w", err)
	}
	return val, nil
}
