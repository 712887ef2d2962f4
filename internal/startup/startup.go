// Package startup registers keyremapd to run when the user logs in.
package startup

import (
	"errors"
	"fmt"
	"strings"
)

// ValueName is the Run key value keyremapd registers under.
const ValueName = "keyremapd"

// Flag is appended to the registered command so the process knows it was
// launched at login.
const Flag = "--startup"

// ErrUnsupported is returned on platforms without login registration.
var ErrUnsupported = errors.New("startup registration is not supported on this platform")

// CommandLine returns the command registered for exe.
func CommandLine(exe string) string {
	return fmt.Sprintf(`"%s" %s`, strings.TrimSpace(exe), Flag)
}

// Toggle flips the registration and returns the new state.
func Toggle() (bool, error) {
	enabled, err := IsEnabled()
	if err != nil {
		return false, err
	}
	if enabled {
		return false, Disable()
	}
	return true, Enable()
}
