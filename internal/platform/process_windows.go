//go:build windows

package platform

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sys/windows"
)

// ForegroundProcessID returns the id of the process owning the foreground
// window.
func (r *ProcessResolver) ForegroundProcessID() (uint32, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return 0, ErrNoForeground
	}
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil {
		return 0, fmt.Errorf("GetWindowThreadProcessId: %w", err)
	}
	if pid == 0 {
		return 0, ErrNoForeground
	}
	return pid, nil
}

// ProcessImageName returns the executable name of pid without its ".exe"
// suffix, e.g. "notepad".
func (r *ProcessResolver) ProcessImageName(pid uint32) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("QueryFullProcessImageName(%d): %w", pid, err)
	}

	base := filepath.Base(windows.UTF16ToString(buf[:size]))
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".exe") {
		base = base[:len(base)-len(ext)]
	}
	if base == "" || base == "." {
		return "", errors.New("empty process image name")
	}
	return base, nil
}
