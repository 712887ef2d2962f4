// Package dialog shows native message boxes and opens files in their
// default application.
package dialog

import (
	"github.com/ncruces/zenity"
)

// Info shows an informational message box and waits for it to close.
func Info(title, message string) error {
	return zenity.Info(message, zenity.Title(title), zenity.InfoIcon)
}

// Error shows an error message box and waits for it to close.
func Error(title, message string) error {
	return zenity.Error(message, zenity.Title(title), zenity.ErrorIcon)
}

// OpenFile opens path with the program associated with its type.
func OpenFile(path string) error {
	return openCommand(path).Start()
}
