package notify

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyremapd/internal/remap"
)

type sent struct {
	level          Level
	title, message string
}

func recorder() (*[]sent, Sender) {
	var got []sent
	return &got, func(level Level, title, message string) error {
		got = append(got, sent{level, title, message})
		return errors.New("ignored")
	}
}

func TestNotifierInfoAndErrors(t *testing.T) {
	got, send := recorder()
	n := NewWithSender(true, false, send)

	n.Started("notepad", 4, 5)
	n.Error(errors.New("hook failed"))

	require.Len(t, *got, 2)
	assert.Equal(t, LevelInfo, (*got)[0].level)
	assert.Equal(t, "keyremapd: Started", (*got)[0].title)
	assert.Contains(t, (*got)[0].message, "Mappings: 4/5")
	assert.Equal(t, LevelError, (*got)[1].level)
	assert.Equal(t, "keyremapd: Hook Error", (*got)[1].title)
	assert.Equal(t, "hook failed", (*got)[1].message)
}

func TestNotifierStartupModeSuppressesInfo(t *testing.T) {
	got, send := recorder()
	n := NewWithSender(true, true, send)

	n.Started("notepad", 5, 5)
	n.Reloaded("notepad", 5, 5)
	n.Paused(true)
	n.ConfigError(errors.New("bad file"))
	n.ReloadError(errors.New("still bad"))
	n.StartupError(errors.New("registry"))

	require.Len(t, *got, 3)
	for _, s := range *got {
		assert.Equal(t, LevelError, s.level)
	}
}

func TestNotifierDisabled(t *testing.T) {
	got, send := recorder()
	n := NewWithSender(false, false, send)

	n.Error(errors.New("x"))
	assert.Empty(t, *got)
	assert.False(t, n.Enabled())

	n.SetEnabled(true)
	n.Error(errors.New("x"))
	assert.Len(t, *got, 1)
}

func TestNotifierFocusChangesAreSilent(t *testing.T) {
	got, send := recorder()
	n := NewWithSender(true, false, send)

	n.Activated(remap.FocusState{Active: true, Process: "notepad"})
	n.Deactivated(remap.FocusState{})
	assert.Empty(t, *got)
}

func TestNotifierTruncatesLongMessages(t *testing.T) {
	got, send := recorder()
	n := NewWithSender(true, false, send)

	n.ConfigError(errors.New(strings.Repeat("e", 1000)))
	require.Len(t, *got, 1)
	assert.True(t, strings.HasSuffix((*got)[0].message, "..."))
	assert.Len(t, (*got)[0].message, 253)
}
