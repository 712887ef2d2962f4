package remap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyremapd/internal/keys"
	"keyremapd/internal/platform"
)

func TestKeyMessageLParam(t *testing.T) {
	tests := []struct {
		name     string
		scan     uint32
		extended bool
		dir      Direction
		expected uintptr
	}{
		{"left down", 0x4B, true, KeyDown, 0x014B0001},
		{"left up", 0x4B, true, KeyUp, 0xC14B0001},
		{"up down", 0x48, true, KeyDown, 0x01480001},
		{"right up", 0x4D, true, KeyUp, 0xC14D0001},
		{"down down", 0x50, true, KeyDown, 0x01500001},
		{"plain key", 0x1E, false, KeyDown, 0x001E0001},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, KeyMessageLParam(test.scan, test.extended, test.dir))
		})
	}
}

func TestSynthesizerPrefersTitledWindow(t *testing.T) {
	inj := newFakeInjector()
	inj.windows["Game Window"] = 0x2000
	s := NewSynthesizer(inj, "Game Window")

	path, err := s.Emit(keys.Up, KeyDown)
	require.NoError(t, err)
	assert.Equal(t, PathDirected, path)
	assert.Equal(t, uintptr(0x2000), inj.Posted()[0].hwnd)
}

func TestSynthesizerFallsBackToForegroundWindow(t *testing.T) {
	inj := newFakeInjector()
	s := NewSynthesizer(inj, "Missing")

	path, err := s.Emit(keys.Right, KeyUp)
	require.NoError(t, err)
	assert.Equal(t, PathDirected, path)
	assert.Equal(t, uintptr(0x1000), inj.Posted()[0].hwnd)

	s.SetWindowTitle("")
	_, _ = s.Emit(keys.Right, KeyDown)
	assert.Equal(t, 1, inj.findCalls, "empty title skips the window search")
}

func TestSynthesizerFallsBackToSystemInput(t *testing.T) {
	t.Run("post fails", func(t *testing.T) {
		inj := newFakeInjector()
		inj.postErr = errBoom
		s := NewSynthesizer(inj, "")

		path, err := s.Emit(keys.Left, KeyUp)
		require.NoError(t, err)
		assert.Equal(t, PathSystem, path)

		inputs := inj.Inputs()
		require.Len(t, inputs, 1)
		assert.Equal(t, uint16(keys.Left), inputs[0].VK)
		assert.Equal(t, uint32(platform.KeyEventKeyUp|platform.KeyEventExtendedKey), inputs[0].Flags)
		assert.Equal(t, platform.Sentinel, inputs[0].ExtraInfo)
	})

	t.Run("no window", func(t *testing.T) {
		inj := newFakeInjector()
		inj.foreground = 0
		s := NewSynthesizer(inj, "")

		path, err := s.Emit(keys.Down, KeyDown)
		require.NoError(t, err)
		assert.Equal(t, PathSystem, path)
		assert.Empty(t, inj.Posted())
		assert.Len(t, inj.Inputs(), 1)
	})

	t.Run("both fail", func(t *testing.T) {
		inj := newFakeInjector()
		inj.postErr = errBoom
		inj.sendErr = platform.ErrInputNotAccepted
		s := NewSynthesizer(inj, "")

		path, err := s.Emit(keys.Down, KeyDown)
		assert.Equal(t, PathNone, path)
		assert.ErrorIs(t, err, platform.ErrInputNotAccepted)
		assert.Contains(t, err.Error(), "directed")
	})
}

func TestSynthesizerSystemPathFlags(t *testing.T) {
	inj := newFakeInjector()
	s := NewSynthesizer(inj, "")

	_, err := s.Emit(keys.Delete, KeyDown)
	require.NoError(t, err)
	_, err = s.Emit(keys.MustParse("E"), KeyUp)
	require.NoError(t, err)

	inputs := inj.Inputs()
	require.Len(t, inputs, 2)
	assert.Equal(t, uint32(platform.KeyEventExtendedKey), inputs[0].Flags)
	assert.Equal(t, uint32(platform.KeyEventKeyUp), inputs[1].Flags)
	assert.Empty(t, inj.Posted(), "only arrows use directed delivery")
}

func TestSynthesizerRejectsOutOfRangeCodes(t *testing.T) {
	s := NewSynthesizer(newFakeInjector(), "")
	_, err := s.Emit(0x1FF, KeyDown)
	assert.Error(t, err)
}
