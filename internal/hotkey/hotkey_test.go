package hotkey

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyremapd/internal/keys"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Combo
		str  string
	}{
		{"ctrl+alt+f12", Combo{ModCtrl | ModAlt, keys.F1 + 11}, "ctrl+alt+f12"},
		{" Shift + Win + P ", Combo{ModShift | ModWin, keys.Code('P')}, "shift+win+p"},
		{"control+super+pause", Combo{ModCtrl | ModWin, keys.Pause}, "ctrl+win+pause"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, got.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "f12", "ctrl+", "hyper+f12", "ctrl+alt", "ctrl+nosuchkey"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}

	_, err := Parse("ctrl+nosuchkey")
	assert.ErrorIs(t, err, keys.ErrUnknownKey)
}

type fakeBinding struct {
	down         chan struct{}
	unregistered atomic.Bool
}

func (f *fakeBinding) Keydown() <-chan struct{} { return f.down }
func (f *fakeBinding) Unregister() error {
	f.unregistered.Store(true)
	return nil
}

func withFakeBind(t *testing.T) *[]*fakeBinding {
	t.Helper()
	var mu sync.Mutex
	var made []*fakeBinding
	prev := bind
	bind = func(Combo) (binding, error) {
		mu.Lock()
		defer mu.Unlock()
		b := &fakeBinding{down: make(chan struct{}, 4)}
		made = append(made, b)
		return b, nil
	}
	t.Cleanup(func() { bind = prev })
	return &made
}

func TestHandlerPressDebounced(t *testing.T) {
	made := withFakeBind(t)

	var presses atomic.Int32
	h := New(func() { presses.Add(1) }, nil)
	combo, err := Parse("ctrl+alt+f12")
	require.NoError(t, err)
	require.NoError(t, h.Register(combo))
	assert.Equal(t, combo, h.Current())

	b := (*made)[0]
	b.down <- struct{}{}
	b.down <- struct{}{}
	require.Eventually(t, func() bool { return presses.Load() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(debounceInterval + 50*time.Millisecond)
	b.down <- struct{}{}
	require.Eventually(t, func() bool { return presses.Load() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Unregister())
	assert.True(t, b.unregistered.Load())
	assert.Equal(t, Combo{}, h.Current())
}

func TestHandlerReregisterReleasesPrevious(t *testing.T) {
	made := withFakeBind(t)

	h := New(nil, nil)
	require.NoError(t, h.Register(Combo{ModCtrl, keys.F1}))
	require.NoError(t, h.Register(Combo{ModAlt, keys.F1}))

	require.Len(t, *made, 2)
	assert.True(t, (*made)[0].unregistered.Load())
	assert.False(t, (*made)[1].unregistered.Load())
	assert.Equal(t, Combo{ModAlt, keys.F1}, h.Current())
}

func TestHandlerRegisterError(t *testing.T) {
	prev := bind
	bind = func(Combo) (binding, error) { return nil, errors.New("in use") }
	t.Cleanup(func() { bind = prev })

	h := New(nil, nil)
	err := h.Register(Combo{ModCtrl, keys.F1})
	assert.ErrorContains(t, err, "in use")
	assert.NoError(t, h.Unregister())
}
