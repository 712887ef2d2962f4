//go:build windows

package hotkey

import (
	"golang.design/x/hotkey"
)

var modifierMap = map[Modifier]hotkey.Modifier{
	ModCtrl:  hotkey.ModCtrl,
	ModShift: hotkey.ModShift,
	ModAlt:   hotkey.ModAlt,
	ModWin:   hotkey.ModWin,
}

type osBinding struct {
	hk   *hotkey.Hotkey
	down chan struct{}
	done chan struct{}
}

func registerOS(c Combo) (binding, error) {
	var mods []hotkey.Modifier
	for bit, mod := range modifierMap {
		if c.Mods&bit != 0 {
			mods = append(mods, mod)
		}
	}

	// hotkey.Key values are virtual-key codes on Windows.
	hk := hotkey.New(mods, hotkey.Key(c.Key))
	if err := hk.Register(); err != nil {
		return nil, err
	}

	b := &osBinding{hk: hk, down: make(chan struct{}, 1), done: make(chan struct{})}
	go b.forward()
	return b, nil
}

func (b *osBinding) forward() {
	for {
		select {
		case <-b.done:
			return
		case _, ok := <-b.hk.Keydown():
			if !ok {
				return
			}
			select {
			case b.down <- struct{}{}:
			default:
			}
		}
	}
}

func (b *osBinding) Keydown() <-chan struct{} { return b.down }

func (b *osBinding) Unregister() error {
	close(b.done)
	return b.hk.Unregister()
}
