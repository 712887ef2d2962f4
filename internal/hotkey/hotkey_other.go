//go:build !windows

package hotkey

func registerOS(Combo) (binding, error) {
	return nil, ErrUnsupported
}
