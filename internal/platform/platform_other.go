//go:build !windows

package platform

// InstallKeyboardHook is not available on this platform.
func InstallKeyboardHook(proc HookProc, opts HookOptions) (KeyboardHook, error) {
	return nil, ErrUnsupported
}

// AcquireSingleInstance is a no-op on this platform.
func AcquireSingleInstance(name string) (func(), error) {
	return func() {}, nil
}

func (i *Injector) FindWindow(title string) (uintptr, error) {
	return 0, ErrUnsupported
}

func (i *Injector) ForegroundWindow() uintptr { return 0 }

func (i *Injector) PostKeyMessage(hwnd uintptr, message uint32, wParam, lParam uintptr) error {
	return ErrUnsupported
}

func (i *Injector) SendKeyboardInput(in KeyInput) error {
	return ErrUnsupported
}

func (i *Injector) ScanCode(vk uint32) uint16 { return 0 }

func (r *ProcessResolver) ForegroundProcessID() (uint32, error) {
	return 0, ErrUnsupported
}

func (r *ProcessResolver) ProcessImageName(pid uint32) (string, error) {
	return "", ErrUnsupported
}
