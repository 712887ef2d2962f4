// Package keys maps human-readable key names to Windows virtual-key codes.
//
// Names are matched after trimming and upper-casing, so "leftarrow",
// " LeftArrow " and "LEFTARROW" all resolve to the same code. Most keys
// accept several aliases; the first alias registered for a code is its
// canonical name.
package keys

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code is a Windows virtual-key code.
type Code uint32

// Virtual-key codes referenced by the remap engine.
const (
	Cancel    Code = 0x03
	Back      Code = 0x08
	Tab       Code = 0x09
	Return    Code = 0x0D
	Pause     Code = 0x13
	Capital   Code = 0x14
	Escape    Code = 0x1B
	Space     Code = 0x20
	Prior     Code = 0x21
	Next      Code = 0x22
	End       Code = 0x23
	Home      Code = 0x24
	Left      Code = 0x25
	Up        Code = 0x26
	Right     Code = 0x27
	Down      Code = 0x28
	Snapshot  Code = 0x2C
	Insert    Code = 0x2D
	Delete    Code = 0x2E
	LWin      Code = 0x5B
	RWin      Code = 0x5C
	Apps      Code = 0x5D
	Sleep     Code = 0x5F
	Numpad0   Code = 0x60
	Divide    Code = 0x6F
	F1        Code = 0x70
	F24       Code = 0x87
	NumLock   Code = 0x90
	Scroll    Code = 0x91
	LShift    Code = 0xA0
	RShift    Code = 0xA1
	LControl  Code = 0xA2
	RControl  Code = 0xA3
	LMenu     Code = 0xA4
	RMenu     Code = 0xA5
	VolumeUp  Code = 0xAF
	MediaPlay Code = 0xB3
)

// ErrUnknownKey is returned when a name has no virtual-key code.
var ErrUnknownKey = errors.New("unknown key name")

var (
	byName      = make(map[string]Code)
	canonical   = make(map[Code]string)
	descriptive = map[Code]string{
		Left:    "Left Arrow",
		Up:      "Up Arrow",
		Right:   "Right Arrow",
		Down:    "Down Arrow",
		Space:   "Space",
		Return:  "Enter",
		Back:    "Backspace",
		Tab:     "Tab",
		Escape:  "Escape",
		Home:    "Home",
		End:     "End",
		Prior:   "Page Up",
		Next:    "Page Down",
		Insert:  "Insert",
		Delete:  "Delete",
		Capital: "Caps Lock",
	}
)

func register(code Code, names ...string) {
	for _, n := range names {
		if _, dup := byName[n]; dup {
			continue
		}
		byName[n] = code
	}
	if _, ok := canonical[code]; !ok && len(names) > 0 {
		canonical[code] = names[0]
	}
}

func init() {
	for c := 'A'; c <= 'Z'; c++ {
		register(Code(c), string(c))
	}
	for c := '0'; c <= '9'; c++ {
		register(Code(c), string(c))
	}
	for i := 0; i < 24; i++ {
		register(F1+Code(i), fmt.Sprintf("F%d", i+1))
	}

	// Arrows
	register(Left, "LEFT", "LEFTARROW", "ARROWLEFT")
	register(Up, "UP", "UPARROW", "ARROWUP")
	register(Right, "RIGHT", "RIGHTARROW", "ARROWRIGHT")
	register(Down, "DOWN", "DOWNARROW", "ARROWDOWN")

	// Navigation
	register(Home, "HOME")
	register(End, "END")
	register(Prior, "PAGEUP", "PGUP", "PRIOR")
	register(Next, "PAGEDOWN", "PGDN", "NEXT")
	register(Insert, "INSERT", "INS")
	register(Delete, "DELETE", "DEL")

	// Modifiers. Unsided names resolve to the left-hand key.
	register(LControl, "LCTRL", "CTRL", "CONTROL", "LCONTROL")
	register(RControl, "RCTRL", "RCONTROL")
	register(LShift, "LSHIFT", "SHIFT")
	register(RShift, "RSHIFT")
	register(LMenu, "LALT", "ALT", "LMENU")
	register(RMenu, "RALT", "RMENU", "ALTGR")
	register(LWin, "LWIN", "WIN", "WINDOWS")
	register(RWin, "RWIN")

	// Special
	register(Space, "SPACE", "SPACEBAR")
	register(Return, "ENTER", "RETURN", "NUMPADENTER")
	register(Back, "BACKSPACE", "BACK")
	register(Tab, "TAB")
	register(Escape, "ESCAPE", "ESC")
	register(Capital, "CAPSLOCK", "CAPS")
	register(NumLock, "NUMLOCK")
	register(Scroll, "SCROLLLOCK", "SCROLL")
	register(Snapshot, "PRINTSCREEN", "PRINT", "PRTSC")
	register(Pause, "PAUSE")
	register(Cancel, "BREAK")

	// Numpad
	for i := 0; i < 10; i++ {
		register(Numpad0+Code(i), fmt.Sprintf("NUMPAD%d", i), fmt.Sprintf("NUM%d", i))
	}
	register(0x6A, "NUMPADMULTIPLY", "MULTIPLY", "NUM*")
	register(0x6B, "NUMPADADD", "ADD", "NUM+")
	register(0x6D, "NUMPADSUBTRACT", "SUBTRACT", "NUM-")
	register(0x6E, "NUMPADDECIMAL", "DECIMAL", "NUM.")
	register(Divide, "NUMPADDIVIDE", "DIVIDE", "NUM/")

	// OEM punctuation, US layout
	register(0xBA, "SEMICOLON", ";")
	register(0xBB, "EQUALS", "=")
	register(0xBC, "COMMA", ",")
	register(0xBD, "MINUS", "DASH", "-")
	register(0xBE, "PERIOD", "DOT", ".")
	register(0xBF, "SLASH", "FORWARDSLASH", "/")
	register(0xC0, "BACKTICK", "GRAVE", "`")
	register(0xDB, "LEFTBRACKET", "OPENBRACKET", "[")
	register(0xDC, "BACKSLASH", `\`)
	register(0xDD, "RIGHTBRACKET", "CLOSEBRACKET", "]")
	register(0xDE, "QUOTE", "APOSTROPHE", "'")

	// Media
	register(VolumeUp, "VOLUMEUP", "VOLUP")
	register(0xAE, "VOLUMEDOWN", "VOLDOWN")
	register(0xAD, "VOLUMEMUTE", "MUTE")
	register(0xB0, "MEDIANEXT", "NEXTTRACK")
	register(0xB1, "MEDIAPREV", "MEDIAPREVIOUS", "PREVTRACK")
	register(0xB2, "MEDIASTOP")
	register(MediaPlay, "MEDIAPLAYPAUSE", "MEDIAPLAY", "PLAYPAUSE")

	// Browser
	register(0xA6, "BROWSERBACK")
	register(0xA7, "BROWSERFORWARD")
	register(0xA8, "BROWSERREFRESH")
	register(0xA9, "BROWSERSTOP")
	register(0xAA, "BROWSERSEARCH")
	register(0xAB, "BROWSERFAVORITES")
	register(0xAC, "BROWSERHOME")

	register(Apps, "APPS", "MENU")
	register(Sleep, "SLEEP")
}

// Normalize trims and upper-cases a key name.
func Normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Parse resolves a key name to its virtual-key code.
func Parse(name string) (Code, error) {
	n := Normalize(name)
	if n == "" {
		return 0, fmt.Errorf("%w: empty name", ErrUnknownKey)
	}
	code, ok := byName[n]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	return code, nil
}

// MustParse is like Parse but panics on unknown names. Intended for tests
// and static tables.
func MustParse(name string) Code {
	code, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return code
}

// Name returns the canonical name of a code, or "VK_xx" when the code has
// no registered name.
func Name(code Code) string {
	if n, ok := canonical[code]; ok {
		return n
	}
	return fmt.Sprintf("VK_%02X", uint32(code))
}

// Describe returns a user-facing description of a code.
func Describe(code Code) string {
	switch {
	case code >= 'A' && code <= 'Z', code >= '0' && code <= '9':
		return fmt.Sprintf("Key %c", rune(code))
	case code >= F1 && code <= F24:
		return fmt.Sprintf("F%d", code-F1+1)
	}
	if d, ok := descriptive[code]; ok {
		return d
	}
	return Name(code)
}

// Names returns every accepted key name, sorted.
func Names() []string {
	out := make([]string, 0, len(byName))
	for n := range byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Aliases returns all names that resolve to code, canonical name first.
func Aliases(code Code) []string {
	first := canonical[code]
	var rest []string
	for n, c := range byName {
		if c == code && n != first {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	if first == "" {
		return rest
	}
	return append([]string{first}, rest...)
}

// IsArrow reports whether code is one of the four cursor keys.
func IsArrow(code Code) bool {
	return code >= Left && code <= Down
}

// ArrowScanCode returns the set-1 make code of an arrow key.
func ArrowScanCode(code Code) (uint32, bool) {
	switch code {
	case Left:
		return 0x4B, true
	case Up:
		return 0x48, true
	case Right:
		return 0x4D, true
	case Down:
		return 0x50, true
	}
	return 0, false
}

// IsExtended reports whether code sits on the extended (E0-prefixed) part
// of the keyboard and needs KEYEVENTF_EXTENDEDKEY when synthesized.
func IsExtended(code Code) bool {
	switch code {
	case RMenu, RControl, Insert, Delete, Home, End, Prior, Next,
		Left, Up, Right, Down, NumLock, Snapshot, Divide, LWin, RWin, Apps:
		return true
	}
	return false
}
