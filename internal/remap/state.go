package remap

import "keyremapd/internal/keys"

// pressedSet tracks which source keys are currently held down by the
// engine. Virtual-key codes fit in a byte, so membership is a flat array.
// It is not safe for concurrent use; the interceptor guards it.
type pressedSet struct {
	down  [256]bool
	count int
}

// press marks code down and reports whether it was previously up.
func (s *pressedSet) press(code keys.Code) bool {
	if code > 0xFF || s.down[code] {
		return false
	}
	s.down[code] = true
	s.count++
	return true
}

// release marks code up and reports whether it was previously down.
func (s *pressedSet) release(code keys.Code) bool {
	if code > 0xFF || !s.down[code] {
		return false
	}
	s.down[code] = false
	s.count--
	return true
}

func (s *pressedSet) contains(code keys.Code) bool {
	return code <= 0xFF && s.down[code]
}

func (s *pressedSet) len() int { return s.count }

// drain clears the set and returns the codes that were held, ascending.
func (s *pressedSet) drain() []keys.Code {
	if s.count == 0 {
		return nil
	}
	held := make([]keys.Code, 0, s.count)
	for i := range s.down {
		if s.down[i] {
			held = append(held, keys.Code(i))
			s.down[i] = false
		}
	}
	s.count = 0
	return held
}
