package input

import "github.com/veandco/go-sdl2/sdl"

// scancodePhysical maps go-sdl2 scancodes to the same physical-code naming
// KeyCodeForPhysical expects, so the SDL-backed client can feed
// sdl.KeyboardEvent.Keysym.Scancode straight through without the browser's
// KeyboardEvent.code string ever existing on this host.
var scancodePhysical = map[sdl.Scancode]string{
	sdl.SCANCODE_A: "KeyA", sdl.SCANCODE_B: "KeyB", sdl.SCANCODE_C: "KeyC", sdl.SCANCODE_D: "KeyD",
	sdl.SCANCODE_E: "KeyE", sdl.SCANCODE_F: "KeyF", sdl.SCANCODE_G: "KeyG", sdl.SCANCODE_H: "KeyH",
	sdl.SCANCODE_I: "KeyI", sdl.SCANCODE_J: "KeyJ", sdl.SCANCODE_K: "KeyK", sdl.SCANCODE_L: "KeyL",
	sdl.SCANCODE_M: "KeyM", sdl.SCANCODE_N: "KeyN", sdl.SCANCODE_O: "KeyO", sdl.SCANCODE_P: "KeyP",
	sdl.SCANCODE_Q: "KeyQ", sdl.SCANCODE_R: "KeyR", sdl.SCANCODE_S: "KeyS", sdl.SCANCODE_T: "KeyT",
	sdl.SCANCODE_U: "KeyU", sdl.SCANCODE_V: "KeyV", sdl.SCANCODE_W: "KeyW", sdl.SCANCODE_X: "KeyX",
	sdl.SCANCODE_Y: "KeyY", sdl.SCANCODE_Z: "KeyZ",

	sdl.SCANCODE_0: "Digit0", sdl.SCANCODE_1: "Digit1", sdl.SCANCODE_2: "Digit2", sdl.SCANCODE_3: "Digit3",
	sdl.SCANCODE_4: "Digit4", sdl.SCANCODE_5: "Digit5", sdl.SCANCODE_6: "Digit6", sdl.SCANCODE_7: "Digit7",
	sdl.SCANCODE_8: "Digit8", sdl.SCANCODE_9: "Digit9",

	sdl.SCANCODE_RETURN: "Enter", sdl.SCANCODE_ESCAPE: "Escape", sdl.SCANCODE_BACKSPACE: "Backspace",
	sdl.SCANCODE_TAB: "Tab", sdl.SCANCODE_SPACE: "Space",
	sdl.SCANCODE_LSHIFT: "ShiftLeft", sdl.SCANCODE_RSHIFT: "ShiftRight",
	sdl.SCANCODE_LCTRL: "ControlLeft", sdl.SCANCODE_RCTRL: "ControlRight",
	sdl.SCANCODE_LALT: "AltLeft", sdl.SCANCODE_RALT: "AltRight",
	sdl.SCANCODE_LEFT: "ArrowLeft", sdl.SCANCODE_UP: "ArrowUp", sdl.SCANCODE_RIGHT: "ArrowRight", sdl.SCANCODE_DOWN: "ArrowDown",

	sdl.SCANCODE_F1: "F1", sdl.SCANCODE_F2: "F2", sdl.SCANCODE_F3: "F3", sdl.SCANCODE_F4: "F4",
	sdl.SCANCODE_F5: "F5", sdl.SCANCODE_F6: "F6", sdl.SCANCODE_F7: "F7", sdl.SCANCODE_F8: "F8",
	sdl.SCANCODE_F9: "F9", sdl.SCANCODE_F10: "F10", sdl.SCANCODE_F11: "F11", sdl.SCANCODE_F12: "F12",
}

// KeyCodeForScancode resolves an SDL scancode straight to the server's
// virtual-key code, composing scancodePhysical with KeyCodeForPhysical.
func KeyCodeForScancode(sc sdl.Scancode) (KeyCode, bool) {
	phys, ok := scancodePhysical[sc]
	if !ok {
		return 0, false
	}
	return KeyCodeForPhysical(phys)
}

// ModifiersFromSDL reads the live keyboard modifier state into ModifierMask.
func ModifiersFromSDL() ModifierMask {
	state := sdl.GetModState()
	var m ModifierMask
	if state&sdl.KMOD_SHIFT != 0 {
		m |= ModShift
	}
	if state&sdl.KMOD_CTRL != 0 {
		m |= ModCtrl
	}
	if state&sdl.KMOD_ALT != 0 {
		m |= ModAlt
	}
	if state&sdl.KMOD_GUI != 0 {
		m |= ModMeta
	}
	return m
}
