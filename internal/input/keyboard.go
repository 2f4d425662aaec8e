// Package input implements spec.md §4.5: translating local keyboard,
// mouse, touch, and gamepad events into the server's compact binary
// wire protocol and dispatching each to its dedicated channel.
package input

import (
	"github.com/n0remac/streamclient/internal/wire"
)

// ModifierMask bits, named after the real Moonlight protocol's modifier
// constants.
type ModifierMask uint8

const (
	ModShift ModifierMask = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

const (
	keyboardTagKey  = 0
	keyboardTagText = 1
)

// KeyCode is the server's virtual-key enumeration; EncodeKeyEvent takes a
// value already mapped from a DOM-style physical code by the caller via
// KeyCodeForPhysical.
type KeyCode uint16

// KeyCodeForPhysical maps a location-independent physical key identifier
// (the QWERTY layout's "KeyA", "Digit1", "Enter", ... naming) to the
// server's virtual-key code. Unmapped codes return (0, false); callers
// must drop the event silently per spec.md §4.5.
func KeyCodeForPhysical(physicalCode string) (KeyCode, bool) {
	code, ok := physicalKeyCodes[physicalCode]
	return code, ok
}

// EncodeKeyEvent serializes a keydown/keyup message (spec.md §4.5 tag 0):
// {u8 isDown, u8 modifierMask, u16 keyCode}.
func EncodeKeyEvent(isDown bool, mods ModifierMask, code KeyCode) []byte {
	c := wire.NewCursor(1 + 1 + 1 + 2)
	c.PutUint8(keyboardTagKey)
	c.PutUint8(boolToU8(isDown))
	c.PutUint8(uint8(mods))
	c.PutUint16(uint16(code))
	return c.Flip().Bytes()
}

// EncodeText serializes a text-input message (spec.md §4.5 tag 1):
// {u8 length, bytes utf8}. Text longer than 255 bytes is truncated to fit
// the single-byte length prefix.
func EncodeText(s string) []byte {
	b := []byte(s)
	if len(b) > 255 {
		b = b[:255]
	}
	c := wire.NewCursor(1 + 1 + len(b))
	c.PutUint8(keyboardTagText)
	c.PutUint8(uint8(len(b)))
	c.PutBytes(b)
	return c.Flip().Bytes()
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// physicalKeyCodes maps a representative subset of the standard QWERTY
// physical-code set to virtual-key codes. The full table mirrors a
// browser's KeyboardEvent.code enumeration; entries are added as the
// client needs them rather than exhaustively up front.
var physicalKeyCodes = map[string]KeyCode{
	"KeyA": 0x41, "KeyB": 0x42, "KeyC": 0x43, "KeyD": 0x44,
	"KeyE": 0x45, "KeyF": 0x46, "KeyG": 0x47, "KeyH": 0x48,
	"KeyI": 0x49, "KeyJ": 0x4A, "KeyK": 0x4B, "KeyL": 0x4C,
	"KeyM": 0x4D, "KeyN": 0x4E, "KeyO": 0x4F, "KeyP": 0x50,
	"KeyQ": 0x51, "KeyR": 0x52, "KeyS": 0x53, "KeyT": 0x54,
	"KeyU": 0x55, "KeyV": 0x56, "KeyW": 0x57, "KeyX": 0x58,
	"KeyY": 0x59, "KeyZ": 0x5A,
	"Digit0": 0x30, "Digit1": 0x31, "Digit2": 0x32, "Digit3": 0x33,
	"Digit4": 0x34, "Digit5": 0x35, "Digit6": 0x36, "Digit7": 0x37,
	"Digit8": 0x38, "Digit9": 0x39,
	"Enter": 0x0D, "Escape": 0x1B, "Backspace": 0x08, "Tab": 0x09,
	"Space": 0x20, "ShiftLeft": 0xA0, "ShiftRight": 0xA1,
	"ControlLeft": 0xA2, "ControlRight": 0xA3,
	"AltLeft": 0xA4, "AltRight": 0xA5,
	"ArrowLeft": 0x25, "ArrowUp": 0x26, "ArrowRight": 0x27, "ArrowDown": 0x28,
	"F1": 0x70, "F2": 0x71, "F3": 0x72, "F4": 0x73, "F5": 0x74, "F6": 0x75,
	"F7": 0x76, "F8": 0x77, "F9": 0x78, "F10": 0x79, "F11": 0x7A, "F12": 0x7B,
}
