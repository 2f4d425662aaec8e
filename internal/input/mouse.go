package input

import (
	"github.com/n0remac/streamclient/internal/config"
	"github.com/n0remac/streamclient/internal/wire"
)

const (
	mouseTagRelative = 0
	mouseTagAbsolute = 1
	mouseTagButton   = 2
	mouseTagWheel    = 3
)

// Button is a mouse button identifier carried in tag-2 messages.
type Button uint8

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
	ButtonX1
	ButtonX2
)

// ReferenceSpan is the normalized coordinate space "follow" mode scales
// absolute positions into (spec.md §4.5: "scaled to 4096x4096 reference").
const ReferenceSpan = 4096

const referenceSpan = ReferenceSpan

// Mode selects how local pointer movement is translated to wire messages
// (spec.md §4.5).
type Mode int

const (
	ModeRelative Mode = iota
	ModeFollow
	ModePointAndDrag
)

// EncodeRelativeMove serializes tag 0: {i16 dx, i16 dy}.
func EncodeRelativeMove(dx, dy int16) []byte {
	c := wire.NewCursor(1 + 2 + 2)
	c.PutUint8(mouseTagRelative)
	c.PutInt16(dx)
	c.PutInt16(dy)
	return c.Flip().Bytes()
}

// EncodeAbsolute serializes tag 1: {i16 x, i16 y, i16 refWidth, i16 refHeight}.
func EncodeAbsolute(x, y, refWidth, refHeight int16) []byte {
	c := wire.NewCursor(1 + 2*4)
	c.PutUint8(mouseTagAbsolute)
	c.PutInt16(x)
	c.PutInt16(y)
	c.PutInt16(refWidth)
	c.PutInt16(refHeight)
	return c.Flip().Bytes()
}

// EncodeButton serializes tag 2: {u8 isDown, u8 button}.
func EncodeButton(isDown bool, button Button) []byte {
	c := wire.NewCursor(1 + 1 + 1)
	c.PutUint8(mouseTagButton)
	c.PutUint8(boolToU8(isDown))
	c.PutUint8(uint8(button))
	return c.Flip().Bytes()
}

// EncodeWheel serializes tag 3: {i16 deltaX, i16 deltaY}. The caller must
// have already negated the vertical delta at the event source so that
// positive deltaY means scroll up (spec.md §4.5), and applied
// StreamSettings.MouseScrollMode before calling.
func EncodeWheel(deltaX, deltaY int16) []byte {
	c := wire.NewCursor(1 + 2 + 2)
	c.PutUint8(mouseTagWheel)
	c.PutInt16(deltaX)
	c.PutInt16(deltaY)
	return c.Flip().Bytes()
}

// ApplyScrollMode negates deltaY a second time when the user has reversed
// the scroll direction in StreamSettings.
func ApplyScrollMode(deltaY int16, mode config.MouseScrollMode) int16 {
	if mode == config.ScrollModeReversed {
		return -deltaY
	}
	return deltaY
}

// Tracker holds the state needed to translate raw pointer events into wire
// messages under each of the three modes (spec.md §4.5). It does not own
// the transport; Move/ButtonChange/Wheel return the frames to send, in order.
type Tracker struct {
	mode             Mode
	buttonsHeld      int
	refWidth, refHeight int16
}

func NewTracker(mode Mode, refWidth, refHeight int16) *Tracker {
	return &Tracker{mode: mode, refWidth: refWidth, refHeight: refHeight}
}

func (t *Tracker) SetMode(m Mode) { t.mode = m }

// Move reports raw movement: dx/dy are deltas since the last event, x/y are
// the current absolute client-space position. It returns the wire frames
// to emit for this move, which may be empty ("pointAndDrag" suppresses
// movement until a button is held).
func (t *Tracker) Move(dx, dy, x, y int16) [][]byte {
	switch t.mode {
	case ModeRelative:
		return [][]byte{EncodeRelativeMove(dx, dy)}
	case ModeFollow:
		return [][]byte{EncodeAbsolute(x, y, t.refWidth, t.refHeight)}
	case ModePointAndDrag:
		if t.buttonsHeld > 0 {
			return [][]byte{EncodeRelativeMove(dx, dy)}
		}
		return nil
	default:
		return nil
	}
}

// ButtonChange reports a button transition. In "pointAndDrag" mode a
// button-down first emits the current absolute position so the server has
// a starting anchor before relative deltas follow.
func (t *Tracker) ButtonChange(isDown bool, button Button, x, y int16) [][]byte {
	var frames [][]byte
	if isDown {
		if t.mode == ModePointAndDrag && t.buttonsHeld == 0 {
			frames = append(frames, EncodeAbsolute(x, y, t.refWidth, t.refHeight))
		}
		t.buttonsHeld++
	} else if t.buttonsHeld > 0 {
		t.buttonsHeld--
	}
	frames = append(frames, EncodeButton(isDown, button))
	return frames
}

func (t *Tracker) Wheel(deltaX, deltaY int16, scrollMode config.MouseScrollMode) []byte {
	return EncodeWheel(deltaX, ApplyScrollMode(deltaY, scrollMode))
}
