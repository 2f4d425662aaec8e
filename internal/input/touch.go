package input

import (
	"math"
	"time"

	"github.com/n0remac/streamclient/internal/wire"
)

const (
	touchTagStart = 0
	touchTagMove  = 1
	touchTagEnd   = 2
)

// TouchMode selects how touch events are translated (spec.md §4.5).
type TouchMode int

const (
	TouchModeRaw TouchMode = iota
	TouchModeMouseRelative
	TouchModePointAndDrag
)

// Rect is the viewport client rect touches are normalized against.
type Rect struct {
	Left, Top, Width, Height float64
}

// Normalize maps a client-space point into [0,1]x[0,1]; ok is false when
// the point falls outside the rect (spec.md §4.5: "touches outside are
// dropped").
func (r Rect) Normalize(clientX, clientY float64) (x, y float64, ok bool) {
	if r.Width == 0 || r.Height == 0 {
		return 0, 0, false
	}
	x = (clientX - r.Left) / r.Width
	y = (clientY - r.Top) / r.Height
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return 0, 0, false
	}
	return x, y, true
}

// Track is a per-identifier touch record (spec.md §3 "TouchTrack").
type Track struct {
	ID                  uint32
	StartTime           time.Time
	OriginX, OriginY    float64
	CurX, CurY          float64
	MouseClicked        bool
	MouseMoved          bool
}

// EncodeTouch serializes tag 0/1/2: {u32 id, f32 normalizedX, f32
// normalizedY, f32 force, f32 radiusX, f32 radiusY, u16 rotationAngle}.
func EncodeTouch(tag uint8, id uint32, normalizedX, normalizedY, force, radiusX, radiusY float32, rotationAngle uint16) []byte {
	c := wire.NewCursor(1 + 4 + 5*4 + 2)
	c.PutUint8(tag)
	c.PutUint32(id)
	c.PutFloat32(normalizedX)
	c.PutFloat32(normalizedY)
	c.PutFloat32(force)
	c.PutFloat32(radiusX)
	c.PutFloat32(radiusY)
	c.PutUint16(rotationAngle)
	return c.Flip().Bytes()
}

const (
	clickMaxDistancePx = 30.0
	clickMinDuration   = 100 * time.Millisecond
	clickMaxDuration   = 300 * time.Millisecond
	swipeGestureThresholdPx = 100.0
)

// gestureState tracks which override (spec.md §4.5 "Gesture overrides") is
// currently active while a primary touch exists.
type gestureState int

const (
	gestureNone gestureState = iota
	gestureScroll
	gestureKeyboard
)

// Session drives one browser surface's touch handling: it owns the mode,
// the active tracks, and the gesture-override state machine, and emits
// wire-ready frames for both the "touch" channel (raw mode) and the
// "mouse" channel (derived modes), plus synthetic UI events (show/hide
// screen keyboard, scroll).
type Session struct {
	mode   TouchMode
	rect   Rect
	tracks map[uint32]*Track
	order  []uint32 // insertion order, first entry is the primary touch

	gesture        gestureState
	gestureOriginY float64

	tracker *Tracker

	// OnShowKeyboard/OnHideKeyboard/OnScroll are fired for gesture
	// overrides; nil callbacks are simply skipped.
	OnShowKeyboard func()
	OnHideKeyboard func()
	OnScroll       func(deltaX, deltaY float64)
}

func NewSession(mode TouchMode, rect Rect, capabilitiesTouch bool) *Session {
	if mode == TouchModeRaw && !capabilitiesTouch {
		// spec.md §4.5: raw forwarding requires server-advertised touch
		// support; fall back to the closest derived mode otherwise.
		mode = TouchModeMouseRelative
	}
	return &Session{
		mode:    mode,
		rect:    rect,
		tracks:  make(map[uint32]*Track),
		tracker: NewTracker(ModeRelative, referenceSpan, referenceSpan),
	}
}

// Start handles touchstart. It returns the wire frames to send on the
// "touch" or "mouse" channel (which depends on mode), or nil if the point
// fell outside the rect.
func (s *Session) Start(id uint32, clientX, clientY, force, radiusX, radiusY float64, rotationAngle uint16) [][]byte {
	nx, ny, ok := s.rect.Normalize(clientX, clientY)
	if !ok {
		return nil
	}
	t := &Track{ID: id, StartTime: time.Now(), OriginX: clientX, OriginY: clientY, CurX: clientX, CurY: clientY}
	s.tracks[id] = t
	s.order = append(s.order, id)

	if s.mode == TouchModeRaw {
		return [][]byte{EncodeTouch(touchTagStart, id, float32(nx), float32(ny), float32(force), float32(radiusX), float32(radiusY), rotationAngle)}
	}
	return s.applyGestureTransition()
}

// Move handles touchmove.
func (s *Session) Move(id uint32, clientX, clientY, force, radiusX, radiusY float64, rotationAngle uint16) [][]byte {
	t, ok := s.tracks[id]
	if !ok {
		return nil
	}
	nx, ny, normOK := s.rect.Normalize(clientX, clientY)

	if s.mode == TouchModeRaw {
		if !normOK {
			return nil
		}
		t.CurX, t.CurY = clientX, clientY
		return [][]byte{EncodeTouch(touchTagMove, id, float32(nx), float32(ny), float32(force), float32(radiusX), float32(radiusY), rotationAngle)}
	}

	switch s.gesture {
	case gestureScroll:
		dx := clientX - t.CurX
		dy := clientY - t.CurY
		t.CurX, t.CurY = clientX, clientY
		if s.OnScroll != nil {
			// "horizontal inverted" per spec.md §4.5.
			s.OnScroll(-dx, dy)
		}
		return nil
	case gestureKeyboard:
		if id == s.primaryID() {
			dy := clientY - s.gestureOriginY
			if dy > swipeGestureThresholdPx && s.OnShowKeyboard != nil {
				s.OnShowKeyboard()
			} else if dy < -swipeGestureThresholdPx && s.OnHideKeyboard != nil {
				s.OnHideKeyboard()
			}
		}
		return nil
	}

	if id != s.primaryID() {
		return nil
	}
	dx := int16(clientX - t.CurX)
	dy := int16(clientY - t.CurY)
	t.CurX, t.CurY = clientX, clientY
	t.MouseMoved = true

	var frames [][]byte
	if s.mode == TouchModePointAndDrag && !t.MouseClicked && dist(t.OriginX, t.OriginY, clientX, clientY) > clickMaxDistancePx {
		frames = append(frames, EncodeAbsolute(int16(nx*referenceSpan), int16(ny*referenceSpan), referenceSpan, referenceSpan))
		frames = append(frames, EncodeButton(true, ButtonLeft))
		t.MouseClicked = true
	}
	frames = append(frames, s.tracker.Move(dx, dy, int16(nx*referenceSpan), int16(ny*referenceSpan))...)
	return frames
}

// End handles touchend/touchcancel.
func (s *Session) End(id uint32) [][]byte {
	t, ok := s.tracks[id]
	if !ok {
		return nil
	}
	if s.mode == TouchModeRaw {
		s.removeTrack(id)
		return [][]byte{EncodeTouch(touchTagEnd, id, 0, 0, 0, 0, 0, 0)}
	}

	primary := id == s.primaryID()
	wasGesture := s.gesture != gestureNone
	s.removeTrack(id)
	if len(s.tracks) < 2 {
		// releasing a gesture finger resumes normal single-touch handling.
		s.gesture = gestureNone
	}
	if !primary || wasGesture {
		return nil
	}

	var frames [][]byte
	if s.mode == TouchModePointAndDrag && t.MouseClicked {
		frames = append(frames, EncodeButton(false, ButtonLeft))
		return frames
	}

	duration := time.Now().Sub(t.StartTime)
	distance := dist(t.OriginX, t.OriginY, t.CurX, t.CurY)
	if distance <= clickMaxDistancePx {
		var click Button
		var isClick bool
		if duration >= clickMinDuration && duration <= clickMaxDuration {
			click, isClick = ButtonLeft, true
		} else if duration > clickMaxDuration {
			click, isClick = ButtonRight, true
		}
		if isClick {
			if s.mode == TouchModePointAndDrag {
				// pointAndDrag anchors the cursor at the touch's origin
				// before any button event, unlike plain mouseRelative
				// (spec.md §8 scenario 3).
				if nx, ny, ok := s.rect.Normalize(t.OriginX, t.OriginY); ok {
					frames = append(frames, EncodeAbsolute(int16(nx*referenceSpan), int16(ny*referenceSpan), referenceSpan, referenceSpan))
				}
			}
			frames = append(frames, EncodeButton(true, click), EncodeButton(false, click))
		}
	}
	return frames
}

// applyGestureTransition checks the active touch count against spec.md
// §4.5's gesture-override thresholds immediately after a touchstart.
func (s *Session) applyGestureTransition() [][]byte {
	switch len(s.tracks) {
	case 2:
		if s.gesture == gestureNone && !s.primaryHasClickedOrDragged() {
			s.gesture = gestureScroll
		}
	case 3:
		s.gesture = gestureKeyboard
		if p, ok := s.tracks[s.primaryID()]; ok {
			s.gestureOriginY = p.CurY
		}
	}
	return nil
}

func (s *Session) primaryHasClickedOrDragged() bool {
	t, ok := s.tracks[s.primaryID()]
	return ok && t.MouseClicked
}

func (s *Session) primaryID() uint32 {
	if len(s.order) == 0 {
		return 0
	}
	return s.order[0]
}

func (s *Session) removeTrack(id uint32) {
	delete(s.tracks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func dist(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}
