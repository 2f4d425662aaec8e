package app

import (
	"context"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/n0remac/streamclient/internal/input"
	"github.com/n0remac/streamclient/internal/transport"
	"github.com/n0remac/streamclient/internal/transport/rtc"
)

// frameInterval paces the render/input loop independently of the inbound
// video's own frame rate (spec.md §5: suspension points include "awaiting
// media-stream-track-processor reads", not a fixed render cadence).
const frameInterval = 16 * time.Millisecond

// controllerSlot tracks one open joystick's assigned virtual slot id and
// its go-sdl2 handle, keyed by SDL's own instance id.
type controllerSlot struct {
	slotID     uint8
	controller *sdl.GameController
}

// eventLoop is the single-threaded cooperative scheduling loop from
// spec.md §5: it owns SDL's event queue, drains it every tick, dispatches
// to the input subsystem and the render sinks, and polls gamepad state
// once per tick; local stats are polled on a separate one-second ticker.
func (c *Client) eventLoop(ctx context.Context, sessionErr <-chan error) error {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	statsTicker := time.NewTicker(time.Second)
	defer statsTicker.Stop()

	controllers := make(map[sdl.JoystickID]*controllerSlot)
	var nextSlot uint8

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case err := <-sessionErr:
			c.shutdown()
			return err
		case e := <-c.fatal:
			c.log.Error().Err(e).Str("kind", string(e.Kind)).Msg("session fatal")
			c.shutdown()
			return e
		case <-statsTicker.C:
			c.pollLocalStats()
		case <-ticker.C:
			if quit := c.pumpEvents(controllers, &nextSlot); quit {
				c.shutdown()
				return nil
			}
			c.drawPending()
			c.pollGamepads(controllers)
		}
	}
}

func (c *Client) shutdown() {
	if c.transport != nil {
		_ = c.transport.Close()
	}
	if c.video != nil {
		if c.video.Canvas != nil {
			_ = c.video.Canvas.Close()
		}
		if c.video.Video != nil {
			_ = c.video.Video.Close()
		}
	}
	if c.audio != nil && c.audio.Sink != nil {
		_ = c.audio.Sink.Close()
	}
	c.gamepads.Stop()
}

func (c *Client) drawPending() {
	if c.video == nil {
		return
	}
	if c.video.Canvas != nil {
		_ = c.video.Canvas.DrawPending()
	}
	if c.video.Video != nil {
		_ = c.video.Video.DrawPending()
	}
}

// pumpEvents drains the SDL event queue for one tick, returning true if a
// quit event was observed.
func (c *Client) pumpEvents(controllers map[sdl.JoystickID]*controllerSlot, nextSlot *uint8) bool {
	for {
		ev := sdl.PollEvent()
		if ev == nil {
			return false
		}
		switch e := ev.(type) {
		case *sdl.QuitEvent:
			return true
		case *sdl.KeyboardEvent:
			c.handleKeyboard(e)
		case *sdl.TextInputEvent:
			c.handleTextInput(e)
		case *sdl.MouseMotionEvent:
			c.handleMouseMotion(e)
		case *sdl.MouseButtonEvent:
			c.handleMouseButton(e)
		case *sdl.MouseWheelEvent:
			c.handleMouseWheel(e)
		case *sdl.TouchFingerEvent:
			c.handleTouchFinger(e)
		case *sdl.ControllerDeviceEvent:
			c.handleControllerDevice(e, controllers, nextSlot)
		case *sdl.ControllerButtonEvent, *sdl.ControllerAxisEvent:
			// State is read wholesale once per tick in pollGamepads rather
			// than accumulated incrementally from button/axis events.
		}
	}
}

func (c *Client) send(id transport.ChannelID, frame []byte) {
	if c.transport == nil || frame == nil {
		return
	}
	ch, ok := c.transport.Channel(id)
	if !ok {
		return
	}
	if err := ch.Send(frame); err != nil {
		c.log.Warn().Err(err).Str("channel", string(id)).Msg("send failed")
	}
}

func (c *Client) sendAll(id transport.ChannelID, frames [][]byte) {
	for _, f := range frames {
		c.send(id, f)
	}
}

func (c *Client) handleKeyboard(e *sdl.KeyboardEvent) {
	code, ok := input.KeyCodeForScancode(e.Keysym.Scancode)
	if !ok {
		return
	}
	isDown := e.State == sdl.PRESSED
	c.send(transport.ChannelKeyboard, input.EncodeKeyEvent(isDown, input.ModifiersFromSDL(), code))
}

func (c *Client) handleTextInput(e *sdl.TextInputEvent) {
	n := 0
	for n < len(e.Text) && e.Text[n] != 0 {
		n++
	}
	if n == 0 {
		return
	}
	c.send(transport.ChannelKeyboard, input.EncodeText(string(e.Text[:n])))
}

func (c *Client) handleMouseMotion(e *sdl.MouseMotionEvent) {
	if c.mouseTracker == nil {
		return
	}
	frames := c.mouseTracker.Move(int16(e.XRel), int16(e.YRel), int16(e.X), int16(e.Y))
	c.sendAll(transport.ChannelMouse, frames)
}

func (c *Client) handleMouseButton(e *sdl.MouseButtonEvent) {
	if c.mouseTracker == nil {
		return
	}
	btn, ok := sdlMouseButton(e.Button)
	if !ok {
		return
	}
	isDown := e.State == sdl.PRESSED
	frames := c.mouseTracker.ButtonChange(isDown, btn, int16(e.X), int16(e.Y))
	c.sendAll(transport.ChannelMouse, frames)
}

func sdlMouseButton(b uint8) (input.Button, bool) {
	switch b {
	case sdl.BUTTON_LEFT:
		return input.ButtonLeft, true
	case sdl.BUTTON_MIDDLE:
		return input.ButtonMiddle, true
	case sdl.BUTTON_RIGHT:
		return input.ButtonRight, true
	case sdl.BUTTON_X1:
		return input.ButtonX1, true
	case sdl.BUTTON_X2:
		return input.ButtonX2, true
	default:
		return 0, false
	}
}

func (c *Client) handleMouseWheel(e *sdl.MouseWheelEvent) {
	deltaY := int16(e.Y)
	if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
		deltaY = -deltaY
	}
	c.send(transport.ChannelMouse, input.EncodeWheel(int16(e.X), input.ApplyScrollMode(deltaY, c.opts.Settings.MouseScrollMode)))
}

func (c *Client) handleTouchFinger(e *sdl.TouchFingerEvent) {
	if c.touchSession == nil {
		return
	}
	// SDL reports touch coordinates already normalized to [0,1] against
	// the whole touch surface; Session.rect expects client pixels, so
	// scale back up to the window before handing off (spec.md §4.5
	// normalization is then redone internally against the same rect).
	w, h := windowSizeForTouch(e.WindowID)
	clientX := float64(e.X) * float64(w)
	clientY := float64(e.Y) * float64(h)
	id := uint32(e.FingerID)

	var frames [][]byte
	switch e.Type {
	case sdl.FINGERDOWN:
		frames = c.touchSession.Start(id, clientX, clientY, float64(e.Pressure), 1, 1, 0)
	case sdl.FINGERMOTION:
		frames = c.touchSession.Move(id, clientX, clientY, float64(e.Pressure), 1, 1, 0)
	case sdl.FINGERUP:
		frames = c.touchSession.End(id)
	}
	c.sendAll(transport.ChannelTouch, frames)
}

func windowSizeForTouch(windowID uint32) (int32, int32) {
	win := sdl.GetWindowFromID(windowID)
	if win == nil {
		return 1, 1
	}
	w, h := win.GetSize()
	return w, h
}

func (c *Client) handleControllerDevice(e *sdl.ControllerDeviceEvent, controllers map[sdl.JoystickID]*controllerSlot, nextSlot *uint8) {
	switch e.Type {
	case sdl.CONTROLLERDEVICEADDED:
		ctrl := sdl.GameControllerOpen(int(e.Which))
		if ctrl == nil {
			return
		}
		joystick := sdl.GameControllerGetJoystick(ctrl)
		if joystick == nil {
			ctrl.Close()
			return
		}
		instance := joystick.InstanceID()
		slotID := *nextSlot
		*nextSlot++
		controllers[instance] = &controllerSlot{slotID: slotID, controller: ctrl}
		if rtcTp, ok := c.transport.(*rtc.Transport); ok {
			if _, err := rtcTp.OpenControllerChannel(transport.ControllerChannel(int(slotID))); err != nil {
				c.log.Warn().Err(err).Uint8("slot", slotID).Msg("open controller channel failed")
			}
		}
		c.send(transport.ChannelControllers, c.gamepads.AddSlot(slotID, ctrl))

	case sdl.CONTROLLERDEVICEREMOVED:
		instance := sdl.JoystickID(e.Which)
		slot, ok := controllers[instance]
		if !ok {
			return
		}
		delete(controllers, instance)
		slot.controller.Close()
		c.send(transport.ChannelControllers, c.gamepads.RemoveSlot(slot.slotID))
	}
}

// pollGamepads reads every open controller's current state once per tick
// and emits a state frame on its dedicated channel (spec.md §4.5 "polled
// every animation frame").
func (c *Client) pollGamepads(controllers map[sdl.JoystickID]*controllerSlot) {
	for _, slot := range controllers {
		ctrl := slot.controller
		var flags uint32
		setIf := func(pressed bool, bit uint32) {
			if pressed {
				flags |= bit
			}
		}
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_DPAD_UP) != 0, input.ButtonFlagUp)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_DPAD_DOWN) != 0, input.ButtonFlagDown)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_DPAD_LEFT) != 0, input.ButtonFlagLeft)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_DPAD_RIGHT) != 0, input.ButtonFlagRight)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_START) != 0, input.ButtonFlagStart)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_BACK) != 0, input.ButtonFlagBack)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_LEFTSTICK) != 0, input.ButtonFlagLeftStick)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_RIGHTSTICK) != 0, input.ButtonFlagRightStick)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_LEFTSHOULDER) != 0, input.ButtonFlagLeftBumper)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_RIGHTSHOULDER) != 0, input.ButtonFlagRightBumper)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_GUIDE) != 0, input.ButtonFlagHome)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_A) != 0, input.ButtonFlagA)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_B) != 0, input.ButtonFlagB)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_X) != 0, input.ButtonFlagX)
		setIf(ctrl.Button(sdl.CONTROLLER_BUTTON_Y) != 0, input.ButtonFlagY)
		flags = input.RemapButtons(flags, c.opts.Settings.Controller)

		lx := input.ScaleAxis(float64(ctrl.Axis(sdl.CONTROLLER_AXIS_LEFTX))/32767, false)
		ly := input.ScaleAxis(float64(ctrl.Axis(sdl.CONTROLLER_AXIS_LEFTY))/32767, true)
		rx := input.ScaleAxis(float64(ctrl.Axis(sdl.CONTROLLER_AXIS_RIGHTX))/32767, false)
		ry := input.ScaleAxis(float64(ctrl.Axis(sdl.CONTROLLER_AXIS_RIGHTY))/32767, true)
		lt := input.ScaleTrigger(float64(ctrl.Axis(sdl.CONTROLLER_AXIS_TRIGGERLEFT)) / 32767)
		rt := input.ScaleTrigger(float64(ctrl.Axis(sdl.CONTROLLER_AXIS_TRIGGERRIGHT)) / 32767)

		frame := input.EncodeState(flags, lt, rt, lx, ly, rx, ry)
		c.send(transport.ControllerChannel(int(slot.slotID)), frame)
	}
}
