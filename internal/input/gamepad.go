package input

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/n0remac/streamclient/internal/config"
	"github.com/n0remac/streamclient/internal/wire"
)

const (
	gamepadAddTag    = 0
	gamepadRemoveTag = 1
	gamepadStateTag  = 0

	rumbleDualTag    = 0
	rumbleTriggerTag = 1

	rumbleReplayInterval = 50 * time.Millisecond
	rumbleEffectDuration = 60 * time.Millisecond
)

// Button flags match a standard-mapping gamepad's button bitmask (spec.md
// §4.5), with the same bit values as the real Moonlight protocol.
const (
	ButtonFlagUp          uint32 = 0x0001
	ButtonFlagDown        uint32 = 0x0002
	ButtonFlagLeft        uint32 = 0x0004
	ButtonFlagRight       uint32 = 0x0008
	ButtonFlagStart       uint32 = 0x0010
	ButtonFlagBack        uint32 = 0x0020
	ButtonFlagLeftStick   uint32 = 0x0040
	ButtonFlagRightStick  uint32 = 0x0080
	ButtonFlagLeftBumper  uint32 = 0x0100
	ButtonFlagRightBumper uint32 = 0x0200
	ButtonFlagHome        uint32 = 0x0400
	ButtonFlagA           uint32 = 0x1000
	ButtonFlagB           uint32 = 0x2000
	ButtonFlagX           uint32 = 0x4000
	ButtonFlagY           uint32 = 0x8000
)

// RumbleState is the current effect for one slot (spec.md §3 "GamepadSlot").
type RumbleState struct {
	LowFrequencyMotor, HighFrequencyMotor uint16
	LeftTrigger, RightTrigger             uint16
}

// Slot binds a virtual controller id to an environment gamepad handle.
type Slot struct {
	ID                    uint8
	Controller            *sdl.GameController
	Haptic                *sdl.Haptic
	SupportsRumble        bool
	SupportsTriggerRumble bool
	Rumble                RumbleState

	// dualEffectID is the SDL_HAPTIC_LEFTRIGHT effect instance backing the
	// dual-motor rumble (low/high frequency), created once in AddSlot and
	// updated in place by every ReplayRumble tick. -1 when SupportsRumble
	// is false.
	dualEffectID int
}

// EncodeAdd serializes the control-channel add message: {u8 tag=0, u8
// slotId, u32 supportedButtonsBitmask, u16 capabilities}.
func EncodeAdd(slotID uint8, supportedButtons uint32, capabilities uint16) []byte {
	c := wire.NewCursor(1 + 1 + 4 + 2)
	c.PutUint8(gamepadAddTag)
	c.PutUint8(slotID)
	c.PutUint32(supportedButtons)
	c.PutUint16(capabilities)
	return c.Flip().Bytes()
}

// EncodeRemove serializes the control-channel remove message.
func EncodeRemove(slotID uint8) []byte {
	c := wire.NewCursor(1 + 1)
	c.PutUint8(gamepadRemoveTag)
	c.PutUint8(slotID)
	return c.Flip().Bytes()
}

// EncodeState serializes the per-frame per-controller state message:
// {u8 tag=0, u32 buttonFlags, u8 leftTrigger, u8 rightTrigger, i16 lx, i16
// ly, i16 rx, i16 ry}. lx/rx pass through; ly/ry are inverted per spec.md
// §4.5 before the caller passes them here.
func EncodeState(buttonFlags uint32, leftTrigger, rightTrigger uint8, lx, ly, rx, ry int16) []byte {
	c := wire.NewCursor(1 + 4 + 1 + 1 + 2*4)
	c.PutUint8(gamepadStateTag)
	c.PutUint32(buttonFlags)
	c.PutUint8(leftTrigger)
	c.PutUint8(rightTrigger)
	c.PutInt16(lx)
	c.PutInt16(ly)
	c.PutInt16(rx)
	c.PutInt16(ry)
	return c.Flip().Bytes()
}

// RemapButtons honors controllerConfig.InvertAB/InvertXY (spec.md §4.5
// "Button remap honors invertAB and invertXY").
func RemapButtons(flags uint32, cfg config.ControllerConfig) uint32 {
	if cfg.InvertAB {
		flags = swapBit(flags, ButtonFlagA, ButtonFlagB)
	}
	if cfg.InvertXY {
		flags = swapBit(flags, ButtonFlagX, ButtonFlagY)
	}
	return flags
}

func swapBit(flags, a, b uint32) uint32 {
	aSet := flags&a != 0
	bSet := flags&b != 0
	flags &^= a | b
	if aSet {
		flags |= b
	}
	if bSet {
		flags |= a
	}
	return flags
}

// ScaleAxis maps a normalized [-1,1] stick axis to the protocol's i16
// range, inverting when invert is true (spec.md §4.5 "Y axes inverted").
func ScaleAxis(value float64, invert bool) int16 {
	if invert {
		value = -value
	}
	if value > 1 {
		value = 1
	} else if value < -1 {
		value = -1
	}
	return int16(value * 32767)
}

// ScaleTrigger maps a normalized [0,1] trigger to the protocol's u8 range.
func ScaleTrigger(value float64) uint8 {
	if value > 1 {
		value = 1
	} else if value < 0 {
		value = 0
	}
	return uint8(value * 255)
}

// decodeRumbleU16 scales a wire u16 into [0,1], matching "both scaled by
// u16 max" (spec.md §4.5).
func decodeRumbleU16(v uint16) float32 {
	return float32(v) / float32(^uint16(0))
}

// Poller holds the per-slot gamepad state and drives the rumble replay
// loop. It owns no transport and does not read controller state itself:
// the render loop reads each controller and calls EncodeState once per
// frame.
type Poller struct {
	mu      sync.Mutex
	slots   map[uint8]*Slot
	log     zerolog.Logger
	stop    chan struct{}
}

func NewPoller(log zerolog.Logger) *Poller {
	return &Poller{slots: make(map[uint8]*Slot), log: log.With().Str("component", "gamepad_poller").Logger()}
}

// AddSlot registers a newly connected controller under the slot id the
// caller assigned, returning the add message to send on "controllers". Dual-motor
// rumble (spec.md §4.5 tag-0 rumble) is backed by an SDL_HAPTIC_LEFTRIGHT
// effect, created once here and reused by every ReplayRumble tick so both
// the low- and high-frequency magnitudes survive independently instead of
// collapsing to one scalar. Trigger rumble (tag-1) uses go-sdl2's
// GameController.RumbleTriggers, the SDL API for the trigger-motor
// actuators found on newer controllers; Haptic's LeftRight effect has no
// trigger-motor concept to reuse for it.
func (p *Poller) AddSlot(slotID uint8, controller *sdl.GameController) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot := &Slot{ID: slotID, Controller: controller, dualEffectID: -1}
	if joystick := sdl.GameControllerGetJoystick(controller); joystick != nil {
		if h, err := sdl.HapticOpenFromJoystick(joystick); err == nil {
			effect := &sdl.HapticEffect{Type: sdl.HAPTIC_LEFTRIGHT}
			if h.EffectSupported(effect) {
				if id, err := h.NewEffect(effect); err == nil {
					slot.Haptic = h
					slot.dualEffectID = id
					slot.SupportsRumble = true
				}
			}
			if !slot.SupportsRumble {
				h.Close()
			}
		}
	}
	slot.SupportsTriggerRumble = controller.HasRumbleTriggers()
	p.slots[slotID] = slot

	var caps uint16
	if slot.SupportsRumble {
		caps |= 0x01
	}
	if slot.SupportsTriggerRumble {
		caps |= 0x02
	}
	const standardButtonMask = ButtonFlagUp | ButtonFlagDown | ButtonFlagLeft | ButtonFlagRight |
		ButtonFlagStart | ButtonFlagBack | ButtonFlagLeftStick | ButtonFlagRightStick |
		ButtonFlagLeftBumper | ButtonFlagRightBumper | ButtonFlagHome |
		ButtonFlagA | ButtonFlagB | ButtonFlagX | ButtonFlagY
	return EncodeAdd(slotID, standardButtonMask, caps)
}

// RemoveSlot unregisters a disconnected controller, returning the remove
// message.
func (p *Poller) RemoveSlot(slotID uint8) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if slot, ok := p.slots[slotID]; ok && slot.Haptic != nil {
		if slot.dualEffectID >= 0 {
			slot.Haptic.DestroyEffect(slot.dualEffectID)
		}
		slot.Haptic.Close()
	}
	delete(p.slots, slotID)
	return EncodeRemove(slotID)
}

// SetRumble stores the requested effect, replacing any prior one (spec.md
// §4.5: "Current state is stored and replayed"). tag 0 is dual-rumble, tag
// 1 is trigger-rumble.
func (p *Poller) SetRumble(slotID uint8, tag uint8, a, b uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot, ok := p.slots[slotID]
	if !ok {
		return
	}
	switch tag {
	case rumbleDualTag:
		slot.Rumble.LowFrequencyMotor = a
		slot.Rumble.HighFrequencyMotor = b
	case rumbleTriggerTag:
		slot.Rumble.LeftTrigger = a
		slot.Rumble.RightTrigger = b
	}
}

// ReplayRumble runs one tick of the 50ms replay loop (spec.md §4.5): every
// slot with a non-zero rumble state gets its effect(s) re-triggered for
// rumbleEffectDuration so consecutive ticks overlap without a gap. Dual
// rumble and trigger rumble are independent wire fields (spec.md §4.5 tag 0
// vs tag 1) and are replayed independently here: dual rumble updates and
// re-runs the slot's SDL_HAPTIC_LEFTRIGHT effect with the low/high
// magnitudes kept separate, and trigger rumble calls
// GameController.RumbleTriggers directly when the controller reports
// HasRumbleTriggers.
func (p *Poller) ReplayRumble() {
	p.mu.Lock()
	defer p.mu.Unlock()
	durationMs := uint32(rumbleEffectDuration.Milliseconds())
	for _, slot := range p.slots {
		if slot.SupportsRumble && slot.Haptic != nil && slot.dualEffectID >= 0 {
			if slot.Rumble.LowFrequencyMotor != 0 || slot.Rumble.HighFrequencyMotor != 0 {
				effect := &sdl.HapticEffect{
					Type: sdl.HAPTIC_LEFTRIGHT,
					LeftRight: sdl.HapticLeftRight{
						Type:           sdl.HAPTIC_LEFTRIGHT,
						Length:         durationMs,
						LargeMagnitude: slot.Rumble.LowFrequencyMotor,
						SmallMagnitude: slot.Rumble.HighFrequencyMotor,
					},
				}
				if err := slot.Haptic.UpdateEffect(slot.dualEffectID, effect); err != nil {
					p.log.Warn().Err(err).Uint8("slot", slot.ID).Msg("rumble update failed")
				} else if err := slot.Haptic.RunEffect(slot.dualEffectID, 1); err != nil {
					p.log.Warn().Err(err).Uint8("slot", slot.ID).Msg("rumble run failed")
				}
			} else {
				_ = slot.Haptic.StopEffect(slot.dualEffectID)
			}
		}
		if slot.SupportsTriggerRumble && slot.Controller != nil {
			if slot.Rumble.LeftTrigger != 0 || slot.Rumble.RightTrigger != 0 {
				if err := slot.Controller.RumbleTriggers(slot.Rumble.LeftTrigger, slot.Rumble.RightTrigger, durationMs); err != nil {
					p.log.Warn().Err(err).Uint8("slot", slot.ID).Msg("trigger rumble failed")
				}
			}
		}
	}
}

// RunReplayLoop blocks, ticking ReplayRumble every rumbleReplayInterval
// until Stop is called.
func (p *Poller) RunReplayLoop() {
	p.mu.Lock()
	if p.stop == nil {
		p.stop = make(chan struct{})
	}
	stop := p.stop
	p.mu.Unlock()

	ticker := time.NewTicker(rumbleReplayInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.ReplayRumble()
		}
	}
}

func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}
