package video

import (
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/n0remac/streamclient/internal/pipeline"
)

// sdlSink is the shared SDL2 texture sink backing both CanvasRenderer and
// VideoElementRenderer (spec.md §4.4.3/4.4.4). go-sdl2 is the host
// environment's graphics/window primitive this client has access to,
// standing in for <canvas>/<video>.
type sdlSink struct {
	mu       sync.Mutex
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	texW     int32
	texH     int32
	pending  *Frame
	log      zerolog.Logger
}

func newSDLSink(title string, width, height int32, log zerolog.Logger) (*sdlSink, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("video: sdl init: %w", err)
	}
	win, err := sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED, width, height, sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, fmt.Errorf("video: sdl create window: %w", err)
	}
	ren, err := sdl.CreateRenderer(win, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return nil, fmt.Errorf("video: sdl create renderer: %w", err)
	}
	return &sdlSink{window: win, renderer: ren, log: log}, nil
}

// SetFrame retains only the newest frame; any previous pending frame is
// dropped (spec.md §4.4.3 "Retains only the newest frame").
func (s *sdlSink) SetFrame(f Frame) {
	s.mu.Lock()
	s.pending = &f
	s.mu.Unlock()
}

// DrawPending runs once per animation frame: if a frame is pending, resize
// the backing texture to the frame's intrinsic dimensions, compute
// letterbox/pillarbox offsets against the window's client aspect ratio,
// clear, and draw (spec.md §4.4.3).
func (s *sdlSink) DrawPending() error {
	s.mu.Lock()
	f := s.pending
	s.pending = nil
	s.mu.Unlock()
	if f == nil {
		return nil
	}

	bounds := f.Image.Bounds()
	fw, fh := int32(bounds.Dx()), int32(bounds.Dy())
	if s.texture == nil || s.texW != fw || s.texH != fh {
		if s.texture != nil {
			s.texture.Destroy()
		}
		tex, err := s.renderer.CreateTexture(sdl.PIXELFORMAT_RGB24, sdl.TEXTUREACCESS_STREAMING, fw, fh)
		if err != nil {
			return fmt.Errorf("video: create texture: %w", err)
		}
		s.texture = tex
		s.texW, s.texH = fw, fh
	}

	pix := imageToRGB24(f.Image)
	if err := s.texture.Update(nil, pix, int(fw)*3); err != nil {
		return fmt.Errorf("video: texture update: %w", err)
	}

	clientW, clientH := s.window.GetSize()
	dst := letterbox(fw, fh, clientW, clientH)

	s.renderer.SetDrawColor(0, 0, 0, 255)
	s.renderer.Clear()
	if err := s.renderer.Copy(s.texture, nil, &dst); err != nil {
		return fmt.Errorf("video: texture copy: %w", err)
	}
	s.renderer.Present()
	return nil
}

// letterbox computes the destination rect that fits a frameW x frameH
// frame inside a clientW x clientH viewport preserving aspect ratio,
// centering it and leaving black bars on the narrower axis (spec.md §4.4.3,
// GLOSSARY "Letterbox/Pillarbox").
func letterbox(frameW, frameH, clientW, clientH int32) sdl.Rect {
	if frameW == 0 || frameH == 0 || clientW == 0 || clientH == 0 {
		return sdl.Rect{}
	}
	frameAspect := float64(frameW) / float64(frameH)
	clientAspect := float64(clientW) / float64(clientH)

	if frameAspect > clientAspect {
		// frame is relatively wider: pillarbox is wrong term here, bars on
		// top/bottom (letterbox).
		h := int32(float64(clientW) / frameAspect)
		y := (clientH - h) / 2
		return sdl.Rect{X: 0, Y: y, W: clientW, H: h}
	}
	w := int32(float64(clientH) * frameAspect)
	x := (clientW - w) / 2
	return sdl.Rect{X: x, Y: 0, W: w, H: clientH}
}

func imageToRGB24(img image.Image) []byte {
	b := img.Bounds()
	out := make([]byte, b.Dx()*b.Dy()*3)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out[i] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(bl >> 8)
			i += 3
		}
	}
	return out
}

func (s *sdlSink) Close() error {
	if s.texture != nil {
		s.texture.Destroy()
	}
	s.renderer.Destroy()
	return s.window.Destroy()
}

// CanvasRenderer is spec.md §4.4.3's canvas-terminated renderer: it
// consumes decoded frames directly (no MediaStream involved).
type CanvasRenderer struct {
	sink *sdlSink
}

func NewCanvasRenderer(width, height int32, log zerolog.Logger) (*CanvasRenderer, error) {
	sink, err := newSDLSink("stream (canvas)", width, height, log)
	if err != nil {
		return nil, err
	}
	return &CanvasRenderer{sink: sink}, nil
}

func (r *CanvasRenderer) Name() string                     { return "CanvasRenderer" }
func (r *CanvasRenderer) InputType() pipeline.IOType        { return pipeline.TypeDecodedFrame }
func (r *CanvasRenderer) Environment() pipeline.Environment { return pipeline.Main }
func (r *CanvasRenderer) IsCanvas() bool                    { return true }
func (r *CanvasRenderer) SetFrame(f Frame)                  { r.sink.SetFrame(f) }
func (r *CanvasRenderer) DrawPending() error                { return r.sink.DrawPending() }
func (r *CanvasRenderer) Close() error                      { return r.sink.Close() }

// VideoElementRenderer is spec.md §4.4.4's renderer: conceptually a single
// -track sink with autoplay/mute semantics. Those browser-only autoplay
// restrictions don't apply to an SDL window, so OnUserInteraction is a
// documented no-op kept for interface parity with the spec.
type VideoElementRenderer struct {
	sink *sdlSink
}

func NewVideoElementRenderer(width, height int32, log zerolog.Logger) (*VideoElementRenderer, error) {
	sink, err := newSDLSink("stream", width, height, log)
	if err != nil {
		return nil, err
	}
	return &VideoElementRenderer{sink: sink}, nil
}

func (r *VideoElementRenderer) Name() string                     { return "VideoElementRenderer" }
func (r *VideoElementRenderer) InputType() pipeline.IOType        { return pipeline.TypeDecodedFrame }
func (r *VideoElementRenderer) Environment() pipeline.Environment { return pipeline.Main }
func (r *VideoElementRenderer) SetFrame(f Frame)                  { r.sink.SetFrame(f) }
func (r *VideoElementRenderer) DrawPending() error                { return r.sink.DrawPending() }

// OnUserInteraction exists for spec parity with the browser autoplay
// workaround; an SDL-rendered window has no autoplay gate to unblock.
func (r *VideoElementRenderer) OnUserInteraction() {}

func (r *VideoElementRenderer) Close() error { return r.sink.Close() }
