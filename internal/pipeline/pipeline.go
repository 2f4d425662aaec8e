// Package pipeline implements the media pipeline builder from spec.md §4.4:
// given an input type and the environment's probed codec support, it
// selects an ordered list of pipes terminating in a renderer.
package pipeline

import (
	"fmt"

	"github.com/n0remac/streamclient/internal/codec"
)

// Environment is where a pipe executes (spec.md §3 "execution-environment
// descriptor"). Worker pipes run their Process loop on a separate
// goroutine communicating only by copy-on-send channels (spec.md §5,
// §9 "Worker-hosted decode").
type Environment int

const (
	Main Environment = iota
	Worker
)

// IOType is the data shape flowing between pipe stages.
type IOType int

const (
	TypeVideoTrack  IOType = iota // inbound lazy media track, still RTP-encoded
	TypeDataChunk                 // Annex-B encoded chunk arriving on a data channel
	TypeDecodedFrame              // a decoded, displayable video frame
)

// Pipe is one stage of the decode/render graph (spec.md §3 "Pipeline").
type Pipe interface {
	Name() string
	InputType() IOType
	OutputType() IOType
	Environment() Environment
	// CodecMask reports which codec variants this pipe can carry; a pipe
	// indifferent to codec (e.g. a pure frame-forwarding stage) returns a
	// mask with every variant Supported, the AND identity.
	CodecMask() codec.Mask
}

// Renderer is the terminal stage of a Pipeline.
type Renderer interface {
	Name() string
	InputType() IOType
	Environment() Environment
}

// Pipeline is an instantiated, validated pipe chain plus its renderer.
type Pipeline struct {
	Pipes    []Pipe
	Renderer Renderer
}

// Validate checks the invariants from spec.md §3: adjacent pipes'
// output/input types match, the renderer's input type equals the last
// pipe's output type, and the pointwise AND of every pipe's codec mask is
// non-empty.
func (p *Pipeline) Validate(env Environment, probe codec.Mask, inboundType IOType) error {
	combined := codec.NewMask(codec.Supported)
	combined = codec.AndMask(combined, probe)

	if len(p.Pipes) == 0 {
		// A renderer may consume the inbound type directly with no
		// intermediate pipes (spec.md §4.4 candidate 1).
		if p.Renderer.InputType() != inboundType {
			return fmt.Errorf("pipeline: renderer %q input type mismatch with inbound type", p.Renderer.Name())
		}
		if p.Renderer.Environment() != env {
			return fmt.Errorf("pipeline: renderer %q not supported on environment %v", p.Renderer.Name(), env)
		}
		if !combined.AnySupported() {
			return fmt.Errorf("pipeline: no supported video renderer found")
		}
		return nil
	}

	if p.Pipes[0].InputType() != inboundType {
		return fmt.Errorf("pipeline: first pipe %q input type mismatch with inbound type", p.Pipes[0].Name())
	}

	for i, pipe := range p.Pipes {
		if pipe.Environment() != env {
			return fmt.Errorf("pipeline: pipe %q not supported on environment %v", pipe.Name(), env)
		}
		if i > 0 && p.Pipes[i-1].OutputType() != pipe.InputType() {
			return fmt.Errorf("pipeline: type mismatch between %q and %q", p.Pipes[i-1].Name(), pipe.Name())
		}
		combined = codec.AndMask(combined, pipe.CodecMask())
	}
	last := p.Pipes[len(p.Pipes)-1]
	if last.OutputType() != p.Renderer.InputType() {
		return fmt.Errorf("pipeline: renderer %q input type mismatch with %q", p.Renderer.Name(), last.Name())
	}
	if p.Renderer.Environment() != env {
		return fmt.Errorf("pipeline: renderer %q not supported on environment %v", p.Renderer.Name(), env)
	}
	if !combined.AnySupported() {
		return fmt.Errorf("pipeline: no supported video renderer found")
	}
	return nil
}

// Candidate is one entry in the builder's priority list.
type Candidate struct {
	Name     string
	Input    IOType
	Pipes    []Pipe
	Renderer Renderer
	// CanvasOnly restricts this candidate to canvas-forced mode
	// (settings.ForceCanvas), matching spec.md §4.4's "canvas-forced mode
	// uses a subset that terminates in the canvas renderer".
	CanvasOnly bool
}

// Build evaluates candidates in priority order for the given inboundType
// and returns the first one that validates. forceCanvas restricts the
// search to canvas-terminated candidates.
func Build(candidates []Candidate, inboundType IOType, env Environment, probe codec.Mask, forceCanvas bool) (*Pipeline, error) {
	for _, c := range candidates {
		if c.Input != inboundType {
			continue
		}
		if forceCanvas && !isCanvasRenderer(c.Renderer) {
			continue
		}
		pl := &Pipeline{Pipes: c.Pipes, Renderer: c.Renderer}
		if err := pl.Validate(env, probe, inboundType); err == nil {
			return pl, nil
		}
	}
	return nil, fmt.Errorf("pipeline: no supported video renderer found")
}

func isCanvasRenderer(r Renderer) bool {
	type canvasMarker interface{ IsCanvas() bool }
	if m, ok := r.(canvasMarker); ok {
		return m.IsCanvas()
	}
	return false
}
