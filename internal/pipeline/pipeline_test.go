package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n0remac/streamclient/internal/codec"
)

type fakePipe struct {
	name     string
	in, out  IOType
	env      Environment
	mask     codec.Mask
}

func (p fakePipe) Name() string       { return p.name }
func (p fakePipe) InputType() IOType  { return p.in }
func (p fakePipe) OutputType() IOType { return p.out }
func (p fakePipe) Environment() Environment { return p.env }
func (p fakePipe) CodecMask() codec.Mask    { return p.mask }

type fakeRenderer struct {
	name   string
	in     IOType
	env    Environment
	canvas bool
}

func (r fakeRenderer) Name() string       { return r.name }
func (r fakeRenderer) InputType() IOType  { return r.in }
func (r fakeRenderer) Environment() Environment { return r.env }
func (r fakeRenderer) IsCanvas() bool     { return r.canvas }

func TestBuildRejectsCodecMismatch(t *testing.T) {
	av1Only := codec.Mask{codec.AV1Main8: codec.Supported}
	h264Pipe := fakePipe{name: "dep", in: TypeDataChunk, out: TypeDecodedFrame, env: Main, mask: codec.Mask{codec.H264: codec.Supported}}
	candidates := []Candidate{
		{Name: "h264-path", Input: TypeDataChunk, Pipes: []Pipe{h264Pipe}, Renderer: fakeRenderer{name: "r1", in: TypeDecodedFrame, env: Main}},
	}
	_, err := Build(candidates, TypeDataChunk, Main, av1Only, false)
	require.Error(t, err, "codec mismatch must reject the pipeline")
}

func TestBuildAcceptsMatchingCodec(t *testing.T) {
	probe := codec.Mask{codec.H264: codec.Supported}
	h264Pipe := fakePipe{name: "dep", in: TypeDataChunk, out: TypeDecodedFrame, env: Main, mask: codec.Mask{codec.H264: codec.Supported}}
	candidates := []Candidate{
		{Name: "h264-path", Input: TypeDataChunk, Pipes: []Pipe{h264Pipe}, Renderer: fakeRenderer{name: "r1", in: TypeDecodedFrame, env: Main}},
	}
	pl, err := Build(candidates, TypeDataChunk, Main, probe, false)
	require.NoError(t, err)
	require.Equal(t, "r1", pl.Renderer.Name())
}

func TestBuildCanvasForcedFiltersNonCanvas(t *testing.T) {
	probe := codec.Mask{codec.H264: codec.Supported}
	pipe := fakePipe{name: "dep", in: TypeDataChunk, out: TypeDecodedFrame, env: Main, mask: codec.Mask{codec.H264: codec.Supported}}
	candidates := []Candidate{
		{Name: "video-element", Input: TypeDataChunk, Pipes: []Pipe{pipe}, Renderer: fakeRenderer{name: "video", in: TypeDecodedFrame, env: Main, canvas: false}},
		{Name: "canvas", Input: TypeDataChunk, Pipes: []Pipe{pipe}, Renderer: fakeRenderer{name: "canvas", in: TypeDecodedFrame, env: Main, canvas: true}},
	}
	pl, err := Build(candidates, TypeDataChunk, Main, probe, true)
	require.NoError(t, err)
	require.Equal(t, "canvas", pl.Renderer.Name())
}

func TestPipelineTypeMismatchRejected(t *testing.T) {
	probe := codec.NewMask(codec.Supported)
	mismatched := fakePipe{name: "bad", in: TypeDataChunk, out: TypeVideoTrack, env: Main, mask: codec.NewMask(codec.Supported)}
	second := fakePipe{name: "dec", in: TypeDataChunk, out: TypeDecodedFrame, env: Main, mask: codec.NewMask(codec.Supported)}
	pl := &Pipeline{Pipes: []Pipe{mismatched, second}, Renderer: fakeRenderer{name: "r", in: TypeDecodedFrame, env: Main}}
	err := pl.Validate(Main, probe, TypeDataChunk)
	require.Error(t, err)
}
