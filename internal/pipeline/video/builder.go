package video

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/n0remac/streamclient/internal/codec"
	"github.com/n0remac/streamclient/internal/pipeline"
)

// Built is the instantiated pipeline plus handles needed to feed it at
// runtime (attach a track, submit data chunks, drive the render loop).
type Built struct {
	Pipeline *pipeline.Pipeline

	// TrackProcessor is set when a track candidate won; Depacketizer and
	// Decoder are set together when a data candidate won.
	TrackProcessor *TrackProcessor
	Depacketizer   *Depacketizer
	Decoder        *VideoDecoder

	Canvas *CanvasRenderer
	Video  *VideoElementRenderer
}

// BuildPipeline implements spec.md §4.4's priority list. inputType is
// TypeVideoTrack when the transport exposes a live WebRTC media track, or
// TypeDataChunk when falling back to the WebSocket transport's data-mode
// video. width/height size the renderer window.
func BuildPipeline(inputType pipeline.IOType, family codec.Family, probe codec.Mask, forceCanvas bool, width, height int32, log zerolog.Logger) (*Built, error) {
	dep := NewDepacketizer(family)
	dec, decErr := NewVideoDecoder(family, log)

	canvas, canvasErr := NewCanvasRenderer(width, height, log)
	videoEl, videoErr := NewVideoElementRenderer(width, height, log)

	var candidates []pipeline.Candidate
	var tp *TrackProcessor
	if decErr == nil {
		tp = NewTrackProcessor(dep, dec, log)
	}

	// There is no browser WebCodecs-equivalent hardware-decode attach point
	// on this SDL-backed client, so spec.md §4.4 candidate 1 ("videotrack
	// native attach") and candidate 2 ("videotrack -> processor -> canvas")
	// both resolve to the same MediaStreamTrackProcessor pipe here; they
	// differ only in which renderer they terminate at, preserving the
	// priority order (video element preferred over canvas).
	if tp != nil && videoErr == nil {
		candidates = append(candidates, pipeline.Candidate{
			Name:     "videotrack-processor-video-element",
			Input:    pipeline.TypeVideoTrack,
			Pipes:    []pipeline.Pipe{tp},
			Renderer: videoEl,
		})
	}
	if tp != nil && canvasErr == nil {
		candidates = append(candidates, pipeline.Candidate{
			Name:     "videotrack-processor-canvas",
			Input:    pipeline.TypeVideoTrack,
			Pipes:    []pipeline.Pipe{tp},
			Renderer: canvas,
		})
	}
	if decErr == nil && videoErr == nil {
		candidates = append(candidates, pipeline.Candidate{
			Name:     "data-decode-video-element",
			Input:    pipeline.TypeDataChunk,
			Pipes:    []pipeline.Pipe{dep, dec},
			Renderer: videoEl,
		})
	}
	if decErr == nil && canvasErr == nil {
		candidates = append(candidates, pipeline.Candidate{
			Name:     "data-decode-canvas",
			Input:    pipeline.TypeDataChunk,
			Pipes:    []pipeline.Pipe{dep, dec},
			Renderer: canvas,
		})
	}

	pl, err := pipeline.Build(candidates, inputType, pipeline.Main, probe, forceCanvas)
	if err != nil {
		return nil, fmt.Errorf("no supported video renderer found: %w", err)
	}

	built := &Built{Pipeline: pl}
	switch r := pl.Renderer.(type) {
	case *CanvasRenderer:
		built.Canvas = canvas
		dec.OnFrame(r.SetFrame)
		if videoEl != nil {
			_ = videoEl.Close()
		}
	case *VideoElementRenderer:
		built.Video = videoEl
		dec.OnFrame(r.SetFrame)
		if canvas != nil {
			_ = canvas.Close()
		}
	}
	if len(pl.Pipes) > 0 {
		if winner, ok := pl.Pipes[0].(*TrackProcessor); ok {
			built.TrackProcessor = winner
		}
		if pl.Pipes[0] == pipeline.Pipe(dep) {
			built.Depacketizer = dep
			if len(pl.Pipes) > 1 {
				built.Decoder = dec
			}
		}
	}
	return built, nil
}
