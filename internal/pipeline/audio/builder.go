package audio

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/n0remac/streamclient/internal/codec"
	"github.com/n0remac/streamclient/internal/pipeline"
)

// Built is the instantiated audio pipeline plus the handles needed to feed
// it at runtime.
type Built struct {
	Pipeline       *pipeline.Pipeline
	TrackProcessor *TrackProcessor
	Decoder        *Decoder
	Sink           *Sink
}

// BuildPipeline implements spec.md §4.6: a track-ingest path (audio track
// attached directly) or a data-chunk path (Opus decode -> sink), selected
// the same way video.BuildPipeline picks between its candidates.
func BuildPipeline(inputType pipeline.IOType, sampleRate, channels int, playLocal bool, log zerolog.Logger) (*Built, error) {
	dec, decErr := NewDecoder(sampleRate, channels, log)
	sink, sinkErr := NewSink(channels, sampleRate, playLocal, log)

	var candidates []pipeline.Candidate
	if decErr == nil && sinkErr == nil {
		tp := NewTrackProcessor(dec, log)
		candidates = append(candidates, pipeline.Candidate{
			Name:     "audiotrack-decode-sink",
			Input:    pipeline.TypeVideoTrack,
			Pipes:    []pipeline.Pipe{tp},
			Renderer: sink,
		})
		candidates = append(candidates, pipeline.Candidate{
			Name:     "data-decode-sink",
			Input:    pipeline.TypeDataChunk,
			Pipes:    []pipeline.Pipe{Passthrough{}, dec},
			Renderer: sink,
		})
	}

	probe := codec.NewMask(codec.Supported)
	pl, err := pipeline.Build(candidates, inputType, pipeline.Main, probe, false)
	if err != nil {
		return nil, fmt.Errorf("no supported audio sink found: %w", err)
	}

	dec.OnSamples(func(s Samples) {
		if qErr := sink.Queue(s); qErr != nil {
			log.Warn().Err(qErr).Msg("audio queue failed")
		}
	})

	built := &Built{Pipeline: pl, Decoder: dec, Sink: sink}
	if len(pl.Pipes) > 0 {
		if tp, ok := pl.Pipes[0].(*TrackProcessor); ok {
			built.TrackProcessor = tp
		}
	}
	return built, nil
}
