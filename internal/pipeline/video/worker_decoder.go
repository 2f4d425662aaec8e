package video

import (
	"github.com/rs/zerolog"

	"github.com/n0remac/streamclient/internal/codec"
	"github.com/n0remac/streamclient/internal/pipeline"
)

// WorkerDecoder is spec.md §5/§9's worker-hosted decode pipe: decode runs
// on a dedicated goroutine, and chunks/frames cross the boundary strictly
// by copy through pipeline.WorkerHost, never by sharing the VideoDecoder's
// internal state with the caller's goroutine.
type WorkerDecoder struct {
	inner *VideoDecoder
	host  *pipeline.WorkerHost[*Chunk, Frame]
	log   zerolog.Logger
}

// NewWorkerDecoder wraps an existing VideoDecoder so its Submit calls are
// dispatched off the caller's goroutine. onFrame is invoked from the
// worker goroutine; callers whose sink is safe under concurrent access
// (sdlSink already serializes SetFrame behind a mutex) may pass it
// directly.
func NewWorkerDecoder(inner *VideoDecoder, queueDepth int, onFrame func(Frame), log zerolog.Logger) *WorkerDecoder {
	w := &WorkerDecoder{inner: inner, log: log.With().Str("component", "worker_video_decoder").Logger()}
	process := func(c *Chunk) (Frame, error) {
		var captured Frame
		inner.OnFrame(func(f Frame) { captured = f })
		err := inner.Submit(c)
		return captured, err
	}
	w.host = pipeline.NewWorkerHost(queueDepth, process, func(f Frame) {
		if f.Image != nil && onFrame != nil {
			onFrame(f)
		}
	}, func(err error) {
		w.log.Warn().Err(err).Msg("worker decode failed")
	})
	return w
}

func (w *WorkerDecoder) Name() string                     { return "WorkerVideoDecoder" }
func (w *WorkerDecoder) InputType() pipeline.IOType        { return pipeline.TypeDataChunk }
func (w *WorkerDecoder) OutputType() pipeline.IOType       { return pipeline.TypeDecodedFrame }
func (w *WorkerDecoder) Environment() pipeline.Environment { return pipeline.Worker }
func (w *WorkerDecoder) CodecMask() codec.Mask             { return w.inner.CodecMask() }

// Submit queues a chunk for the worker goroutine; it never blocks the
// caller (spec.md §5: the main side never awaits the worker).
func (w *WorkerDecoder) Submit(c *Chunk) error {
	w.host.Submit(c)
	return nil
}

// Close stops the worker goroutine.
func (w *WorkerDecoder) Close() { w.host.Close() }
