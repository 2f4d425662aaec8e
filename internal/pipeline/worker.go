package pipeline

// WorkerHost implements spec.md §5/§9's worker-hosted decode relation: a
// message-passing duplex where the main side forwards upstream inputs by
// copy and the worker side forwards results back, with no other shared
// state between the two goroutines.
type WorkerHost[In, Out any] struct {
	process  func(In) (Out, error)
	onResult func(Out)
	onError  func(error)
	in       chan In
	quit     chan struct{}
}

// NewWorkerHost starts the worker goroutine immediately. process runs on
// the worker side; onResult/onError are invoked on the same worker
// goroutine, so callers that need main-side state (e.g. a renderer) must
// hop back via their own channel or mutex.
func NewWorkerHost[In, Out any](queueDepth int, process func(In) (Out, error), onResult func(Out), onError func(error)) *WorkerHost[In, Out] {
	h := &WorkerHost[In, Out]{
		process:  process,
		onResult: onResult,
		onError:  onError,
		in:       make(chan In, queueDepth),
		quit:     make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *WorkerHost[In, Out]) run() {
	for {
		select {
		case <-h.quit:
			return
		case v := <-h.in:
			out, err := h.process(v)
			if err != nil {
				if h.onError != nil {
					h.onError(err)
				}
				continue
			}
			if h.onResult != nil {
				h.onResult(out)
			}
		}
	}
}

// Submit copies in onto the worker's inbound queue. If the queue is full
// (the worker is behind), the message is dropped rather than blocking the
// main scheduling context, matching spec.md §5's single-threaded
// cooperative model: the main side never awaits the worker.
func (h *WorkerHost[In, Out]) Submit(in In) {
	select {
	case h.in <- in:
	default:
	}
}

// Close stops the worker goroutine. Pending queued inputs are discarded.
func (h *WorkerHost[In, Out]) Close() {
	close(h.quit)
}
