package ocr

// Progress is one frame-processing progress event emitted during extraction.
type Progress struct {
	Frame       int
	FramesTotal int
	Percent     float64
}

// ProgressStream turns the extractor's progress callback into an event
// channel a caller can consume from its own goroutine. Events are dropped
// rather than blocking the extractor when the consumer lags; percent values
// are already monotonic per pass, so a dropped event loses no information the
// next one does not carry.
type ProgressStream struct {
	events chan Progress
}

// NewProgressStream returns a stream with the given buffer size.
func NewProgressStream(buffer int) *ProgressStream {
	if buffer < 1 {
		buffer = 1
	}
	return &ProgressStream{events: make(chan Progress, buffer)}
}

// Func returns the callback to hand to Extract.
func (s *ProgressStream) Func() ProgressFunc {
	return func(frame, framesTotal int, percent float64) {
		select {
		case s.events <- Progress{Frame: frame, FramesTotal: framesTotal, Percent: percent}:
		default:
		}
	}
}

// Events returns the receive side of the stream.
func (s *ProgressStream) Events() <-chan Progress {
	return s.events
}

// Close ends the stream once extraction has returned. It must not be called
// while Extract may still emit events.
func (s *ProgressStream) Close() {
	close(s.events)
}
