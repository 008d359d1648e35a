package sink

import (
	"blurcam/video/source"
)

// Sink defines a destination for annotated frames, such as a window or a video
// file. Frames arrive in stream order.
type Sink interface {
	// Put presents a frame. The caller keeps ownership: the sink *must not*
	// modify the frame and should not hold any references to the underlying
	// Mat after returning.
	Put(f *source.Frame)

	// Close should be called to finalize the Sink.
	Close()
}

// Multi fans every frame out to a list of sinks, in order.
type Multi []Sink

func (m Multi) Put(f *source.Frame) {
	for _, s := range m {
		s.Put(f)
	}
}

func (m Multi) Close() {
	for _, s := range m {
		s.Close()
	}
}
