package video

import (
	"fmt"

	"blurcam/video/process"
	"blurcam/video/source"
)

type EventKind int

const (
	// KindFrame carries a frame to be searched for motion.
	KindFrame EventKind = iota
	// KindRegion carries one motion region together with its frame.
	KindRegion
	// KindShutdown is the end-of-work sentinel. It carries no payload.
	KindShutdown
)

func (k EventKind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindRegion:
		return "region"
	case KindShutdown:
		return "shutdown"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is the unit passed between pipeline stages.
type Event struct {
	Kind   EventKind
	Frame  *source.Frame
	Region process.Region
	// Last marks the final region event of its frame. Whoever receives it
	// takes over closing the frame.
	Last bool
}

// Shutdown is the sentinel sent exactly once on every stage queue.
var Shutdown = Event{Kind: KindShutdown}

func FrameEvent(f *source.Frame) Event {
	return Event{Kind: KindFrame, Frame: f}
}

func RegionEvent(f *source.Frame, r process.Region, last bool) Event {
	return Event{Kind: KindRegion, Frame: f, Region: r, Last: last}
}
