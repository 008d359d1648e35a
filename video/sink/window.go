package sink

import (
	"gocv.io/x/gocv"

	"blurcam/video/source"
)

// Window shows frames in a desktop window. With a zero wait each frame is held
// until 'q' or 'k' is pressed.
type Window struct {
	window  *gocv.Window
	wait    int
	sizeSet bool
}

func NewWindow(name string, waitMs int) *Window {
	return &Window{
		window: gocv.NewWindow(name),
		wait:   waitMs,
	}
}

// advance reports whether a WaitKey result moves on to the next frame.
func advance(key, wait int) bool {
	return key == 'q' || key == 'k' || wait > 0
}

func (w *Window) Put(f *source.Frame) {
	if !w.sizeSet {
		w.window.ResizeWindow(f.Mat.Cols(), f.Mat.Rows())
		w.sizeSet = true
	}
	w.window.IMShow(f.Mat)
	for !advance(w.window.WaitKey(w.wait), w.wait) {
	}
}

func (w *Window) Close() {
	w.window.Close()
}
