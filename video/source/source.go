package source

import (
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Frame is a single grayscale frame travelling through the pipeline. A Frame
// has exactly one owner at a time. Handing it to another stage hands over the
// obligation to Close it.
type Frame struct {
	Mat  gocv.Mat
	Time time.Time
	// Seq is the position of the frame in its stream, starting at zero.
	Seq uint64

	closed bool
}

// NewFrame allocates an empty frame stamped with the current time.
func NewFrame(seq uint64) *Frame {
	return &Frame{
		Mat:  gocv.NewMat(),
		Time: time.Now(),
		Seq:  seq,
	}
}

func (f *Frame) Close() {
	if f.closed {
		panic("frame already closed")
	}
	f.closed = true
	f.Mat.Close()
}

// Size returns the frame dimensions as (cols, rows).
func (f *Frame) Size() image.Point {
	return image.Point{X: f.Mat.Cols(), Y: f.Mat.Rows()}
}

// Bounds returns the rectangle covering the whole frame.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rectangle{Max: f.Size()}
}

// Source defines an ordered stream of preprocessed grayscale frames, such as a
// camera or a video file.
type Source interface {
	// Next blocks until the next frame is available. The caller owns the
	// returned frame. Next returns io.EOF once the stream has ended; any other
	// error also ends the stream.
	Next() (*Frame, error)

	// Close disconnects from the source and frees up all resources.
	Close() error
}

// DefaultBlurKernel is the side of the Gaussian kernel applied to every frame
// before it enters the pipeline.
const DefaultBlurKernel = 21

// Prepare converts a decoded frame to single channel grayscale and smooths it
// with a kernel x kernel Gaussian blur (sigma derived from the kernel size).
func Prepare(raw gocv.Mat, dst *gocv.Mat, kernel int) {
	switch raw.Channels() {
	case 3:
		gocv.CvtColor(raw, dst, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(raw, dst, gocv.ColorBGRAToGray)
	default:
		raw.CopyTo(dst)
	}
	if kernel > 0 {
		gocv.GaussianBlur(*dst, dst, image.Point{X: kernel, Y: kernel}, 0, 0, gocv.BorderDefault)
	}
}
