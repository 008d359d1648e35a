package process

import (
	"image"

	"gocv.io/x/gocv"

	"blurcam/video/source"
)

const (
	testCols = 640
	testRows = 480
)

func uniformFrame(seq uint64, v uint8) *source.Frame {
	f := source.NewFrame(seq)
	f.Mat.Close()
	f.Mat = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(v), 0, 0, 0), testRows, testCols, gocv.MatTypeCV8U)
	return f
}

func fillRect(f *source.Frame, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			f.Mat.SetUCharAt(y, x, v)
		}
	}
}

func checkerRect(f *source.Frame, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if (x/2+y/2)%2 == 0 {
				f.Mat.SetUCharAt(y, x, 255)
			} else {
				f.Mat.SetUCharAt(y, x, 0)
			}
		}
	}
}

func nonZero(f *source.Frame, r image.Rectangle) int {
	roi := f.Mat.Region(r)
	defer roi.Close()
	return gocv.CountNonZero(roi)
}
