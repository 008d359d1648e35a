package process

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

var (
	// ErrDimensionMismatch is returned when a frame does not have the size and
	// type of the reference frame.
	ErrDimensionMismatch = errors.New("frame dimensions do not match reference frame")

	// ErrMalformedRegion is returned for regions that are empty or not fully
	// inside the frame. Regions come from the detector, so this is a defect.
	ErrMalformedRegion = errors.New("malformed region")

	// ErrEmptyReference is returned when the reference frame holds no pixels.
	ErrEmptyReference = errors.New("reference frame is empty")
)

// Region is an axis aligned rectangle of motion, in frame coordinates.
type Region struct {
	X, Y          int
	Width, Height int
}

func RegionFromRect(r image.Rectangle) Region {
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) Area() int {
	return r.Width * r.Height
}

// Validate checks that the region is non-empty and lies within bounds.
func (r Region) Validate(bounds image.Rectangle) error {
	if r.Width <= 0 || r.Height <= 0 {
		return errors.Wrapf(ErrMalformedRegion, "%v has non-positive size", r)
	}
	if !r.Rect().In(bounds) {
		return errors.Wrapf(ErrMalformedRegion, "%v is outside frame bounds %v", r, bounds)
	}
	return nil
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}
