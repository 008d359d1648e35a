package process

import (
	"image"
	"image/color"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"blurcam/video/source"
)

var colorHighlight = color.RGBA{R: 255, G: 255, B: 255, A: 255}

type AnnotatorOptions struct {
	Color     color.RGBA
	Thickness int
	FontScale float64

	// BlurKernel is the side of the privacy blur kernel; it must be odd.
	BlurKernel int
	BlurSigma  float64

	// Now supplies the time printed on each frame.
	Now func() time.Time
}

func DefaultAnnotatorOptions() AnnotatorOptions {
	return AnnotatorOptions{
		Color:      colorHighlight,
		Thickness:  2,
		FontScale:  1,
		BlurKernel: 17,
		BlurSigma:  30,
		Now:        time.Now,
	}
}

// Annotator marks motion regions on a frame: outline, timestamp, then blur.
type Annotator struct {
	opts AnnotatorOptions
}

func NewAnnotator(opts AnnotatorOptions) *Annotator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Annotator{opts: opts}
}

// Annotate draws the region onto the frame in place. Regions outside the frame
// are rejected, never clamped.
func (a *Annotator) Annotate(f *source.Frame, r Region) error {
	if err := r.Validate(f.Bounds()); err != nil {
		return err
	}
	rect := r.Rect()

	gocv.Rectangle(&f.Mat, rect, a.opts.Color, a.opts.Thickness)
	DrawTimestamp(&f.Mat, a.opts.Now(), a.opts.Color, a.opts.FontScale)

	crop := rect.Intersect(f.Bounds())
	roi := f.Mat.Region(crop)
	defer roi.Close()
	blur := roi.Clone()
	defer blur.Close()
	k := a.opts.BlurKernel
	gocv.GaussianBlur(blur, &blur, image.Point{X: k, Y: k}, a.opts.BlurSigma, 0, gocv.BorderDefault)
	blur.CopyTo(&roi)

	log.Debugf("Annotated frame %d at %v", f.Seq, r)
	return nil
}
