package process

import (
	"image"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"blurcam/video/source"
)

// MotionOptions tunes the background subtraction.
type MotionOptions struct {
	// DiffThreshold is the smallest absolute intensity difference (0-255) that
	// marks a pixel as foreground.
	DiffThreshold int
	// MinArea is the smallest contour area, in pixels, reported as motion.
	MinArea float64
	// DilateIterations is the number of 3x3 dilation passes over the mask.
	DilateIterations int
}

func DefaultMotionOptions() MotionOptions {
	return MotionOptions{
		DiffThreshold:    25,
		MinArea:          500,
		DilateIterations: 2,
	}
}

// Motion finds regions of a frame that differ from a fixed reference frame.
// It is not safe for concurrent use; scratch buffers are reused between calls.
type Motion struct {
	opts MotionOptions
	ref  *source.Frame

	delta, thresh gocv.Mat
	kernel        gocv.Mat
}

// NewMotion takes ownership of the reference frame; it is closed by Close.
func NewMotion(ref *source.Frame, opts MotionOptions) (*Motion, error) {
	if ref == nil || ref.Mat.Empty() {
		return nil, ErrEmptyReference
	}
	if ref.Mat.Channels() != 1 {
		return nil, errors.Errorf("reference frame must be single channel, got %d channels", ref.Mat.Channels())
	}
	return &Motion{
		opts:   opts,
		ref:    ref,
		delta:  gocv.NewMat(),
		thresh: gocv.NewMat(),
		// Same element OpenCV substitutes when no kernel is given.
		kernel: gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3}),
	}, nil
}

// Size returns the dimensions every frame must have.
func (m *Motion) Size() image.Point {
	return m.ref.Size()
}

// Check verifies that the frame is compatible with the reference frame.
func (m *Motion) Check(f *source.Frame) error {
	if f.Size() != m.ref.Size() || f.Mat.Type() != m.ref.Mat.Type() {
		return errors.Wrapf(ErrDimensionMismatch, "frame %d is %v (type %v), reference is %v (type %v)",
			f.Seq, f.Size(), f.Mat.Type(), m.ref.Size(), m.ref.Mat.Type())
	}
	return nil
}

// Detect returns the motion regions of the frame in contour order. The frame
// is only read.
func (m *Motion) Detect(f *source.Frame) ([]Region, error) {
	if err := m.Check(f); err != nil {
		return nil, err
	}

	gocv.AbsDiff(m.ref.Mat, f.Mat, &m.delta)
	// Binary thresholding keeps values strictly above thresh.
	gocv.Threshold(m.delta, &m.thresh, float32(m.opts.DiffThreshold-1), 255, gocv.ThresholdBinary)
	for i := 0; i < m.opts.DilateIterations; i++ {
		gocv.Dilate(m.thresh, &m.thresh, m.kernel)
	}

	contours := gocv.FindContours(m.thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var regions []Region
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		if gocv.ContourArea(c) < m.opts.MinArea {
			continue
		}
		r := RegionFromRect(gocv.BoundingRect(c))
		log.Debugf("Motion in frame %d at %v", f.Seq, r)
		regions = append(regions, r)
	}
	return regions, nil
}

func (m *Motion) Close() {
	m.delta.Close()
	m.thresh.Close()
	m.kernel.Close()
	m.ref.Close()
}
