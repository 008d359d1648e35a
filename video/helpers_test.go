package video

import (
	"image"
	"io"
	"sync"

	"gocv.io/x/gocv"

	"blurcam/video/process"
	"blurcam/video/source"
)

const (
	testCols = 320
	testRows = 240
)

func blankFrame(seq uint64, rows, cols int) *source.Frame {
	f := source.NewFrame(seq)
	f.Mat.Close()
	f.Mat = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
	return f
}

// blockFrame returns a black frame with white squares at the given rects.
func blockFrame(seq uint64, blocks ...image.Rectangle) *source.Frame {
	f := blankFrame(seq, testRows, testCols)
	for _, r := range blocks {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				f.Mat.SetUCharAt(y, x, 255)
			}
		}
	}
	return f
}

// sliceSource replays a fixed list of frames, then returns err (io.EOF when nil).
type sliceSource struct {
	l      sync.Mutex
	frames []*source.Frame
	err    error
	pulled int
}

func (s *sliceSource) Next() (*source.Frame, error) {
	s.l.Lock()
	defer s.l.Unlock()
	if len(s.frames) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	var f *source.Frame
	f, s.frames = s.frames[0], s.frames[1:]
	s.pulled++
	return f, nil
}

func (s *sliceSource) Close() error {
	s.l.Lock()
	defer s.l.Unlock()
	for _, f := range s.frames {
		f.Close()
	}
	s.frames = nil
	return nil
}

// endlessSource produces blank frames of a fixed size forever.
type endlessSource struct {
	rows, cols int
	seq        uint64
}

func (s *endlessSource) Next() (*source.Frame, error) {
	s.seq++
	return blankFrame(s.seq, s.rows, s.cols), nil
}

func (s *endlessSource) Close() error { return nil }

type presented struct {
	seq uint64
	mat gocv.Mat
}

type recordSink struct {
	l      sync.Mutex
	frames []presented
	closed bool
}

func (s *recordSink) Put(f *source.Frame) {
	s.l.Lock()
	defer s.l.Unlock()
	s.frames = append(s.frames, presented{seq: f.Seq, mat: f.Mat.Clone()})
}

func (s *recordSink) Close() {
	s.l.Lock()
	defer s.l.Unlock()
	for _, p := range s.frames {
		p.mat.Close()
	}
	s.closed = true
}

type recordListener struct {
	l          sync.Mutex
	detections []Detection
}

func (r *recordListener) MotionDetected(d Detection) {
	r.l.Lock()
	defer r.l.Unlock()
	r.detections = append(r.detections, d)
}

func (r *recordListener) get() []Detection {
	r.l.Lock()
	defer r.l.Unlock()
	return append([]Detection(nil), r.detections...)
}

func newTestStages(ref *source.Frame) (*process.Motion, *process.Annotator) {
	m, err := process.NewMotion(ref, process.DefaultMotionOptions())
	if err != nil {
		panic(err)
	}
	return m, process.NewAnnotator(process.DefaultAnnotatorOptions())
}
