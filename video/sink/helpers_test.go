package sink

import (
	"time"

	"gocv.io/x/gocv"

	"blurcam/video/source"
)

func grayFrame(seq uint64, t time.Time, v uint8) *source.Frame {
	f := source.NewFrame(seq)
	f.Mat.Close()
	f.Mat = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(v), 0, 0, 0), 120, 160, gocv.MatTypeCV8U)
	f.Time = t
	return f
}

type put struct {
	seq   uint64
	time  time.Time
	pixel uint8
}

type countSink struct {
	puts   []put
	closed bool
}

func (c *countSink) Put(f *source.Frame) {
	c.puts = append(c.puts, put{seq: f.Seq, time: f.Time, pixel: f.Mat.GetUCharAt(0, 0)})
}

func (c *countSink) Close() {
	c.closed = true
}
