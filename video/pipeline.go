package video

import (
	"context"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"blurcam/util"
	"blurcam/video/process"
	"blurcam/video/sink"
	"blurcam/video/source"
)

type State int32

const (
	Running State = iota
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// DefaultQueueSize bounds each stage queue. A full queue blocks the stage
// feeding it.
const DefaultQueueSize = 64

// Detection describes one annotated motion region.
type Detection struct {
	Session   string
	Seq       uint64
	Time      time.Time
	Region    process.Region
	FrameSize image.Point
}

// Listener receives every detection after its region has been annotated.
// Listeners run on the annotation stage and must not block.
type Listener interface {
	MotionDetected(d Detection)
}

type PipelineOptions struct {
	QueueSize int
	Metrics   *Metrics
	Listeners []Listener
}

// Pipeline pulls frames from a source, finds motion against the reference
// frame held by the detector, annotates every region and presents the result.
// Detection and annotation run as two independent stages.
type Pipeline struct {
	Session string

	src       source.Source
	motion    *process.Motion
	annotator *process.Annotator
	sink      sink.Sink
	opts      PipelineOptions

	state  int32
	failed *util.Event

	frames, regions *Queue
}

func NewPipeline(src source.Source, motion *process.Motion, annotator *process.Annotator, out sink.Sink, opts PipelineOptions) *Pipeline {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &Pipeline{
		Session:   uuid.New().String(),
		src:       src,
		motion:    motion,
		annotator: annotator,
		sink:      out,
		opts:      opts,
		failed:    util.NewEvent(),
	}
}

// CaptureReference reads the first frame of the source to serve as the fixed
// reference frame.
func CaptureReference(src source.Source) (*source.Frame, error) {
	f, err := src.Next()
	if err != nil {
		return nil, errors.Wrap(err, "failed to capture reference frame")
	}
	log.Infof("Captured reference frame (%dx%d)", f.Mat.Cols(), f.Mat.Rows())
	return f, nil
}

func (p *Pipeline) State() State {
	return State(atomic.LoadInt32(&p.state))
}

func (p *Pipeline) setState(s State) {
	atomic.StoreInt32(&p.state, int32(s))
	p.opts.Metrics.State.Set(float64(s))
	log.WithField("session", p.Session).Infof("Pipeline %v", s)
}

// fail records that a stage hit a fatal error, so no further frames are pulled.
func (p *Pipeline) fail(stage string, err error) {
	log.WithField("session", p.Session).Errorf("%s failed: %v", stage, err)
	p.failed.Notify()
}

// Run drives the pipeline until the source is exhausted, the source fails, the
// context is done or a stage fails. In every case the stages are drained and
// joined before returning. Only stage failures are returned as errors.
func (p *Pipeline) Run(ctx context.Context) error {
	clog := log.WithField("session", p.Session)
	p.frames = NewQueue("frames", p.opts.QueueSize)
	p.regions = NewQueue("regions", p.opts.QueueSize)
	p.setState(Running)

	var wg sync.WaitGroup
	var detectErr, annotateErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		detectErr = p.detectLoop(p.frames, p.regions)
	}()
	go func() {
		defer wg.Done()
		annotateErr = p.annotateLoop(p.regions)
	}()

	var pulled uint64
loop:
	for {
		select {
		case <-ctx.Done():
			clog.Infof("Stopping after %d frames: %v", pulled, ctx.Err())
			break loop
		case <-p.failed.Done():
			break loop
		default:
		}

		f, err := p.src.Next()
		if err == io.EOF {
			clog.Infof("Source exhausted after %d frames", pulled)
			break loop
		} else if err != nil {
			clog.Warnf("Frame acquisition failed after %d frames, treating as end of stream: %v", pulled, err)
			break loop
		}
		pulled++
		p.opts.Metrics.FramesIngested.Inc()
		if err := p.frames.Send(FrameEvent(f)); err != nil {
			f.Close()
			break loop
		}
	}

	p.setState(Draining)
	sendErr := p.frames.Send(Shutdown)
	wg.Wait()
	p.setState(Stopped)

	for _, err := range []error{detectErr, annotateErr, sendErr, p.frames.verifyShutdown(), p.regions.verifyShutdown()} {
		if err != nil {
			return err
		}
	}
	return nil
}

// detectLoop is the detection stage. After a failure it keeps consuming and
// releasing frames until Shutdown arrives.
func (p *Pipeline) detectLoop(in, out *Queue) error {
	var failure error
	for {
		e := in.Recv()
		switch e.Kind {
		case KindShutdown:
			log.Info("Detector shutting down.")
			if err := out.Send(Shutdown); err != nil {
				return err
			}
			return failure

		case KindFrame:
			if failure != nil {
				e.Frame.Close()
				continue
			}
			start := time.Now()
			regions, err := p.motion.Detect(e.Frame)
			p.opts.Metrics.DetectSeconds.Observe(time.Since(start).Seconds())
			if err != nil {
				failure = err
				p.fail("Detector", err)
				e.Frame.Close()
				continue
			}
			if len(regions) == 0 {
				e.Frame.Close()
				continue
			}
			p.opts.Metrics.RegionsDetected.Add(float64(len(regions)))
			for i, r := range regions {
				if err := out.Send(RegionEvent(e.Frame, r, i == len(regions)-1)); err != nil {
					return err
				}
			}

		default:
			if failure == nil {
				failure = errors.Errorf("detector received unexpected %v event", e.Kind)
				p.fail("Detector", failure)
			}
			if e.Frame != nil {
				e.Frame.Close()
			}
		}
	}
}

// annotateLoop is the annotation stage. Frames are presented once all of
// their regions have been drawn.
func (p *Pipeline) annotateLoop(in *Queue) error {
	var failure error
	for {
		e := in.Recv()
		switch e.Kind {
		case KindShutdown:
			log.Info("Annotator shutting down.")
			return failure

		case KindRegion:
			if failure == nil {
				if err := p.annotator.Annotate(e.Frame, e.Region); err != nil {
					failure = errors.Wrapf(err, "frame %d", e.Frame.Seq)
					p.fail("Annotator", failure)
				} else {
					p.notify(e.Frame, e.Region)
				}
			}
			if e.Last {
				if failure == nil {
					p.sink.Put(e.Frame)
					p.opts.Metrics.FramesPresented.Inc()
				}
				e.Frame.Close()
			}

		default:
			if failure == nil {
				failure = errors.Errorf("annotator received unexpected %v event", e.Kind)
				p.fail("Annotator", failure)
			}
			if e.Frame != nil {
				e.Frame.Close()
			}
		}
	}
}

func (p *Pipeline) notify(f *source.Frame, r process.Region) {
	d := Detection{
		Session:   p.Session,
		Seq:       f.Seq,
		Time:      f.Time,
		Region:    r,
		FrameSize: f.Size(),
	}
	for _, l := range p.opts.Listeners {
		l.MotionDetected(d)
	}
}
