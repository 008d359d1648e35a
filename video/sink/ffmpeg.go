package sink

import (
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"

	"github.com/pillash/mp4util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"blurcam/util"
	"blurcam/video/source"
)

type FFmpegOptions struct {
	Size image.Point
	FPS  int
}

// FFmpegSink pipes raw grayscale frames into an ffmpeg process that encodes
// them as h264.
type FFmpegSink struct {
	path string
	b    chan []byte
	done chan error

	stdin  io.WriteCloser
	cmd    *exec.Cmd
	failed bool
}

func NewFFmpegSink(path string, opts FFmpegOptions) (*FFmpegSink, error) {
	bin, err := util.LocateFFmpeg()
	if err != nil {
		return nil, errors.Wrap(err, "unable to locate ffmpeg binary")
	}
	c := exec.Command(
		bin,
		"-y",
		// Configure ffmpeg to read from the opencv pipe.
		"-f", "rawvideo",
		"-pixel_format", "gray",
		"-video_size", fmt.Sprintf("%dx%d", opts.Size.X, opts.Size.Y),
		"-framerate", fmt.Sprintf("%d", opts.FPS),
		"-i", "-", // Read from stdin.
		// Use h264 encoding with reasonable quality and speed. Note that
		// "preset" can be adjusted if the system is too slow to handle encoding.
		"-c:v", "libx264",
		"-preset", "superfast",
		"-crf", "30",
		"-pix_fmt", "yuv420p",
		// Enable fast-start so videos can be displayed in the browser without
		// full download.
		"-movflags", "+faststart",
		path,
	)
	c.Stderr = os.Stderr

	pipe, err := c.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := c.Start(); err != nil {
		return nil, errors.Wrap(err, "error starting ffmpeg")
	}
	log.Infof("Recording to %v", path)

	f := &FFmpegSink{
		path:  path,
		b:     make(chan []byte, 4),
		done:  make(chan error, 1),
		stdin: pipe,
		cmd:   c,
	}
	go f.loop()
	return f, nil
}

func (f *FFmpegSink) loop() {
	for b := range f.b {
		if f.failed {
			continue
		}
		if _, err := f.stdin.Write(b); err != nil {
			log.Errorf("Error writing to ffmpeg pipe, dropping the rest of %v: %v", f.path, err)
			f.failed = true
		}
	}
	f.stdin.Close()
	log.Infof("Waiting for FFMPEG shutdown.")
	f.done <- f.cmd.Wait()
}

func (f *FFmpegSink) Put(input *source.Frame) {
	f.b <- input.Mat.ToBytes()
}

func (f *FFmpegSink) Close() {
	close(f.b)
	if err := <-f.done; err != nil {
		log.Errorf("FFMPEG exit with status %v", err)
		return
	}
	d, err := mp4util.Duration(f.path)
	if err != nil {
		log.Warnf("Unable to read duration of %v: %v", f.path, err)
		return
	}
	log.Infof("Recording %v complete, %ds", f.path, d)
}

// NewRecording wraps an ffmpeg sink so that irregular motion frames are
// written at a constant rate.
func NewRecording(path string, opts FFmpegOptions) (Sink, error) {
	s, err := NewFFmpegSink(path, opts)
	if err != nil {
		return nil, err
	}
	return NewFPSNormalize(s, opts.FPS), nil
}
