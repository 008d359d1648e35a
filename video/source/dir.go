package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// settleDelay is how long the directory must stay quiet after a change before
// new files are read.
const settleDelay = time.Second / 10

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// DirOptions configures a Dir source.
type DirOptions struct {
	BlurKernel int

	// Follow keeps the source open after the existing images are consumed and
	// waits for new files to appear until the context is done.
	Follow bool
}

// Dir replays the image files of a directory in lexical order as frames.
type Dir struct {
	Path string

	ctx     context.Context
	opts    DirOptions
	watcher *fsnotify.Watcher

	seen    map[string]bool
	pending []string
	seq     uint64
}

func NewDir(ctx context.Context, path string, opts DirOptions) (*Dir, error) {
	d := &Dir{
		Path: path,
		ctx:  ctx,
		opts: opts,
		seen: make(map[string]bool),
	}
	if opts.Follow {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, err
		}
		if err := w.Add(path); err != nil {
			w.Close()
			return nil, errors.Wrapf(err, "failed to watch %v", path)
		}
		d.watcher = w
	}
	if err := d.scan(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// scan queues every image file in the directory not returned yet.
func (d *Dir) scan() error {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || d.seen[e.Name()] {
			continue
		}
		if !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, n := range names {
		d.seen[n] = true
	}
	d.pending = append(d.pending, names...)
	return nil
}

func (d *Dir) wait() error {
	for {
		select {
		case <-d.ctx.Done():
			return io.EOF
		case err := <-d.watcher.Errors:
			return err
		case ev := <-d.watcher.Events:
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if err := d.settle(); err != nil {
				return err
			}
			if err := d.scan(); err != nil {
				return err
			}
			if len(d.pending) > 0 {
				return nil
			}
		}
	}
}

// settle returns once no event arrived for settleDelay, letting writers finish.
func (d *Dir) settle() error {
	t := time.NewTimer(settleDelay)
	defer t.Stop()
	for {
		select {
		case <-d.ctx.Done():
			return io.EOF
		case err := <-d.watcher.Errors:
			return err
		case <-d.watcher.Events:
			if !t.Stop() {
				<-t.C
			}
			t.Reset(settleDelay)
		case <-t.C:
			return nil
		}
	}
}

func (d *Dir) Next() (*Frame, error) {
	for {
		if len(d.pending) == 0 {
			if d.watcher == nil {
				return nil, io.EOF
			}
			if err := d.wait(); err != nil {
				return nil, err
			}
		}
		var name string
		name, d.pending = d.pending[0], d.pending[1:]

		path := filepath.Join(d.Path, name)
		raw := gocv.IMRead(path, gocv.IMReadUnchanged)
		if raw.Empty() {
			raw.Close()
			if d.watcher == nil {
				return nil, errors.Errorf("failed to decode image %v", path)
			}
			// Possibly still being written; retry on its next change.
			log.Debugf("Unable to decode %v yet", path)
			delete(d.seen, name)
			continue
		}
		log.Debugf("Read frame %d from %v", d.seq, path)

		f := NewFrame(d.seq)
		d.seq++
		Prepare(raw, &f.Mat, d.opts.BlurKernel)
		raw.Close()
		return f, nil
	}
}

func (d *Dir) Close() error {
	if d.watcher != nil {
		return d.watcher.Close()
	}
	return nil
}
