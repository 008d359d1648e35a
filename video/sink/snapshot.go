package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"

	"blurcam/video/source"
)

// FileTimeLayout defines the time portion of snapshot filenames.
// See https://golang.org/src/time/format.go.
const FileTimeLayout = "20060102-150405-Z0700"

// Snapshot writes every frame to a directory as a JPEG file.
type Snapshot struct {
	Dir string
	// MaxWidth downscales wider frames, keeping the aspect ratio. Zero keeps
	// the original size.
	MaxWidth int
}

func NewSnapshot(dir string, maxWidth int) (*Snapshot, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Snapshot{Dir: dir, MaxWidth: maxWidth}, nil
}

func (s *Snapshot) path(f *source.Frame) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%06d.jpg", f.Time.Format(FileTimeLayout), f.Seq))
}

func (s *Snapshot) Put(f *source.Frame) {
	img, err := f.Mat.ToImage()
	if err != nil {
		log.Errorf("Failed to convert frame %d for snapshot: %v", f.Seq, err)
		return
	}
	if s.MaxWidth > 0 && img.Bounds().Dx() > s.MaxWidth {
		img = imaging.Resize(img, s.MaxWidth, 0, imaging.Lanczos)
	}
	path := s.path(f)
	if err := imaging.Save(img, path, imaging.JPEGQuality(90)); err != nil {
		log.Errorf("Failed to write snapshot %v: %v", path, err)
		return
	}
	log.Debugf("Snapshot written to %v", path)
}

func (s *Snapshot) Close() {}
