package sink

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func TestSnapshotWritesJPEG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snaps")
	s, err := NewSnapshot(dir, 80)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	defer s.Close()

	ts := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	f := grayFrame(42, ts, 128)
	defer f.Close()
	s.Put(f)

	path := filepath.Join(dir, "20261014-093000-Z_000042.jpg")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("imaging.Open: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 60 {
		t.Errorf("snapshot size = %v, want 80x60", b.Size())
	}
}
