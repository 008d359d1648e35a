package process

import (
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"
)

// TimestampLayout renders as e.g. "Tuesday 14 October 2026 09:41:07PM".
const TimestampLayout = "Monday 02 January 2006 03:04:05PM"

// DrawTimestamp draws the given time near the bottom left corner of the image.
func DrawTimestamp(img *gocv.Mat, t time.Time, c color.RGBA, scale float64) {
	pad := 10
	gocv.PutText(img, t.Format(TimestampLayout), image.Point{X: pad, Y: img.Rows() - pad}, gocv.FontHersheySimplex, scale, c, 1)
}
