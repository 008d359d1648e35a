package source

import (
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// VideoCapture reads frames from anything OpenCV can open: a file, a URL or a
// numeric device id.
type VideoCapture struct {
	URI        string
	BlurKernel int

	cap *gocv.VideoCapture
	raw gocv.Mat
	seq uint64
}

func NewVideoCapture(uri string, blurKernel int) (*VideoCapture, error) {
	cap, err := gocv.OpenVideoCapture(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open video capture %v", uri)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, errors.Errorf("video capture %v is not open", uri)
	}
	log.Infof("Opened video capture %v (%vx%v @ %.1f fps)", uri,
		cap.Get(gocv.VideoCaptureFrameWidth), cap.Get(gocv.VideoCaptureFrameHeight), cap.Get(gocv.VideoCaptureFPS))
	return &VideoCapture{
		URI:        uri,
		BlurKernel: blurKernel,
		cap:        cap,
		raw:        gocv.NewMat(),
	}, nil
}

func (v *VideoCapture) Next() (*Frame, error) {
	if ok := v.cap.Read(&v.raw); !ok || v.raw.Empty() {
		log.Infof("Video capture %v ended after %d frames", v.URI, v.seq)
		return nil, io.EOF
	}
	f := NewFrame(v.seq)
	v.seq++
	Prepare(v.raw, &f.Mat, v.BlurKernel)
	return f, nil
}

func (v *VideoCapture) Close() error {
	v.raw.Close()
	return v.cap.Close()
}
