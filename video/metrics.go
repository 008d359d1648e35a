package video

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FramesIngested  prometheus.Counter
	RegionsDetected prometheus.Counter
	FramesPresented prometheus.Counter
	DetectSeconds   prometheus.Histogram
	State           prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FramesIngested: f.NewCounter(prometheus.CounterOpts{
			Name: "blurcam_frames_ingested_total",
			Help: "Frames pulled from the source, excluding the reference frame.",
		}),
		RegionsDetected: f.NewCounter(prometheus.CounterOpts{
			Name: "blurcam_regions_detected_total",
			Help: "Motion regions emitted by the detector.",
		}),
		FramesPresented: f.NewCounter(prometheus.CounterOpts{
			Name: "blurcam_frames_presented_total",
			Help: "Annotated frames handed to the sink.",
		}),
		DetectSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "blurcam_detect_seconds",
			Help:    "Time spent detecting motion in a single frame.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		State: f.NewGauge(prometheus.GaugeOpts{
			Name: "blurcam_pipeline_state",
			Help: "Pipeline state: 0 running, 1 draining, 2 stopped.",
		}),
	}
}
