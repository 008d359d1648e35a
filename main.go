package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"blurcam/config"
	"blurcam/notify"
	"blurcam/serve"
	"blurcam/store"
	"blurcam/video"
	"blurcam/video/process"
	"blurcam/video/sink"
	"blurcam/video/source"
)

func main() {
	cfg := config.Default()
	var cfgPath string

	root := &cobra.Command{
		Use:   "blurcam [video URI or image directory]",
		Short: "Detect motion in a video and show it boxed, timestamped and blurred",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			if len(args) > 0 {
				cfg.URI = args[0]
				changed["uri"] = true
			}
			return run(cmd.Context(), cfgPath, cfg, changed)
		},
		SilenceUsage: true,
	}

	f := root.Flags()
	f.StringVarP(&cfgPath, "config", "c", "", "JSON or TOML config file, reloaded on change")
	f.IntVar(&cfg.Port, "port", cfg.Port, "Port to host web frontend, 0 to disable")
	f.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "Capacity of each stage queue")
	f.BoolVar(&cfg.Window, "window", cfg.Window, "Show annotated frames in a window")
	f.IntVar(&cfg.WindowWaitMs, "window-wait", cfg.WindowWaitMs, "Milliseconds to show each frame, 0 waits for a key")
	f.BoolVar(&cfg.Follow, "follow", cfg.Follow, "Keep waiting for new images in a directory source")
	f.StringVar(&cfg.RecordPath, "record", cfg.RecordPath, "Write annotated frames to this mp4 file")
	f.StringVar(&cfg.SnapshotDir, "snapshots", cfg.SnapshotDir, "Write annotated frames as JPEG files to this directory")
	f.StringVar(&cfg.MySQLDSN, "mysql-dsn", cfg.MySQLDSN, "MySQL DSN for the detection log and web push")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// flagFields maps flag names to the config fields they override.
var flagFields = map[string]func(dst, src *config.Config){
	"uri":         func(d, s *config.Config) { d.URI = s.URI },
	"port":        func(d, s *config.Config) { d.Port = s.Port },
	"queue-size":  func(d, s *config.Config) { d.QueueSize = s.QueueSize },
	"window":      func(d, s *config.Config) { d.Window = s.Window },
	"window-wait": func(d, s *config.Config) { d.WindowWaitMs = s.WindowWaitMs },
	"follow":      func(d, s *config.Config) { d.Follow = s.Follow },
	"record":      func(d, s *config.Config) { d.RecordPath = s.RecordPath },
	"snapshots":   func(d, s *config.Config) { d.SnapshotDir = s.SnapshotDir },
	"mysql-dsn":   func(d, s *config.Config) { d.MySQLDSN = s.MySQLDSN },
	"log-level":   func(d, s *config.Config) { d.LogLevel = s.LogLevel },
}

// resolveConfig layers explicitly set flags over the config file, if any.
func resolveConfig(ctx context.Context, path string, flags config.Config, changed map[string]bool) (*config.Config, error) {
	cfg := flags
	if path != "" {
		if err := config.Load(ctx, path); err != nil {
			return nil, err
		}
		cfg = *config.Get()
		for name, apply := range flagFields {
			if changed[name] {
				apply(&cfg, &flags)
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyLogLevel(c *config.Config) {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Errorf("Ignoring log level: %v", err)
		return
	}
	log.SetLevel(lvl)
}

func openSource(ctx context.Context, cfg *config.Config) (source.Source, error) {
	if st, err := os.Stat(cfg.URI); err == nil && st.IsDir() {
		return source.NewDir(ctx, cfg.URI, source.DirOptions{BlurKernel: cfg.SourceBlurKernel, Follow: cfg.Follow})
	}
	return source.NewVideoCapture(cfg.URI, cfg.SourceBlurKernel)
}

func run(ctx context.Context, cfgPath string, flags config.Config, changed map[string]bool) error {
	cfg, err := resolveConfig(ctx, cfgPath, flags, changed)
	if err != nil {
		return err
	}
	applyLogLevel(cfg)
	if !changed["log-level"] {
		config.OnChange(applyLogLevel)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src, err := openSource(ctx, cfg)
	if err != nil {
		log.Errorf("Fail to open video source: %v", err)
		return err
	}
	defer src.Close()

	ref, err := video.CaptureReference(src)
	if err != nil {
		return err
	}
	motion, err := process.NewMotion(ref, process.MotionOptions{
		DiffThreshold:    cfg.DiffThreshold,
		MinArea:          cfg.MinArea,
		DilateIterations: cfg.DilateIterations,
	})
	if err != nil {
		ref.Close()
		return err
	}
	defer motion.Close()

	aopts := process.DefaultAnnotatorOptions()
	aopts.BlurKernel = cfg.BlurKernel
	aopts.BlurSigma = cfg.BlurSigma
	annotator := process.NewAnnotator(aopts)

	var sinks sink.Multi
	mjpeg := sink.NewMJPEGServer()
	if cfg.Port > 0 {
		sinks = append(sinks, mjpeg.NewStream("default"))
	}
	if cfg.Window {
		sinks = append(sinks, sink.NewWindow("video", cfg.WindowWaitMs))
	}
	if cfg.RecordPath != "" {
		rec, err := sink.NewRecording(cfg.RecordPath, sink.FFmpegOptions{Size: motion.Size(), FPS: cfg.RecordFPS})
		if err != nil {
			return err
		}
		sinks = append(sinks, rec)
	}
	if cfg.SnapshotDir != "" {
		snap, err := sink.NewSnapshot(filepath.Clean(cfg.SnapshotDir), cfg.SnapshotWidth)
		if err != nil {
			return err
		}
		sinks = append(sinks, snap)
	}
	defer sinks.Close()

	feed := serve.NewDetectionFeed()
	listeners := []video.Listener{feed}

	var push *notify.WebPush
	if cfg.MySQLDSN != "" {
		db, err := store.Open(cfg.MySQLDSN)
		if err != nil {
			return err
		}
		dl, err := store.NewDetectionLog(db)
		if err != nil {
			return err
		}
		defer dl.Close()
		listeners = append(listeners, dl)

		push, err = notify.NewWebPush(db, cfg.PushSubscriber)
		if err != nil {
			return err
		}
		listeners = append(listeners, &notify.Notifier{
			Listeners:  []notify.NotifyListener{push},
			HoursStart: cfg.NotificationHoursStart,
			HoursEnd:   cfg.NotificationHoursEnd,
			Cooldown:   time.Duration(cfg.NotifyCooldownSec) * time.Second,
		})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	p := video.NewPipeline(src, motion, annotator, sinks, video.PipelineOptions{
		QueueSize: cfg.QueueSize,
		Metrics:   video.NewMetrics(reg),
		Listeners: listeners,
	})
	log.WithField("session", p.Session).Infof("Processing %v", cfg.URI)

	if cfg.Port > 0 {
		go func() {
			err := serve.Run(ctx, serve.Options{
				Port:     cfg.Port,
				MJPEG:    mjpeg,
				Feed:     feed,
				WebPush:  push,
				Registry: reg,
			})
			if err != nil {
				log.Errorf("Web frontend failed: %v", err)
			}
		}()
	}

	if err := p.Run(ctx); err != nil {
		return errors.Wrap(err, "pipeline failed")
	}
	log.Info("Main finished.")
	return nil
}
