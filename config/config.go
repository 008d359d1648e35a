package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultURI is played when no video source is configured.
const DefaultURI = "http://commondatastorage.googleapis.com/gtv-videos-bucket/sample/ElephantsDream.mp4"

type Config struct {
	URI       string `json:"uri" toml:"uri"`
	QueueSize int    `json:"queue_size" toml:"queue_size"`

	// Follow keeps a directory source waiting for new images.
	Follow bool `json:"follow" toml:"follow"`

	SourceBlurKernel int     `json:"source_blur_kernel" toml:"source_blur_kernel"`
	DiffThreshold    int     `json:"diff_threshold" toml:"diff_threshold"`
	MinArea          float64 `json:"min_area" toml:"min_area"`
	DilateIterations int     `json:"dilate_iterations" toml:"dilate_iterations"`
	BlurKernel       int     `json:"blur_kernel" toml:"blur_kernel"`
	BlurSigma        float64 `json:"blur_sigma" toml:"blur_sigma"`

	// Port hosts the web frontend; zero disables it.
	Port int `json:"port" toml:"port"`

	Window       bool `json:"window" toml:"window"`
	WindowWaitMs int  `json:"window_wait_ms" toml:"window_wait_ms"`

	RecordPath    string `json:"record_path" toml:"record_path"`
	RecordFPS     int    `json:"record_fps" toml:"record_fps"`
	SnapshotDir   string `json:"snapshot_dir" toml:"snapshot_dir"`
	SnapshotWidth int    `json:"snapshot_width" toml:"snapshot_width"`

	// MySQLDSN enables the detection log and web push subscriptions.
	MySQLDSN       string `json:"mysql_dsn" toml:"mysql_dsn"`
	PushSubscriber string `json:"push_subscriber" toml:"push_subscriber"`

	// Notifications are suppressed outside [NotificationHoursStart, NotificationHoursEnd).
	NotificationHoursStart int `json:"notification_hours_start" toml:"notification_hours_start"`
	NotificationHoursEnd   int `json:"notification_hours_end" toml:"notification_hours_end"`
	NotifyCooldownSec      int `json:"notify_cooldown_sec" toml:"notify_cooldown_sec"`

	LogLevel string `json:"log_level" toml:"log_level"`
}

func Default() Config {
	return Config{
		URI:                    DefaultURI,
		QueueSize:              64,
		SourceBlurKernel:       21,
		DiffThreshold:          25,
		MinArea:                500,
		DilateIterations:       2,
		BlurKernel:             17,
		BlurSigma:              30,
		Port:                   8080,
		Window:                 false,
		RecordFPS:              15,
		SnapshotWidth:          0,
		NotificationHoursStart: 0,
		NotificationHoursEnd:   24,
		NotifyCooldownSec:      300,
		LogLevel:               "info",
	}
}

func (c *Config) Validate() error {
	if c.URI == "" {
		return errors.New("uri is required")
	}
	if c.QueueSize < 1 {
		return errors.Errorf("queue_size must be at least 1, got %d", c.QueueSize)
	}
	if c.SourceBlurKernel < 0 || (c.SourceBlurKernel > 0 && c.SourceBlurKernel%2 == 0) {
		return errors.Errorf("source_blur_kernel must be zero or odd, got %d", c.SourceBlurKernel)
	}
	if c.DiffThreshold < 1 || c.DiffThreshold > 255 {
		return errors.Errorf("diff_threshold must be within [1, 255], got %d", c.DiffThreshold)
	}
	if c.MinArea < 0 {
		return errors.Errorf("min_area must not be negative, got %v", c.MinArea)
	}
	if c.DilateIterations < 0 {
		return errors.Errorf("dilate_iterations must not be negative, got %d", c.DilateIterations)
	}
	if c.BlurKernel < 1 || c.BlurKernel%2 == 0 {
		return errors.Errorf("blur_kernel must be odd and positive, got %d", c.BlurKernel)
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	if c.RecordPath != "" && c.RecordFPS <= 0 {
		return errors.Errorf("record_fps must be positive, got %d", c.RecordFPS)
	}
	if c.NotificationHoursStart < 0 || c.NotificationHoursEnd > 24 || c.NotificationHoursStart > c.NotificationHoursEnd {
		return errors.Errorf("invalid notification hours [%d, %d)", c.NotificationHoursStart, c.NotificationHoursEnd)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// FromFile reads a JSON or TOML (by extension) config file on top of the
// defaults.
func FromFile(path string) (*Config, error) {
	config := Default()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.NewDecoder(f).Decode(&config)
	default:
		err = json.NewDecoder(f).Decode(&config)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %v", path)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %v", path)
	}
	log.Infof("Loaded configuration: %v", spew.Sdump(config))
	return &config, nil
}
