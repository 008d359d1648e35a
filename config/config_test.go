package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if c.DiffThreshold != 25 || c.MinArea != 500 || c.DilateIterations != 2 {
		t.Errorf("detector defaults = %d/%v/%d", c.DiffThreshold, c.MinArea, c.DilateIterations)
	}
	if c.BlurKernel != 17 || c.BlurSigma != 30 || c.SourceBlurKernel != 21 {
		t.Errorf("blur defaults = %d/%v/%d", c.BlurKernel, c.BlurSigma, c.SourceBlurKernel)
	}
	if c.Window {
		t.Error("window should be off by default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"missing uri", func(c *Config) { c.URI = "" }, true},
		{"zero queue", func(c *Config) { c.QueueSize = 0 }, true},
		{"even blur kernel", func(c *Config) { c.BlurKernel = 16 }, true},
		{"even source kernel", func(c *Config) { c.SourceBlurKernel = 20 }, true},
		{"no source blur", func(c *Config) { c.SourceBlurKernel = 0 }, false},
		{"threshold too high", func(c *Config) { c.DiffThreshold = 256 }, true},
		{"negative area", func(c *Config) { c.MinArea = -1 }, true},
		{"negative dilation", func(c *Config) { c.DilateIterations = -1 }, true},
		{"bad port", func(c *Config) { c.Port = 70000 }, true},
		{"record without fps", func(c *Config) { c.RecordPath = "/tmp/x.mp4"; c.RecordFPS = 0 }, true},
		{"inverted hours", func(c *Config) { c.NotificationHoursStart = 20; c.NotificationHoursEnd = 6 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromFileJSON(t *testing.T) {
	path := writeConfig(t, "cam.json", `{"uri": "/videos/gate.mp4", "min_area": 800, "window": true}`)
	c, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if c.URI != "/videos/gate.mp4" || c.MinArea != 800 || !c.Window {
		t.Errorf("config = %+v", c)
	}
	if c.DiffThreshold != 25 {
		t.Errorf("DiffThreshold = %d, want default 25", c.DiffThreshold)
	}
}

func TestFromFileTOML(t *testing.T) {
	path := writeConfig(t, "cam.toml", `
uri = "rtsp://camera/stream"
queue_size = 8
log_level = "debug"
`)
	c, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if c.URI != "rtsp://camera/stream" || c.QueueSize != 8 || c.LogLevel != "debug" {
		t.Errorf("config = %+v", c)
	}
}

func TestFromFileRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "cam.json", `{"blur_kernel": 4}`)
	_, err := FromFile(path)
	if err == nil || !strings.Contains(err.Error(), "blur_kernel") {
		t.Errorf("FromFile error = %v, want blur_kernel error", err)
	}

	path = writeConfig(t, "broken.json", `{"uri": `)
	if _, err := FromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadReloadsOnChange(t *testing.T) {
	path := writeConfig(t, "cam.json", `{"log_level": "info"}`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 16)
	OnChange(func(c *Config) { changed <- c.LogLevel })

	if err := Load(ctx, path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := <-changed; got != "info" {
		t.Errorf("initial level = %v, want info", got)
	}

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"log_level": "debug"}`), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changed:
		if got != "debug" {
			t.Errorf("reloaded level = %v, want debug", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
	if Get().LogLevel != "debug" {
		t.Errorf("Get().LogLevel = %v, want debug", Get().LogLevel)
	}
}

func TestFromFileNotificationAndOutputKeys(t *testing.T) {
	path := writeConfig(t, "cam.toml", `
follow = true
snapshot_dir = "/tmp/snaps"
snapshot_width = 320
notification_hours_start = 7
notification_hours_end = 22
notify_cooldown_sec = 60
`)
	c, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if !c.Follow || c.SnapshotDir != "/tmp/snaps" || c.SnapshotWidth != 320 {
		t.Errorf("output keys = %v/%q/%d", c.Follow, c.SnapshotDir, c.SnapshotWidth)
	}
	if c.NotificationHoursStart != 7 || c.NotificationHoursEnd != 22 || c.NotifyCooldownSec != 60 {
		t.Errorf("notification keys = %d/%d/%d", c.NotificationHoursStart, c.NotificationHoursEnd, c.NotifyCooldownSec)
	}
}
