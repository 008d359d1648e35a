package util

import (
	"os"
	"os/exec"
)

// LocateFFmpeg finds the ffmpeg binary, preferring the FFMPEG environment
// variable over $PATH.
func LocateFFmpeg() (string, error) {
	if p := os.Getenv("FFMPEG"); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", err
		}
		return p, nil
	}
	return exec.LookPath("ffmpeg")
}
