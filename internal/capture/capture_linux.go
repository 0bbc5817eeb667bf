//go:build linux

package capture

import (
	"bytes"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

type linuxBackend struct {
	tempDir string
	tool    string // resolved at probe time
}

func (l *linuxBackend) probe() error {
	for _, tool := range []string{"gnome-screenshot", "scrot"} {
		if _, err := exec.LookPath(tool); err == nil {
			l.tool = tool
			return nil
		}
	}
	slog.Error("no screenshot tool found (install gnome-screenshot or scrot)")
	return ErrPermissionDenied
}

func (l *linuxBackend) captureRaw() ([]byte, error) {
	if _, err := exec.LookPath(l.tool); err != nil {
		return nil, ErrSourceEnded
	}
	tmpFile := filepath.Join(l.tempDir, "frame.jpg")
	var cmd *exec.Cmd
	if l.tool == "gnome-screenshot" {
		cmd = exec.Command("gnome-screenshot", "-f", tmpFile)
	} else {
		cmd = exec.Command("scrot", "-o", tmpFile)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		slog.Debug("screenshot failed", "error", err, "stderr", stderr.String())
		return nil, ErrUnavailable
	}
	data, err := os.ReadFile(tmpFile)
	if err != nil {
		slog.Debug("failed to read frame", "error", err)
		return nil, ErrUnavailable
	}
	os.Remove(tmpFile)
	return data, nil
}

func (l *linuxBackend) cleanup() {}

// newPlatform creates the Linux screen capturer.
func newPlatform() *baseCapturer {
	tmpDir, err := os.MkdirTemp("", "drivercopilot-frame-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&linuxBackend{tempDir: tmpDir}, tmpDir)
}
