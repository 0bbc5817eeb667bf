//go:build darwin

package capture

import (
	"bytes"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

type darwinBackend struct{ tempDir string }

func (d *darwinBackend) probe() error {
	if _, err := exec.LookPath("screencapture"); err != nil {
		return ErrPermissionDenied
	}
	return nil
}

func (d *darwinBackend) captureRaw() ([]byte, error) {
	if _, err := exec.LookPath("screencapture"); err != nil {
		return nil, ErrSourceEnded
	}
	tmpFile := filepath.Join(d.tempDir, "frame.jpg")
	cmd := exec.Command("screencapture", "-x", "-t", "jpg", "-m", tmpFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		slog.Debug("screencapture failed", "error", err, "stderr", stderr.String())
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

func (d *darwinBackend) cleanup() {}

// newPlatform creates the macOS screen capturer.
func newPlatform() *baseCapturer {
	tmpDir, err := os.MkdirTemp("", "drivercopilot-frame-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&darwinBackend{tempDir: tmpDir}, tmpDir)
}
