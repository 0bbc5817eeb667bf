//go:build windows

package capture

import (
	"log/slog"
	"os"
)

type windowsBackend struct{ tempDir string }

func (w *windowsBackend) probe() error {
	// TODO: Implement using Windows GDI or DXGI
	slog.Warn("Windows screen capture not yet implemented")
	return ErrPermissionDenied
}

func (w *windowsBackend) captureRaw() ([]byte, error) {
	return nil, ErrUnavailable
}

func (w *windowsBackend) cleanup() {}

// newPlatform creates the Windows screen capturer.
func newPlatform() *baseCapturer {
	tmpDir, err := os.MkdirTemp("", "drivercopilot-frame-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&windowsBackend{tempDir: tmpDir}, tmpDir)
}
