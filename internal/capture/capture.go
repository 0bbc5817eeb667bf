// Package capture provides platform-agnostic screen frame acquisition for the
// monitoring loop. Backends shell out to the native screenshot tool the way
// the OS expects; the base capturer adds cheap hash-based change detection.
package capture

import (
	"crypto/md5"
	"errors"
	"os"
)

// Capture error taxonomy. Only ErrPermissionDenied ends a session attempt;
// ErrUnavailable is tick-local and ErrSourceEnded is a graceful stop.
var (
	ErrPermissionDenied = errors.New("screen capture permission denied")
	ErrUnavailable      = errors.New("capture source not producing frames")
	ErrSourceEnded      = errors.New("capture source ended")
)

// Capturer reads still frames from the active display. Capture returns the
// current frame and whether it differs from the previous one; it must not
// mutate source state beyond its own change-detection bookkeeping.
type Capturer interface {
	Capture() (data []byte, changed bool, err error)
	Close()
}

// backend implements platform-specific raw capture.
type backend interface {
	// probe verifies the source can be acquired at all.
	probe() error
	captureRaw() ([]byte, error)
	cleanup()
}

// Acquire obtains the platform capture source. It probes the backend once so
// a missing tool or refused permission surfaces at session start, not on the
// first tick.
func Acquire() (Capturer, error) {
	c := newPlatform()
	if err := c.probe(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// baseCapturer provides shared hash-based change detection.
type baseCapturer struct {
	backend
	lastHash [16]byte
	tempDir  string
}

func newBase(b backend, tempDir string) *baseCapturer {
	return &baseCapturer{backend: b, tempDir: tempDir}
}

func (c *baseCapturer) Capture() ([]byte, bool, error) {
	data, err := c.captureRaw()
	if err != nil {
		return nil, false, err
	}
	// Hash the first 4KB only; enough to notice a redraw.
	hash := md5.Sum(data[:min(len(data), 4096)])
	changed := hash != c.lastHash
	c.lastHash = hash
	return data, changed, nil
}

func (c *baseCapturer) Close() {
	c.cleanup()
	if c.tempDir != "" {
		os.RemoveAll(c.tempDir)
	}
}
