package capture

import (
	"errors"
	"testing"
)

type fakeBackend struct {
	frames [][]byte
	errs   []error
	calls  int
}

func (f *fakeBackend) probe() error { return nil }

func (f *fakeBackend) captureRaw() ([]byte, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.frames[i], nil
}

func (f *fakeBackend) cleanup() {}

func TestBaseCapturerChangeDetection(t *testing.T) {
	b := &fakeBackend{frames: [][]byte{
		[]byte("frame one"),
		[]byte("frame one"),
		[]byte("frame two"),
	}}
	c := newBase(b, "")

	_, changed, err := c.Capture()
	if err != nil {
		t.Fatalf("Capture error: %v", err)
	}
	if !changed {
		t.Error("first frame should report changed")
	}

	_, changed, _ = c.Capture()
	if changed {
		t.Error("identical frame should not report changed")
	}

	data, changed, _ := c.Capture()
	if !changed {
		t.Error("different frame should report changed")
	}
	if string(data) != "frame two" {
		t.Errorf("data = %q, want %q", data, "frame two")
	}
}

func TestBaseCapturerReturnsDataWhenUnchanged(t *testing.T) {
	b := &fakeBackend{frames: [][]byte{
		[]byte("frame"),
		[]byte("frame"),
	}}
	c := newBase(b, "")

	c.Capture()
	data, _, err := c.Capture()
	if err != nil {
		t.Fatalf("Capture error: %v", err)
	}
	if string(data) != "frame" {
		t.Error("unchanged frame should still return its data")
	}
}

func TestBaseCapturerPropagatesErrors(t *testing.T) {
	b := &fakeBackend{
		frames: [][]byte{nil, nil},
		errs:   []error{ErrUnavailable, ErrSourceEnded},
	}
	c := newBase(b, "")

	_, _, err := c.Capture()
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}

	_, _, err = c.Capture()
	if !errors.Is(err, ErrSourceEnded) {
		t.Errorf("err = %v, want ErrSourceEnded", err)
	}
}
