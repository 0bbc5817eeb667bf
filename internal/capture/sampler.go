package capture

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder, some screenshot tools emit PNG

	"github.com/nfnt/resize"
)

// Sampler turns raw frames into compact lossy payloads for the analysis
// service. The image is analyzed, never displayed, so the default quality
// favors a small payload over fidelity. The sampler owns no cadence; the
// session calls Sample on its own timer.
type Sampler struct {
	src      Capturer
	maxWidth uint
	quality  int
}

// NewSampler wraps a capture source with downscale/re-encode.
func NewSampler(src Capturer, maxWidth, quality int) *Sampler {
	return &Sampler{src: src, maxWidth: uint(maxWidth), quality: quality}
}

// Sample reads one frame and encodes it as JPEG. The changed flag is the
// source's cheap frame diff; errors pass through from the source untouched.
func (s *Sampler) Sample() ([]byte, bool, error) {
	data, changed, err := s.src.Capture()
	if err != nil {
		return nil, false, err
	}
	return s.encode(data), changed, nil
}

func (s *Sampler) encode(data []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// Backend already produced an encoded image; ship it as-is.
		return data
	}
	if s.maxWidth > 0 && uint(img.Bounds().Dx()) > s.maxWidth {
		img = resize.Resize(s.maxWidth, 0, img, resize.Lanczos3)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return data
	}
	return buf.Bytes()
}

// Close releases the underlying capture source.
func (s *Sampler) Close() {
	s.src.Close()
}
