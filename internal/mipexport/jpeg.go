package mipexport

import (
	"bytes"
	"image"
	"image/jpeg"
)

// JPEGEncoder encodes a mip level as JPEG.
type JPEGEncoder struct {
	Quality int // 1-100, default 85
}

func (e *JPEGEncoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.clampedQuality()}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// clampedQuality defaults an unset Quality to 85 and clamps any value a
// CLI's -quality flag (cmd/mipdump, 1-100) could hand it into the range
// image/jpeg actually supports, so a typo'd flag degrades to a valid
// encode instead of a surprising artifact.
func (e *JPEGEncoder) clampedQuality() int {
	switch {
	case e.Quality <= 0:
		return 85
	case e.Quality > 100:
		return 100
	default:
		return e.Quality
	}
}

func (e *JPEGEncoder) Format() string        { return "jpeg" }
func (e *JPEGEncoder) FileExtension() string { return ".jpg" }
