package mipexport

import (
	"bytes"
	"image"

	"github.com/chai2010/webp"
)

// WebPEncoder encodes a mip level as WebP using chai2010/webp (cgo libwebp
// bindings). This is a separate library from the gen2brain/webp decoder the
// image decoder uses (internal/decode): that one is a pure-Go WASM decode
// path, this one is an encode-only cgo binding — the two don't overlap.
type WebPEncoder struct {
	Quality int // 1-100, default 85
}

func (e *WebPEncoder) Encode(img image.Image) ([]byte, error) {
	quality := float32(e.Quality)
	if quality <= 0 {
		quality = 85
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *WebPEncoder) Format() string        { return "webp" }
func (e *WebPEncoder) FileExtension() string { return ".webp" }
