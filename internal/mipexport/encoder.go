// Package mipexport writes cached or freshly generated mipmap images to disk
// for manual inspection. It is a debug tool only: nothing in the streamer or
// cache ever reads these files back, so this is not cache persistence.
package mipexport

import (
	"fmt"
	"image"
)

// Encoder encodes a single mipmap image into file bytes.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
	Format() string
	FileExtension() string
}

// NewEncoder creates an encoder for the given format and quality (quality is
// only consulted by lossy formats).
func NewEncoder(format string, quality int) (Encoder, error) {
	switch format {
	case "jpeg", "jpg":
		return &JPEGEncoder{Quality: quality}, nil
	case "png":
		return &PNGEncoder{}, nil
	case "webp":
		return &WebPEncoder{Quality: quality}, nil
	default:
		return nil, fmt.Errorf("mipexport: unsupported format %q (supported: jpeg, png, webp)", format)
	}
}
