// Package decode implements the Decoder collaborator the worker pool calls:
// a blocking, thread-safe decode(filepath) and a cheap read_header(filepath)
// used only at Add time by the directory scanner. It is adapted from the
// teacher's internal/encode/decode.go (itself built on
// github.com/gen2brain/webp's pure-Go WebP codec), generalized from
// "decode known bytes in a known format" to "sniff a file on disk and
// produce a resampled mipmap pyramid."
package decode

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/webp"

	"github.com/halvardh/streamview/internal/pyramid"
	"github.com/halvardh/streamview/internal/streamer"
)

// ErrDecodeFailed mirrors the spec's DecodeFailed error kind: the file
// exists but could not be decoded.
var ErrDecodeFailed = errors.New("decode: failed")

// ErrNotAnImage mirrors NotAnImage: the extension/content is not a
// recognized image format. Only used by ReadHeader, called by the directory
// scanner before a path ever reaches the streamer.
var ErrNotAnImage = errors.New("decode: not an image")

// Mode selects which pyramid generation strategy a Decoder uses.
type Mode int

const (
	// Photographic uses the sRGB-correct box filter (pyramid.Generate),
	// appropriate for photos and other continuous-tone content.
	Photographic Mode = iota
	// Iconographic uses nearest-neighbour (pyramid.GenerateFast),
	// appropriate for flat-color icons where aliasing isn't a concern.
	Iconographic
)

// FileDecoder implements streamer.Decoder by reading an image file from
// disk, decoding it with the standard library (JPEG/PNG) or
// github.com/gen2brain/webp (WebP), converting to *image.RGBA, and handing
// the result to the requested pyramid generation strategy. It holds no
// mutable state, so one FileDecoder instance is safe to share across every
// worker goroutine.
type FileDecoder struct {
	Mode Mode
}

// NewFileDecoder constructs a FileDecoder using the photographic box-filter
// path by default.
func NewFileDecoder() *FileDecoder {
	return &FileDecoder{Mode: Photographic}
}

// Decode reads and decodes path, returning its full mipmap pyramid. On any
// failure it logs nothing itself (the caller decides whether/how to
// surface it) and returns a nil slice, matching the spec's "empty result on
// decode failure" contract — no error crosses the worker/result-queue
// boundary.
func (d *FileDecoder) Decode(path string) []pyramid.Level {
	img, err := decodeFile(path)
	if err != nil {
		return nil
	}

	rgba := toRGBA(img)

	if d.Mode == Iconographic {
		return pyramid.GenerateFast(rgba)
	}
	return pyramid.Generate(rgba)
}

// ReadHeader performs a cheap, non-allocating read of just the image
// dimensions via image.DecodeConfig, without decoding pixel data. Called
// only by the directory scanner at add time.
func (d *FileDecoder) ReadHeader(path string) (w, h int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s: %v", ErrNotAnImage, path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s: %v", ErrNotAnImage, path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// decodeFile dispatches to the standard library or gen2brain/webp based on
// file extension, matching the teacher's DecodeImage switch but reading
// from disk instead of an in-memory buffer.
func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		img, err := png.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, path, err)
		}
		return img, nil
	case ".jpg", ".jpeg":
		img, err := jpeg.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, path, err)
		}
		return img, nil
	case ".webp":
		img, err := webp.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, path, err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("%w: %s: unrecognized extension", ErrDecodeFailed, path)
	}
}

// toRGBA converts any decoded image.Image to *image.RGBA, the format every
// downstream pyramid/cache/GPU-upload step assumes. Already-RGBA images are
// returned as-is to avoid a needless copy.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// assert at compile time that FileDecoder satisfies streamer.Decoder.
var _ streamer.Decoder = (*FileDecoder)(nil)
