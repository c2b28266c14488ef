package pyramid

import (
	"image"
	"sync"
)

// rgbaPoolKey identifies a pool by image dimensions.
type rgbaPoolKey struct {
	w, h int
}

// rgbaPools maps (width, height) → *sync.Pool of *image.RGBA. The smallest
// mip levels (1x1 up to a few dozen pixels per axis) recur across every
// image a directory viewer decodes, so pooling by exact size avoids
// reallocating those small buffers on every pyramid generation. Using
// sync.Map avoids a mutex on the hot path.
//
// Unlike a fixed tile size shared by every job in a batch conversion, a
// directory of photos has as many distinct full-resolution sizes as it has
// distinct source images, so the key space here is open-ended rather than
// "1-2 sizes per run". maxPooledDim bounds it: only buffers at or below
// that size are pooled, since those are the ones LevelSizes guarantees
// recur (every pyramid bottoms out through the same halved sequence);
// full-resolution buffers are almost never the same size twice and would
// just grow the pool without ever being reused.
var rgbaPools sync.Map

// maxPooledDim is the largest width or height GetRGBA/PutRGBA will pool.
// Chosen well above the typical on-screen thumbnail size so every mip level
// a viewer actually keeps resident benefits from pooling, while the
// rarely-repeated full-resolution level is left to the garbage collector.
const maxPooledDim = 512

// GetRGBA returns a zeroed *image.RGBA from the pool, or allocates a new one.
// The returned image has Rect (0,0)-(w,h) with all pixels set to zero.
func GetRGBA(w, h int) *image.RGBA {
	if w <= maxPooledDim && h <= maxPooledDim {
		key := rgbaPoolKey{w, h}
		if p, ok := rgbaPools.Load(key); ok {
			if v := p.(*sync.Pool).Get(); v != nil {
				img := v.(*image.RGBA)
				clear(img.Pix)
				return img
			}
		}
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// PutRGBA returns an *image.RGBA to the pool for reuse, unless it exceeds
// maxPooledDim on either axis (see rgbaPools). Nil images are silently
// ignored.
func PutRGBA(img *image.RGBA) {
	if img == nil {
		return
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w > maxPooledDim || h > maxPooledDim {
		return
	}
	key := rgbaPoolKey{w, h}
	p, _ := rgbaPools.LoadOrStore(key, &sync.Pool{})
	p.(*sync.Pool).Put(img)
}
