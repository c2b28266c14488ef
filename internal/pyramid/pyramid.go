// Package pyramid generates the mipmap pyramid for one fully-decoded RGBA8
// image: the ordered list of power-of-two-halved sizes from 1x1 up to the
// full image, resampled smallest-first. It is a pure function, grounded on
// the source viewer's find_mipmap_sizes_px / generate_mipmaps and its
// sRGB-correct box filter (image.hpp's rescale_box_filter), adapted to
// Go's image.RGBA and run entirely on worker goroutines — callers must not
// share a *Level across goroutines while it is still being written.
package pyramid

import "image"

// Size is a pixel width/height pair.
type Size struct {
	W, H int
}

// Level is one mipmap in a pyramid, smallest-first.
type Level struct {
	Size  Size
	Image *image.RGBA
}

// MemorySize returns the byte size an image of the given size would occupy
// resident in the cache: width * height * 4 bytes per RGBA8 pixel.
func (s Size) MemorySize() int64 {
	return int64(s.W) * int64(s.H) * 4
}

// LevelSizes returns the size sequence for a pyramid rooted at full,
// smallest (1x1, unless full is already smaller) first, full size last.
// Each step halves both axes with max(1, floor(d/2)), matching the source's
// find_mipmap_sizes_px iterated in reverse.
func LevelSizes(full Size) []Size {
	var rev []Size
	w, h := full.W, full.H
	for {
		rev = append(rev, Size{w, h})
		if w == 1 && h == 1 {
			break
		}
		w = halve(w)
		h = halve(h)
	}
	sizes := make([]Size, len(rev))
	for i, s := range rev {
		sizes[len(rev)-1-i] = s
	}
	return sizes
}

func halve(d int) int {
	d = d / 2
	if d < 1 {
		return 1
	}
	return d
}

// Generate produces the full pyramid for a decoded image using the
// sRGB-correct box filter, appropriate for photographic content. full is
// consumed as the largest (last) level; callers that need to keep it must
// pass a copy.
func Generate(full *image.RGBA) []Level {
	return generate(full, boxDownsample)
}

// GenerateFast produces the pyramid using nearest-neighbour resampling via
// disintegration/imaging, acceptable for non-photographic content (file and
// folder icons) where aliasing is not a visual concern and the extra
// allocation of a full linear-light pass is wasted work.
func GenerateFast(full *image.RGBA) []Level {
	return generate(full, nearestDownsampleFast)
}

func generate(full *image.RGBA, downsample func(src *image.RGBA, dst Size) *image.RGBA) []Level {
	sizes := LevelSizes(Size{full.Bounds().Dx(), full.Bounds().Dy()})

	levels := make([]Level, len(sizes))
	levels[len(levels)-1] = Level{Size: sizes[len(sizes)-1], Image: full}

	for i := len(levels) - 2; i >= 0; i-- {
		levels[i] = Level{
			Size:  sizes[i],
			Image: downsample(levels[i+1].Image, sizes[i]),
		}
	}
	return levels
}

// ReleaseAll returns every level's pixel buffer to the shared RGBA pool.
// Call this once a pyramid's images have all been copied into the cache (or
// discarded), so the worker-side buffers can be reused for the next job.
func ReleaseAll(levels []Level) {
	for i := range levels {
		PutRGBA(levels[i].Image)
		levels[i].Image = nil
	}
}
