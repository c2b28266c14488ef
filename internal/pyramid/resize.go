package pyramid

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// boxDownsample resamples src into a new buffer of size dst using a
// separable box filter evaluated in linear light: decode each sampled sRGB
// channel through the transfer function, average, then re-encode. This
// mirrors image.hpp's rescale_box_filter, adapted from per-pixel float
// vector math to a flat uint8 buffer.
//
// Unlike the general "resize any source to any destination" case, every
// call here halves both axes (max(1, floor(d/2))), so the sampled box is
// always a 1x1, 1x2, 2x1, or 2x2 footprint — no fractional-box edge
// handling is needed.
func boxDownsample(src *image.RGBA, dst Size) *image.RGBA {
	sw := src.Rect.Dx()
	sh := src.Rect.Dy()

	out := GetRGBA(dst.W, dst.H)

	for y := 0; y < dst.H; y++ {
		sy0 := y * 2
		sy1 := sy0 + 1
		if sy1 >= sh {
			sy1 = sy0
		}
		rows := uniqueOf(sy0, sy1)

		for x := 0; x < dst.W; x++ {
			sx0 := x * 2
			sx1 := sx0 + 1
			if sx1 >= sw {
				sx1 = sx0
			}
			cols := uniqueOf(sx0, sx1)

			var rAcc, gAcc, bAcc, aAcc float64
			n := float64(len(rows) * len(cols))

			for _, sy := range rows {
				for _, sx := range cols {
					c := src.RGBAAt(src.Rect.Min.X+sx, src.Rect.Min.Y+sy)
					rAcc += srgbToLinearLUT[c.R]
					gAcc += srgbToLinearLUT[c.G]
					bAcc += srgbToLinearLUT[c.B]
					aAcc += float64(c.A)
				}
			}

			out.SetRGBA(out.Rect.Min.X+x, out.Rect.Min.Y+y, color.RGBA{
				R: linearToSRGB8(rAcc / n),
				G: linearToSRGB8(gAcc / n),
				B: linearToSRGB8(bAcc / n),
				A: clampAlpha(aAcc/n + 0.5),
			})
		}
	}

	return out
}

func clampAlpha(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// uniqueOf returns {a} if a == b, else {a, b}. Used so that edge columns/
// rows of an odd-sized source (one axis already at 1px) sample the single
// available pixel once instead of double-weighting it.
func uniqueOf(a, b int) []int {
	if a == b {
		return []int{a}
	}
	return []int{a, b}
}

// nearestDownsampleFast resamples with nearest-neighbour via
// disintegration/imaging, used for iconography where aliasing doesn't
// matter and the sRGB-correct box filter's extra float conversions are
// wasted work.
func nearestDownsampleFast(src *image.RGBA, dst Size) *image.RGBA {
	resized := imaging.Resize(src, dst.W, dst.H, imaging.NearestNeighbor)
	out := GetRGBA(dst.W, dst.H)
	copy(out.Pix, resized.Pix)
	return out
}
