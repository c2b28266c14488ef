package pyramid

import (
	"image"
	"image/color"
	"testing"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestLevelSizesHalvesToOne(t *testing.T) {
	sizes := LevelSizes(Size{256, 256})
	want := []Size{{1, 1}, {2, 2}, {4, 4}, {8, 8}, {16, 16}, {32, 32}, {64, 64}, {128, 128}, {256, 256}}
	if len(sizes) != len(want) {
		t.Fatalf("len = %d, want %d: %v", len(sizes), len(want), sizes)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("sizes[%d] = %v, want %v", i, sizes[i], want[i])
		}
	}
}

func TestLevelSizesSinglePixel(t *testing.T) {
	sizes := LevelSizes(Size{1, 1})
	if len(sizes) != 1 || sizes[0] != (Size{1, 1}) {
		t.Fatalf("LevelSizes(1x1) = %v, want exactly one 1x1 level", sizes)
	}
}

func TestLevelSizesNonSquareOddAxis(t *testing.T) {
	sizes := LevelSizes(Size{5, 3})
	// 5->2->1, 3->1: (1,1) (2,1) (5,3) per max(1,floor(d/2))
	want := []Size{{1, 1}, {2, 1}, {5, 3}}
	if len(sizes) != len(want) {
		t.Fatalf("sizes = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("sizes[%d] = %v, want %v", i, sizes[i], want[i])
		}
	}
}

func TestGenerateOrdersSmallestFirstAndMatchesFullSize(t *testing.T) {
	full := solid(16, 16, color.RGBA{255, 0, 0, 255})
	levels := Generate(full)

	if levels[len(levels)-1].Size != (Size{16, 16}) {
		t.Fatalf("last level size = %v, want 16x16", levels[len(levels)-1].Size)
	}
	if levels[0].Size != (Size{1, 1}) {
		t.Fatalf("first level size = %v, want 1x1", levels[0].Size)
	}
	for i, l := range levels {
		if l.Image.Bounds().Dx() != l.Size.W || l.Image.Bounds().Dy() != l.Size.H {
			t.Fatalf("level %d image bounds %v != size %v", i, l.Image.Bounds(), l.Size)
		}
	}
}

func TestGenerateSolidColorStaysSolid(t *testing.T) {
	full := solid(8, 8, color.RGBA{128, 64, 200, 255})
	levels := Generate(full)

	for _, l := range levels {
		for y := 0; y < l.Size.H; y++ {
			for x := 0; x < l.Size.W; x++ {
				c := l.Image.RGBAAt(x, y)
				if c.A != 255 {
					t.Fatalf("level %v pixel (%d,%d) alpha = %d, want 255", l.Size, x, y, c.A)
				}
				// sRGB round-trip through linear light can be off by a
				// hair due to LUT quantization; allow +/-1.
				if absDiff(c.R, 128) > 1 || absDiff(c.G, 64) > 1 || absDiff(c.B, 200) > 1 {
					t.Fatalf("level %v pixel = %v, want ~(128,64,200)", l.Size, c)
				}
			}
		}
	}
}

func TestGenerateOnePixelImageReturnsOneLevel(t *testing.T) {
	full := solid(1, 1, color.RGBA{1, 2, 3, 255})
	levels := Generate(full)
	if len(levels) != 1 {
		t.Fatalf("len(levels) = %d, want 1", len(levels))
	}
}

func TestGenerateFastProducesFullPyramid(t *testing.T) {
	full := solid(4, 4, color.RGBA{10, 20, 30, 255})
	levels := GenerateFast(full)
	if len(levels) != 3 {
		t.Fatalf("len(levels) = %d, want 3 (1x1,2x2,4x4)", len(levels))
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
