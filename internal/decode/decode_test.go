package decode

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeSolidPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{10, 20, 30, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestReadHeaderReportsDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writeSolidPNG(t, path, 32, 16)

	d := NewFileDecoder()
	w, h, err := d.ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if w != 32 || h != 16 {
		t.Fatalf("ReadHeader = (%d,%d), want (32,16)", w, h)
	}
}

func TestReadHeaderRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := NewFileDecoder()
	if _, _, err := d.ReadHeader(path); !errors.Is(err, ErrNotAnImage) {
		t.Fatalf("ReadHeader err = %v, want ErrNotAnImage", err)
	}
}

func TestDecodeProducesFullPyramid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writeSolidPNG(t, path, 8, 8)

	d := NewFileDecoder()
	levels := d.Decode(path)
	if len(levels) == 0 {
		t.Fatal("expected a non-empty pyramid")
	}
	if levels[len(levels)-1].Size.W != 8 || levels[len(levels)-1].Size.H != 8 {
		t.Fatalf("largest level = %v, want 8x8", levels[len(levels)-1].Size)
	}
	if levels[0].Size.W != 1 || levels[0].Size.H != 1 {
		t.Fatalf("smallest level = %v, want 1x1", levels[0].Size)
	}
}

func TestDecodeFailsOnMissingFile(t *testing.T) {
	d := NewFileDecoder()
	levels := d.Decode(filepath.Join(t.TempDir(), "missing.png"))
	if levels != nil {
		t.Fatalf("expected nil Levels for missing file, got %v", levels)
	}
}

func TestDecodeFailsOnCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(path, []byte("not a png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := NewFileDecoder()
	if levels := d.Decode(path); levels != nil {
		t.Fatalf("expected nil Levels for corrupt file, got %v", levels)
	}
}
