package mipexport

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/halvardh/streamview/internal/pyramid"
)

func testLevels() []pyramid.Level {
	full := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			full.SetRGBA(x, y, color.RGBA{50, 60, 70, 255})
		}
	}
	return pyramid.Generate(full)
}

func TestNewEncoderSupportedFormats(t *testing.T) {
	for _, f := range []string{"jpeg", "jpg", "png", "webp"} {
		if _, err := NewEncoder(f, 85); err != nil {
			t.Fatalf("NewEncoder(%q): %v", f, err)
		}
	}
}

func TestNewEncoderRejectsUnknownFormat(t *testing.T) {
	if _, err := NewEncoder("tiff", 85); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestDumpPyramidWritesOneFilePerLevel(t *testing.T) {
	enc, err := NewEncoder("png", 0)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	dir := t.TempDir()

	levels := testLevels()
	paths, err := DumpPyramid(enc, levels, dir)
	if err != nil {
		t.Fatalf("DumpPyramid: %v", err)
	}
	if len(paths) != len(levels) {
		t.Fatalf("len(paths) = %d, want %d", len(paths), len(levels))
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", p)
		}
		if filepath.Ext(p) != ".png" {
			t.Fatalf("%s does not have .png extension", p)
		}
	}
}

func TestJPEGEncoderDefaultQuality(t *testing.T) {
	enc := &JPEGEncoder{}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	data, err := enc.Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty JPEG output")
	}
}
