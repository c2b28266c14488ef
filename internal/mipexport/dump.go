package mipexport

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/halvardh/streamview/internal/pyramid"
)

// DumpPyramid writes every level of a generated pyramid to outDir, one file
// per level named "mip-<index>-<w>x<h><ext>", smallest level first. Returns
// the paths written, in the same order as levels.
func DumpPyramid(enc Encoder, levels []pyramid.Level, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mipexport: creating output dir: %w", err)
	}

	paths := make([]string, 0, len(levels))
	for i, lvl := range levels {
		data, err := enc.Encode(lvl.Image)
		if err != nil {
			return paths, fmt.Errorf("mipexport: encoding level %d: %w", i, err)
		}

		name := fmt.Sprintf("mip-%02d-%dx%d%s", i, lvl.Size.W, lvl.Size.H, enc.FileExtension())
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("mipexport: writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
