// Command mipdump decodes one image file, generates its full mipmap
// pyramid, and writes every level to an output directory as individual
// image files for manual inspection. Debug-only, same spirit as the teacher
// pack's cmd/debug tool.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/halvardh/streamview/internal/decode"
	"github.com/halvardh/streamview/internal/mipexport"
)

func main() {
	var (
		format   string
		quality  int
		outDir   string
		iconMode bool
	)

	flag.StringVar(&format, "format", "png", "Output encoding for each mip level: jpeg, png, webp")
	flag.IntVar(&quality, "quality", 85, "JPEG/WebP quality 1-100")
	flag.StringVar(&outDir, "out", "mips", "Output directory for the dumped mip levels")
	flag.BoolVar(&iconMode, "iconographic", false, "Use nearest-neighbour mip generation instead of the sRGB box filter")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mipdump [flags] <image-file>\n\n")
		fmt.Fprintf(os.Stderr, "Dump every level of an image's generated mipmap pyramid to disk.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}

	dec := decode.NewFileDecoder()
	if iconMode {
		dec.Mode = decode.Iconographic
	}

	levels := dec.Decode(args[0])
	if levels == nil {
		log.Fatalf("decoding %s failed", args[0])
	}

	enc, err := mipexport.NewEncoder(format, quality)
	if err != nil {
		log.Fatalf("encoder: %v", err)
	}

	paths, err := mipexport.DumpPyramid(enc, levels, outDir)
	if err != nil {
		log.Fatalf("dumping pyramid: %v", err)
	}

	for _, p := range paths {
		fmt.Println(p)
	}
	log.Printf("wrote %d mip level(s) to %s", len(paths), outDir)
}
