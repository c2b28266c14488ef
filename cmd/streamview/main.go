// Command streamview drives the texture streamer over a real directory of
// images, simulating a render loop for a fixed number of frames so the
// caching/eviction/upload behaviour can be observed and profiled without a
// real GPU-backed image viewer attached. Flag and profiling setup follows
// the teacher pack's own cmd/geotiff2pmtiles/main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/halvardh/streamview/internal/config"
	"github.com/halvardh/streamview/internal/decode"
	"github.com/halvardh/streamview/internal/gputex"
	"github.com/halvardh/streamview/internal/pyramid"
	"github.com/halvardh/streamview/internal/scanner"
	"github.com/halvardh/streamview/internal/statsserver"
	"github.com/halvardh/streamview/internal/streamer"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// fixedCacheBudgetDefault is the last-resort cache budget when neither the
// config file nor system RAM detection provide one.
const fixedCacheBudgetDefault = 256 * 1024 * 1024

func main() {
	var (
		configPath  string
		frames      int
		workerCount int
		memBudgetMB int64
		verbose     bool
		statsAddr   string
		statsToken  string
		showVersion bool
		cpuProfile  string
		memProfile  string
	)

	flag.StringVar(&configPath, "config", "", "Path to an INI config file with a [streamer] section")
	flag.IntVar(&frames, "frames", 60, "Number of simulated render frames to run")
	flag.IntVar(&workerCount, "workers", 0, "Decode worker pool size (0 = derive from cores)")
	flag.Int64Var(&memBudgetMB, "mem-budget", 0, "Cache memory budget in MB (0 = from config/auto-detect)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose progress output")
	flag.StringVar(&statsAddr, "stats-addr", "", "Address to serve the read-only stats endpoint on, e.g. :8090 (empty disables it)")
	flag.StringVar(&statsToken, "stats-token", "", "Bearer token operators must present to the stats endpoint (required if -stats-addr is set)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.StringVar(&cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	flag.StringVar(&memProfile, "memprofile", "", "Write memory profile to file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: streamview [flags] <image-dir>\n\n")
		fmt.Fprintf(os.Stderr, "Simulate a render loop streaming mipmapped textures from a directory of images.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("streamview %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			log.Fatalf("creating CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("starting CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}
	if memProfile != "" {
		defer func() {
			f, err := os.Create(memProfile)
			if err != nil {
				log.Fatalf("creating memory profile: %v", err)
			}
			defer f.Close()
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				log.Fatalf("writing memory profile: %v", err)
			}
		}()
	}

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}
	imageDir := args[0]

	cfg := config.Config{WorkerCount: workerCount}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("loading config %s: %v", configPath, err)
		}
		cfg = loaded
		if workerCount != 0 {
			cfg.WorkerCount = workerCount
		}
	}
	if memBudgetMB > 0 {
		cfg.CacheMemoryBudget = memBudgetMB * 1024 * 1024
	}
	cfg.CacheMemoryBudget = config.ResolveCacheMemoryBudget(cfg, fixedCacheBudgetDefault, verbose)

	decoder := decode.NewFileDecoder()

	ctx := context.Background()
	entries, err := scanner.Scan(ctx, imageDir, decoder)
	if err != nil {
		log.Fatalf("scanning %s: %v", imageDir, err)
	}
	images := scanner.ImageFiles(entries)
	if len(images) == 0 {
		log.Fatalf("no images found in %s", imageDir)
	}
	log.Printf("found %d image(s) in %s", len(images), imageDir)

	ctl := streamer.New(streamer.Config{
		CacheMemoryBudget:    cfg.CacheMemoryBudget,
		PerFrameUploadBudget: cfg.PerFrameUploadBudget,
		WorkerCount:          cfg.WorkerCount,
	}, decoder, gputex.NewMemoryUploader())
	defer ctl.Close()

	if statsAddr != "" {
		if statsToken == "" {
			log.Fatal("-stats-token is required when -stats-addr is set")
		}
		srv := statsserver.New(ctl, []byte(randomJWTSecret()), statsserver.WithPlaintextToken(statsToken))
		go func() {
			log.Printf("stats endpoint listening on %s", statsAddr)
			if err := httpListenAndServe(statsAddr, srv); err != nil {
				log.Printf("stats endpoint stopped: %v", err)
			}
		}()
	}

	runSimulatedFrames(ctl, images, frames, verbose)

	s := ctl.Stats()
	log.Printf("final cache state: %d texture(s) resident, %d/%d bytes used",
		s.ResidentTextures, s.CacheMemoryUsed, s.CacheMemoryBudget)
}

// runSimulatedFrames drives QueriesBegin/Query/QueriesEnd once per frame,
// querying a window of 8 consecutive images that advances by one image per
// frame, each with a random order priority, to exercise priority
// reordering, partial-mip residency, and eviction.
func runSimulatedFrames(ctl *streamer.Controller, images []scanner.Entry, frames int, verbose bool) {
	rng := rand.New(rand.NewSource(1))
	for frame := 0; frame < frames; frame++ {
		ctl.QueriesBegin()

		visible := frame % len(images)
		span := 8
		for i := 0; i < span; i++ {
			idx := (visible + i) % len(images)
			entry := images[idx]
			fullSize := pyramid.Size{W: entry.FullSizePx.W, H: entry.FullSizePx.H}
			onscreen := pyramid.Size{W: 256, H: 256}
			orderPriority := rng.Float64()
			ctl.Query(entry.Path, onscreen, fullSize, orderPriority)
		}

		ctl.QueriesEnd()

		if verbose {
			s := ctl.Stats()
			log.Printf("frame %d: %d resident, %d bytes used, %d queued",
				frame, s.ResidentTextures, s.CacheMemoryUsed, s.QueuedJobs)
		}

		time.Sleep(16 * time.Millisecond)
	}
}
