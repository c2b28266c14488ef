// Command statsd runs the read-only stats HTTP endpoint against a streamer
// instance that actively scans and streams a directory in the background,
// for operators who want stats visibility without the simulated-frame
// driver in cmd/streamview attached to a terminal.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/halvardh/streamview/internal/config"
	"github.com/halvardh/streamview/internal/decode"
	"github.com/halvardh/streamview/internal/gputex"
	"github.com/halvardh/streamview/internal/pyramid"
	"github.com/halvardh/streamview/internal/scanner"
	"github.com/halvardh/streamview/internal/statsserver"
	"github.com/halvardh/streamview/internal/streamer"
)

const fixedCacheBudgetDefault = 256 * 1024 * 1024

func main() {
	var (
		configPath string
		addr       string
		token      string
		verbose    bool
	)

	flag.StringVar(&configPath, "config", "", "Path to an INI config file with a [streamer] section")
	flag.StringVar(&addr, "addr", ":8090", "Address to serve the stats endpoint on")
	flag.StringVar(&token, "token", "", "Bearer token operators must present (required)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose progress output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: statsd [flags] <image-dir>\n\n")
		fmt.Fprintf(os.Stderr, "Serve live cache stats for a directory under continuous streaming.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if token == "" {
		log.Fatal("-token is required")
	}

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}
	imageDir := args[0]

	cfg := config.Config{}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("loading config %s: %v", configPath, err)
		}
		cfg = loaded
	}
	cfg.CacheMemoryBudget = config.ResolveCacheMemoryBudget(cfg, fixedCacheBudgetDefault, verbose)

	decoder := decode.NewFileDecoder()
	ctl := streamer.New(streamer.Config{
		CacheMemoryBudget:    cfg.CacheMemoryBudget,
		PerFrameUploadBudget: cfg.PerFrameUploadBudget,
		WorkerCount:          cfg.WorkerCount,
	}, decoder, gputex.NewMemoryUploader())
	defer ctl.Close()

	watcher, err := scanner.Watch(imageDir)
	if err != nil {
		log.Fatalf("watching %s: %v", imageDir, err)
	}
	defer watcher.Close()

	go driveFromWatcher(ctl, decoder, imageDir, watcher, verbose)

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("generating signing secret: %v", err)
	}
	srv := statsserver.New(ctl, secret, statsserver.WithPlaintextToken(token))

	log.Printf("stats endpoint listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, srv.Router()))
}

// driveFromWatcher keeps the streamer's query set in sync with the
// directory's current contents: every watched add/remove updates the known
// set, and once a second the full known set is re-queried at uniform
// priority, since this binary has no renderer telling it which images are
// actually on screen.
func driveFromWatcher(ctl *streamer.Controller, decoder *decode.FileDecoder, dir string, watcher *scanner.Watcher, verbose bool) {
	known := map[string]pyramid.Size{}

	entries, err := scanner.Scan(context.Background(), dir, decoder)
	if err == nil {
		for _, e := range scanner.ImageFiles(entries) {
			known[e.Path] = pyramid.Size{W: e.FullSizePx.W, H: e.FullSizePx.H}
		}
	}

	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		select {
		case path, ok := <-watcher.Added:
			if !ok {
				return
			}
			if w, h, err := decoder.ReadHeader(path); err == nil {
				known[path] = pyramid.Size{W: w, H: h}
				if verbose {
					log.Printf("statsd: added %s (%dx%d)", path, w, h)
				}
			}
		case path, ok := <-watcher.Removed:
			if !ok {
				return
			}
			delete(known, path)
			if verbose {
				log.Printf("statsd: removed %s", path)
			}
		case <-tick.C:
			ctl.QueriesBegin()
			for path, size := range known {
				ctl.Query(path, pyramid.Size{W: 256, H: 256}, size, 0.5)
			}
			ctl.QueriesEnd()
		}
	}
}
