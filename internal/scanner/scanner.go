// Package scanner provides a reference implementation of the
// directory-enumeration collaborator the Streamer Controller treats as
// out-of-scope: it never sees a directory, only (path, full_size_px) pairs.
// scanner exists because a runnable viewer needs something behind that
// interface. It produces the tagged-sum Entry = Directory | NonImageFile |
// ImageFile described in the design notes, reading image headers (never
// full pixel data) concurrently with a bounded semaphore, and can keep
// watching a directory live with fsnotify so new/removed files update the
// candidate set without a full re-scan.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/semaphore"

	"github.com/halvardh/streamview/internal/decode"
)

// HeaderReader is the subset of decode.FileDecoder the scanner needs: a
// cheap header read, never a full decode.
type HeaderReader interface {
	ReadHeader(path string) (w, h int, err error)
}

// EntryKind tags which variant of Entry is populated.
type EntryKind int

const (
	KindDirectory EntryKind = iota
	KindNonImageFile
	KindImageFile
)

// Entry is the tagged sum a directory scan produces for each filesystem
// entry: Directory, NonImageFile, or ImageFile, replacing the source's
// runtime-type-identified base/derived file hierarchy with an explicit Kind
// switch — the streamer only ever consumes the ImageFile variant's Path and
// FullSizePx.
type Entry struct {
	Kind EntryKind
	Path string

	// FullSizePx is populated only when Kind == KindImageFile.
	FullSizePx struct{ W, H int }
}

// maxConcurrentHeaderReads caps how many files are open for header-sniffing
// at once during a scan, so a directory with thousands of entries doesn't
// exhaust file descriptors.
const maxConcurrentHeaderReads = 32

// Scan enumerates the immediate children of dir (non-recursive) and
// classifies each into an Entry, reading image headers concurrently through
// a bounded semaphore. Entries are returned sorted by Path for deterministic
// output.
func Scan(ctx context.Context, dir string, headers HeaderReader) ([]Entry, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(dirents))
	sem := semaphore.NewWeighted(maxConcurrentHeaderReads)
	errs := make([]error, len(dirents))

	done := make(chan int, len(dirents))
	for i, d := range dirents {
		i, d := i, d
		path := filepath.Join(dir, d.Name())

		if d.IsDir() {
			entries[i] = Entry{Kind: KindDirectory, Path: path}
			done <- i
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			entries[i] = Entry{Kind: KindNonImageFile, Path: path}
			errs[i] = err
			done <- i
			continue
		}
		go func() {
			defer sem.Release(1)
			w, h, err := headers.ReadHeader(path)
			if err != nil {
				entries[i] = Entry{Kind: KindNonImageFile, Path: path}
			} else {
				e := Entry{Kind: KindImageFile, Path: path}
				e.FullSizePx.W, e.FullSizePx.H = w, h
				entries[i] = e
			}
			done <- i
		}()
	}

	for range dirents {
		<-done
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// ImageFiles filters entries down to just the ImageFile variant, the only
// shape the streamer ever consumes.
func ImageFiles(entries []Entry) []Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.Kind == KindImageFile {
			out = append(out, e)
		}
	}
	return out
}

// assert at compile time that decode.FileDecoder satisfies HeaderReader.
var _ HeaderReader = (*decode.FileDecoder)(nil)
