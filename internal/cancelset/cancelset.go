// Package cancelset provides the filepath-cancellation set the Streamer
// Controller's queries_end Step D builds each frame. It wraps
// github.com/deckarep/golang-set/v2 instead of a hand-rolled set, matching
// the teacher pack's own idiom for ad hoc membership sets (see
// machsix/hugo_gallery's watched_folder usage).
package cancelset

import mapset "github.com/deckarep/golang-set/v2"

// Set is a thin, intention-revealing alias over a string set of filepaths
// pending job-queue cancellation within a single queries_end call.
type Set struct {
	paths mapset.Set[string]
}

// New returns an empty Set.
func New() *Set {
	return &Set{paths: mapset.NewThreadUnsafeSet[string]()}
}

// Add marks path for cancellation.
func (s *Set) Add(path string) {
	s.paths.Add(path)
}

// Contains reports whether path has been marked for cancellation.
func (s *Set) Contains(path string) bool {
	return s.paths.Contains(path)
}

// Len reports how many paths are marked.
func (s *Set) Len() int {
	return s.paths.Cardinality()
}

// Each calls fn once per marked path, in no particular order.
func (s *Set) Each(fn func(path string)) {
	s.paths.Each(func(p string) bool {
		fn(p)
		return false
	})
}
