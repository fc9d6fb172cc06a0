// Package stats accumulates named counters and per-category histograms over a
// single run and renders them as a summary.
package stats

import (
	"maps"
	"sync"

	"github.com/gomantics/reposample/libs/lang"
)

// Counter names a statistic
type Counter string

const (
	TreeFiles         Counter = "tree_files"
	DatabaseFiles     Counter = "database_files"
	AlreadyDownloaded Counter = "already_downloaded"
	Matching          Counter = "matching"
	Files             Counter = "files"
	Errors            Counter = "errors"
	Excluded          Counter = "excluded"
	NotFiles          Counter = "not_files"
	Language          Counter = "wrong_language"
	WrongSize         Counter = "wrong_size"
)

// Counters lists every counter in print order.
var Counters = []Counter{
	TreeFiles,
	DatabaseFiles,
	AlreadyDownloaded,
	Matching,
	Files,
	Errors,
	Excluded,
	NotFiles,
	Language,
	WrongSize,
}

var labels = map[Counter]string{
	AlreadyDownloaded: "Already downloaded",
	DatabaseFiles:     "Files in database",
	Errors:            "Errors",
	Excluded:          "Files in excluded directories",
	Files:             "Downloaded files",
	Language:          "Language",
	Matching:          "Files matching all criteria",
	NotFiles:          "Not file entries",
	TreeFiles:         "Files in repository",
	WrongSize:         "Filtered out by size",
}

// Label returns the human readable name of the counter
func (c Counter) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return string(c)
}

// String returns the string representation of the counter
func (c Counter) String() string {
	return string(c)
}

// Stats is safe for concurrent use.
type Stats struct {
	mu         sync.Mutex
	languages  lang.Set
	counters   map[Counter]int64
	histograms map[Counter]map[string]int64
}

// New creates an empty collector. languages is the configured restriction and
// only affects how the language histogram is rendered.
func New(languages lang.Set) *Stats {
	return &Stats{
		languages:  languages,
		counters:   make(map[Counter]int64),
		histograms: make(map[Counter]map[string]int64),
	}
}

// Increment adds one to the counter.
func (s *Stats) Increment(c Counter) {
	s.Add(c, 1)
}

// Add adds delta to the counter.
func (s *Stats) Add(c Counter, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[c] += delta
}

// Histogram counts one occurrence of category under the counter.
func (s *Stats) Histogram(c Counter, category string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.histograms[c]
	if !ok {
		h = make(map[string]int64)
		s.histograms[c] = h
	}
	h[category]++
}

// Get returns the counter value, zero when never touched.
func (s *Stats) Get(c Counter) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[c]
}

// GetCategory returns a histogram bucket, zero when never touched.
func (s *Stats) GetCategory(c Counter, category string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.histograms[c][category]
}

// Snapshot copies the counters and histograms.
func (s *Stats) Snapshot() (map[Counter]int64, map[Counter]map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters := maps.Clone(s.counters)
	histograms := make(map[Counter]map[string]int64, len(s.histograms))
	for k, h := range s.histograms {
		histograms[k] = maps.Clone(h)
	}
	return counters, histograms
}

// categories returns the categories printed beneath a counter.
func categories(c Counter) []string {
	if c != Language {
		return nil
	}
	var out []string
	for _, l := range lang.Known() {
		out = append(out, l.String())
	}
	return out
}

// included reports whether the category is selected by the language filter.
// The second result is false when no restriction is configured.
func (s *Stats) included(category string) (bool, bool) {
	if s.languages.Unrestricted() {
		return false, false
	}
	return s.languages.Allows(lang.Language(category)), true
}
