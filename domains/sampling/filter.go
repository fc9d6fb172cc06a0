// Package sampling decides which tree entries are eligible for download and
// which random subset of them is actually fetched.
package sampling

import (
	"strings"

	"github.com/dustin/go-humanize"
	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"github.com/gomantics/reposample/domains/records"
	"github.com/gomantics/reposample/domains/stats"
	"github.com/gomantics/reposample/libs/lang"
)

// Criteria selects the entries of a tree worth downloading
type Criteria struct {
	MinSize     int64
	MaxSize     int64 // <= 0 means unbounded
	IncludeDirs []string
	ExcludeDirs []string
	Languages   lang.Set
	MaxItems    int // <= 0 means no cap
}

// Verdict is the outcome of filtering one entry
type Verdict int

const (
	Eligible Verdict = iota
	NotFile
	WrongSize
	Excluded
	AlreadyDownloaded
	WrongLanguage
)

var verdictNames = [...]string{
	Eligible:          "eligible",
	NotFile:           "not a file",
	WrongSize:         "wrong size",
	Excluded:          "excluded by path",
	AlreadyDownloaded: "already downloaded",
	WrongLanguage:     "wrong language",
}

func (v Verdict) String() string {
	if int(v) < len(verdictNames) {
		return verdictNames[v]
	}
	return "invalid"
}

// counter maps a rejection to the statistic it increments.
func (v Verdict) counter() stats.Counter {
	switch v {
	case NotFile:
		return stats.NotFiles
	case WrongSize:
		return stats.WrongSize
	case Excluded:
		return stats.Excluded
	case AlreadyDownloaded:
		return stats.AlreadyDownloaded
	case WrongLanguage:
		return stats.Language
	default:
		return stats.Matching
	}
}

// KnownSet answers whether a content hash was processed before
type KnownSet interface {
	Has(sha string) bool
}

// Candidate is an eligible entry tagged with its language
type Candidate struct {
	Entry    records.Entry
	Language lang.Language
}

// Filter classifies tree entries against Criteria
type Filter struct {
	l          *zap.Logger
	criteria   Criteria
	known      KnownSet
	stats      *stats.Stats
	include    []string
	exclude    []string
	patterns   *ignore.GitIgnore
	logSkipped bool
}

// NewFilter creates a filter. known may be nil.
func NewFilter(l *zap.Logger, c Criteria, known KnownSet, st *stats.Stats, logSkipped bool) *Filter {
	f := &Filter{
		l:          l,
		criteria:   c,
		known:      known,
		stats:      st,
		include:    cleanDirs(c.IncludeDirs),
		logSkipped: logSkipped,
	}

	var globs []string
	for _, d := range cleanDirs(c.ExcludeDirs) {
		if strings.ContainsAny(d, "*?[") {
			globs = append(globs, d)
			continue
		}
		f.exclude = append(f.exclude, d)
	}
	if len(globs) > 0 {
		f.patterns = ignore.CompileIgnoreLines(globs...)
	}

	return f
}

// IsEligible reports whether the entry passes every rule.
func (f *Filter) IsEligible(e records.Entry) bool {
	_, v := f.Check(e)
	return v == Eligible
}

// Check classifies one entry and records the verdict in the stats. The checks
// run in a fixed order and the first failing one decides the verdict.
func (f *Filter) Check(e records.Entry) (lang.Language, Verdict) {
	return f.check(e, nil)
}

// check is Check treating hashes in pending like downloaded ones.
func (f *Filter) check(e records.Entry, pending map[string]struct{}) (lang.Language, Verdict) {
	language := lang.Detect(e.Path)
	v := f.verdict(e, language, pending)

	f.stats.Increment(v.counter())
	if v != Eligible && f.logSkipped {
		fields := []zap.Field{
			zap.String("path", e.Path),
			zap.String("sha", e.SHA),
			zap.Stringer("reason", v),
		}
		if e.Size != nil {
			fields = append(fields, zap.String("size", humanize.Bytes(uint64(max(*e.Size, 0)))))
		}
		f.l.Debug("skipping entry", fields...)
	}

	return language, v
}

func (f *Filter) verdict(e records.Entry, language lang.Language, pending map[string]struct{}) Verdict {
	if e.Type != records.TypeBlob {
		return NotFile
	}

	if e.Size == nil || *e.Size < f.criteria.MinSize ||
		(f.criteria.MaxSize > 0 && *e.Size > f.criteria.MaxSize) {
		return WrongSize
	}

	if !f.pathAllowed(e.Path) {
		return Excluded
	}

	if f.known != nil && f.known.Has(e.SHA) {
		return AlreadyDownloaded
	}
	if _, ok := pending[e.SHA]; ok {
		return AlreadyDownloaded
	}

	f.stats.Histogram(stats.Language, language.String())
	if !f.criteria.Languages.Allows(language) {
		return WrongLanguage
	}

	return Eligible
}

func (f *Filter) pathAllowed(p string) bool {
	if len(f.include) > 0 && !anyContains(f.include, p) {
		return false
	}
	if anyContains(f.exclude, p) {
		return false
	}
	if f.patterns != nil && f.patterns.MatchesPath(p) {
		return false
	}
	return true
}

// Select filters a whole tree. Entries sharing a hash with an earlier
// eligible entry are rejected as already downloaded, so identical content
// stored at several paths is fetched once.
func (f *Filter) Select(entries []records.Entry) []Candidate {
	var out []Candidate
	pending := make(map[string]struct{})
	for _, e := range entries {
		if l, v := f.check(e, pending); v == Eligible {
			pending[e.SHA] = struct{}{}
			out = append(out, Candidate{Entry: e, Language: l})
		}
	}
	return out
}

// InDir reports whether p is dir itself or lies beneath it. Unlike a plain
// prefix test, "dir1" does not contain "dir10/x.cc".
func InDir(dir, p string) bool {
	return p == dir || strings.HasPrefix(p, dir+"/")
}

func anyContains(dirs []string, p string) bool {
	for _, d := range dirs {
		if InDir(d, p) {
			return true
		}
	}
	return false
}

func cleanDirs(dirs []string) []string {
	var out []string
	for _, d := range dirs {
		d = strings.Trim(strings.TrimSpace(d), "/")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
