package sampling

import (
	"slices"
	"strings"

	"github.com/gomantics/reposample/libs/lang"
)

// Source supplies uniformly distributed integers in [0, n).
// *math/rand/v2.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Sampler hands out the entries to download, one batch at a time.
type Sampler interface {
	// Next returns at most limit candidates not returned before. An empty
	// result means the sampler is exhausted.
	Next(limit int) []Candidate
	// Remaining reports how many candidates can still be returned.
	Remaining() int
}

// Shuffle permutes candidates in place using Fisher-Yates.
func Shuffle(src Source, c []Candidate) {
	for i := len(c) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		c[i], c[j] = c[j], c[i]
	}
}

// QuotaSampler selects a uniform random subset of fixed size per language.
// The selection is made once, up front.
type QuotaSampler struct {
	selected []Candidate
}

// NewQuotaSampler partitions candidates by language and keeps
// min(target, available) random entries of each. Languages without a
// target are dropped.
func NewQuotaSampler(src Source, candidates []Candidate, targets map[lang.Language]int) *QuotaSampler {
	byLanguage := make(map[lang.Language][]Candidate)
	for _, c := range candidates {
		if _, ok := targets[c.Language]; ok {
			byLanguage[c.Language] = append(byLanguage[c.Language], c)
		}
	}

	languages := make([]lang.Language, 0, len(byLanguage))
	for l := range byLanguage {
		languages = append(languages, l)
	}
	slices.Sort(languages)

	var selected []Candidate
	for _, l := range languages {
		part := byLanguage[l]
		Shuffle(src, part)
		selected = append(selected, part[:min(max(targets[l], 0), len(part))]...)
	}

	slices.SortFunc(selected, func(a, b Candidate) int {
		return strings.Compare(a.Entry.SHA, b.Entry.SHA)
	})

	return &QuotaSampler{selected: selected}
}

// Next implements Sampler.
func (s *QuotaSampler) Next(limit int) []Candidate {
	n := min(max(limit, 0), len(s.selected))
	batch := s.selected[:n:n]
	s.selected = s.selected[n:]
	return batch
}

// Remaining implements Sampler.
func (s *QuotaSampler) Remaining() int {
	return len(s.selected)
}

// IncrementalSampler draws entries one at a time from a shrinking pool, so
// later draws are only made once they are asked for.
type IncrementalSampler struct {
	src  Source
	pool []Candidate
}

// NewIncrementalSampler creates a sampler over a copy of candidates.
func NewIncrementalSampler(src Source, candidates []Candidate) *IncrementalSampler {
	return &IncrementalSampler{
		src:  src,
		pool: slices.Clone(candidates),
	}
}

// Next implements Sampler.
func (s *IncrementalSampler) Next(limit int) []Candidate {
	n := min(max(limit, 0), len(s.pool))
	batch := make([]Candidate, 0, n)
	for range n {
		i := s.src.IntN(len(s.pool))
		batch = append(batch, s.pool[i])

		last := len(s.pool) - 1
		s.pool[i] = s.pool[last]
		s.pool = s.pool[:last]
	}
	return batch
}

// Remaining implements Sampler.
func (s *IncrementalSampler) Remaining() int {
	return len(s.pool)
}
