// Package downloads fetches a repository tree, samples the eligible entries and
// downloads them into the content store.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/gomantics/reposample/domains/records"
	"github.com/gomantics/reposample/domains/sampling"
	"github.com/gomantics/reposample/domains/stats"
	"github.com/gomantics/reposample/libs/gitrepo"
	"github.com/gomantics/reposample/libs/lang"
	"github.com/gomantics/reposample/libs/ratelimit"
)

// MaxDownloadsPerRun caps a single run when no explicit limit is configured.
const MaxDownloadsPerRun = 100000

const (
	defaultBatchSize   = 100
	defaultConcurrency = 8
)

// TreeProvider lists the files of a repository at a revision
type TreeProvider interface {
	FetchTree(ctx context.Context, repo gitrepo.Repository, revision string) (*records.Tree, error)
}

// ContentFetcher downloads the content behind an entry locator
type ContentFetcher interface {
	Download(ctx context.Context, locator string) ([]byte, error)
}

// ContentWriter stores downloaded content and returns where it went
type ContentWriter interface {
	Save(ctx context.Context, l lang.Language, e records.Entry, content []byte) (string, error)
}

// Options controls a Downloader
type Options struct {
	Criteria sampling.Criteria
	// Quotas selects per-language quota sampling when non-empty. Otherwise
	// entries are drawn one at a time until Criteria.MaxItems is reached.
	Quotas      map[lang.Language]int
	BatchSize   int
	Concurrency int
	LogSkipped  bool
	// Source defaults to a randomly seeded PCG.
	Source sampling.Source
}

// Downloader processes one repository at a time
type Downloader struct {
	l       *zap.Logger
	trees   TreeProvider
	fetcher ContentFetcher
	writer  ContentWriter
	limiter *ratelimit.Executor
	stats   *stats.Stats
	opts    Options
	state   atomic.Int32
}

// New creates a downloader. The limiter paces both the tree listing and every
// content download.
func New(
	l *zap.Logger,
	trees TreeProvider,
	fetcher ContentFetcher,
	writer ContentWriter,
	limiter *ratelimit.Executor,
	st *stats.Stats,
	opts Options,
) *Downloader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Source == nil {
		opts.Source = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if len(opts.Quotas) > 0 {
		opts.Criteria.Languages = quotaLanguages(l, opts.Criteria.Languages, opts.Quotas)
	}

	return &Downloader{
		l:       l,
		trees:   trees,
		fetcher: fetcher,
		writer:  writer,
		limiter: limiter,
		stats:   st,
		opts:    opts,
	}
}

// WithQuotas returns a downloader sharing every collaborator but sampling with
// the given per-language quotas.
func (d *Downloader) WithQuotas(quotas map[lang.Language]int) *Downloader {
	opts := d.opts
	opts.Quotas = quotas
	return New(d.l, d.trees, d.fetcher, d.writer, d.limiter, d.stats, opts)
}

// State returns the stage of the current or last run.
func (d *Downloader) State() State {
	return State(d.state.Load())
}

func (d *Downloader) setState(s State) {
	d.state.Store(int32(s))
	d.l.Debug("downloader state changed", zap.Stringer("state", s))
}

// ProcessRepository fetches the tree of repo at revision, downloads a sample
// of the entries not yet in db and returns db merged with the new records.
// db itself is not modified.
//
// A tree fetch failure is the only fatal error. Failing downloads are kept as
// failed records. When ctx is cancelled no further batches are started and the
// records gathered so far are returned together with the context error.
func (d *Downloader) ProcessRepository(ctx context.Context, db records.Database, repo gitrepo.Repository, revision string) (records.Database, error) {
	l := d.l.With(
		zap.Stringer("repository", repo),
		zap.String("revision", revision),
	)

	d.setState(StateFetchingTree)
	tree, err := ratelimit.Schedule(ctx, d.limiter, func(ctx context.Context) (*records.Tree, error) {
		return d.trees.FetchTree(ctx, repo, revision)
	})
	if err != nil {
		d.setState(StateFailed)
		return nil, fmt.Errorf("failed to fetch tree of %s@%s: %w", repo, revision, err)
	}
	if tree.Truncated {
		l.Warn("tree listing is truncated, some files will not be considered")
	}

	d.stats.Add(stats.TreeFiles, int64(len(tree.Entries)))
	d.stats.Add(stats.DatabaseFiles, int64(len(db)))

	d.setState(StateSelecting)
	filter := sampling.NewFilter(l, d.opts.Criteria, db, d.stats, d.opts.LogSkipped)
	candidates := filter.Select(tree.Entries)
	sampler := d.newSampler(candidates)

	l.Info("selected files",
		zap.Int("tree_files", len(tree.Entries)),
		zap.Int("matching", len(candidates)),
		zap.Int("sampled", sampler.Remaining()),
	)

	d.setState(StateDownloading)
	fresh, err := d.download(ctx, l, sampler)

	d.setState(StateMerged)
	merged := records.Merge(db, fresh)

	d.setState(StateDone)
	saved, failed := countOutcomes(fresh)
	l.Info("repository processed",
		zap.Int("downloaded", saved),
		zap.Int("failed", failed),
	)
	return merged, err
}

func (d *Downloader) newSampler(candidates []sampling.Candidate) sampling.Sampler {
	if len(d.opts.Quotas) > 0 {
		return sampling.NewQuotaSampler(d.opts.Source, candidates, d.opts.Quotas)
	}
	return sampling.NewIncrementalSampler(d.opts.Source, candidates)
}

// quotaLanguages returns the languages a quota run selects from. Quotas name
// their own languages, so a configured restriction that leaves one out is
// overridden with a warning.
func quotaLanguages(l *zap.Logger, configured lang.Set, quotas map[lang.Language]int) lang.Set {
	out := make(lang.Set, 0, len(quotas))
	for language := range quotas {
		if !configured.Allows(language) {
			l.Warn("quota language is outside the configured languages, downloading it anyway",
				zap.Stringer("language", language),
				zap.Strings("configured", configured.Strings()),
			)
		}
		out = append(out, language)
	}
	slices.Sort(out)
	return out
}

// limit caps the number of attempts. Quota runs are bounded by their quotas,
// so MaxItems only applies to incremental sampling.
func (d *Downloader) limit() int {
	if len(d.opts.Quotas) > 0 {
		return MaxDownloadsPerRun
	}
	if n := d.opts.Criteria.MaxItems; n > 0 {
		return min(n, MaxDownloadsPerRun)
	}
	return MaxDownloadsPerRun
}

// download runs the sampled batches one after another. Entries of a batch are
// fetched concurrently and every attempt counts toward the limit.
func (d *Downloader) download(ctx context.Context, l *zap.Logger, sampler sampling.Sampler) (records.Database, error) {
	fresh := make(records.Database)

	pool, err := ants.NewPool(d.opts.Concurrency)
	if err != nil {
		return fresh, fmt.Errorf("failed to create download pool: %w", err)
	}
	defer pool.Release()

	limit := d.limit()
	for processed := 0; processed < limit; {
		if err := ctx.Err(); err != nil {
			return fresh, err
		}

		batch := sampler.Next(min(limit-processed, d.opts.BatchSize))
		if len(batch) == 0 {
			break
		}

		l.Debug("downloading batch",
			zap.Int("size", len(batch)),
			zap.Int("processed", processed),
			zap.Int("limit", limit),
		)

		results := make([]*records.Record, len(batch))
		var wg sync.WaitGroup
		for i, c := range batch {
			wg.Add(1)
			err := pool.Submit(func() {
				defer wg.Done()
				results[i] = d.fetch(ctx, l, c)
			})
			if err != nil {
				wg.Done()
				results[i] = d.failed(l, c, err)
			}
		}
		wg.Wait()

		for _, r := range results {
			if r != nil {
				fresh[r.SHA] = *r
			}
		}
		processed += len(batch)
	}

	return fresh, ctx.Err()
}

// fetch downloads and saves one candidate. It returns nil when the attempt was
// interrupted by cancellation, so the entry can be retried by a later run.
func (d *Downloader) fetch(ctx context.Context, l *zap.Logger, c sampling.Candidate) *records.Record {
	content, err := ratelimit.Schedule(ctx, d.limiter, func(ctx context.Context) ([]byte, error) {
		return d.fetcher.Download(ctx, c.Entry.Locator())
	})

	var destination string
	if err == nil {
		destination, err = d.writer.Save(ctx, c.Language, c.Entry, content)
	}

	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil
		}
		return d.failed(l, c, err)
	}

	d.stats.Increment(stats.Files)
	l.Debug("downloaded file",
		zap.String("path", c.Entry.Path),
		zap.String("sha", c.Entry.SHA),
		zap.String("destination", destination),
	)

	r := records.NewSaved(c.Entry, c.Language, destination)
	return &r
}

func (d *Downloader) failed(l *zap.Logger, c sampling.Candidate, err error) *records.Record {
	d.stats.Increment(stats.Errors)
	l.Error("failed to download file",
		zap.String("path", c.Entry.Path),
		zap.String("sha", c.Entry.SHA),
		zap.Error(err),
	)

	r := records.NewFailed(c.Entry, c.Language, err)
	return &r
}

func countOutcomes(db records.Database) (saved, failed int) {
	for _, r := range db {
		if r.OK() {
			saved++
		} else {
			failed++
		}
	}
	return saved, failed
}
