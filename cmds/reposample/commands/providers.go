package commands

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/gomantics/reposample/config"
	"github.com/gomantics/reposample/db"
	"github.com/gomantics/reposample/domains/downloads"
	"github.com/gomantics/reposample/domains/sampling"
	"github.com/gomantics/reposample/domains/stats"
	"github.com/gomantics/reposample/libs/gitrepo"
	"github.com/gomantics/reposample/libs/ratelimit"
	"github.com/gomantics/reposample/libs/storage"
	"github.com/gomantics/reposample/pkg/logger"
)

// common returns the options shared by every command: configuration, logging
// and the record store.
func common(cfg *config.Config, verbose bool) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			func(cfg *config.Config) *zap.Logger {
				return logger.New(cfg, verbose)
			},
			newFs,
			newStore,
		),
		fx.Decorate(func(l *zap.Logger) *zap.Logger {
			return l.With(zap.String("service", "reposample"))
		}),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{
				Logger: l,
			}
		}),
	)
}

// downloadModule provides everything a download run needs.
var downloadModule = fx.Options(
	fx.Provide(
		newTreeSource,
		newWriter,
		newLimiter,
		newStats,
		newDownloader,
		downloads.NewRunner,
	),
)

func newFs() afero.Fs {
	return afero.NewOsFs()
}

func newStore(lc fx.Lifecycle, l *zap.Logger, fs afero.Fs, cfg *config.Config) (db.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := db.Open(ctx, l, fs, cfg.Download.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Download.Database, err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})

	return store, nil
}

// newTreeSource selects where trees and contents come from: the REST API or
// an in-memory clone.
func newTreeSource(l *zap.Logger, cfg *config.Config) (downloads.TreeProvider, downloads.ContentFetcher) {
	switch cfg.Download.Source {
	case config.SourceClone:
		src := gitrepo.NewCloneSource(l, gitrepo.NewGitHubProvider(cfg.GitHub.Token), nil)
		return src, src
	default:
		client := gitrepo.NewAPIClient(l, cfg.GitHub.APIURL, cfg.GitHub.Token, nil)
		return client, client
	}
}

func newWriter(l *zap.Logger, fs afero.Fs, cfg *config.Config) downloads.ContentWriter {
	return storage.NewWriter(l, fs, cfg.Download.Directory, cfg.Download.DryRun)
}

func newLimiter(cfg *config.Config) *ratelimit.Executor {
	return ratelimit.New(cfg.Download.QPS)
}

func newStats(cfg *config.Config) (*stats.Stats, error) {
	languages, err := cfg.Download.LanguageSet()
	if err != nil {
		return nil, err
	}
	return stats.New(languages), nil
}

func newDownloader(
	l *zap.Logger,
	trees downloads.TreeProvider,
	fetcher downloads.ContentFetcher,
	writer downloads.ContentWriter,
	limiter *ratelimit.Executor,
	st *stats.Stats,
	cfg *config.Config,
) (*downloads.Downloader, error) {
	opts, err := downloadOptions(cfg)
	if err != nil {
		return nil, err
	}
	return downloads.New(l, trees, fetcher, writer, limiter, st, opts), nil
}

func downloadOptions(cfg *config.Config) (downloads.Options, error) {
	d := cfg.Download

	minSize, maxSize, err := d.SizeBounds()
	if err != nil {
		return downloads.Options{}, err
	}
	languages, err := d.LanguageSet()
	if err != nil {
		return downloads.Options{}, err
	}

	opts := downloads.Options{
		Criteria: sampling.Criteria{
			MinSize:     minSize,
			MaxSize:     maxSize,
			IncludeDirs: d.Include,
			ExcludeDirs: d.Exclude,
			Languages:   languages,
			MaxItems:    d.MaxFiles,
		},
		BatchSize:   d.BatchSize,
		Concurrency: d.Concurrency,
		LogSkipped:  d.LogSkipped,
	}
	if d.Seed != 0 {
		opts.Source = rand.New(rand.NewPCG(d.Seed, d.Seed))
	}

	return opts, nil
}

// projects resolves the configured multi-repository runs.
func projects(cfg *config.Config) ([]downloads.Project, error) {
	out := make([]downloads.Project, 0, len(cfg.Projects))
	for _, p := range cfg.Projects {
		repo, err := gitrepo.ParseRepository(p.Repository)
		if err != nil {
			return nil, err
		}
		quotas, err := p.Quotas()
		if err != nil {
			return nil, err
		}

		revision := p.Revision
		if revision == "" {
			revision = cfg.Download.Revision
		}

		out = append(out, downloads.Project{
			Repository: repo,
			Revision:   revision,
			Quotas:     quotas,
		})
	}
	return out, nil
}
