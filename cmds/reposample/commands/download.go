package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gomantics/reposample/config"
	"github.com/gomantics/reposample/db"
	"github.com/gomantics/reposample/domains/downloads"
	"github.com/gomantics/reposample/domains/records"
	"github.com/gomantics/reposample/domains/stats"
	"github.com/gomantics/reposample/libs/gitrepo"
)

var (
	ErrNoRepository = errors.New("a repository is required unless projects are configured")
	ErrNoDirectory  = errors.New("an output directory is required unless --dry-run is set")
)

const fxTimeout = 30 * time.Second

// NewDownloadCommand creates the download command.
func NewDownloadCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download [repository] [directory]",
		Short: "Sample and download files from a repository",
		Long: `Download lists the files of a repository at a revision, keeps the files
matching the size, path and language criteria that were not downloaded before,
and downloads a random sample of them into <directory>/<language>/<sha><ext>.

The repository is given as owner/name or as a URL. Without a repository every
project of the configuration file is processed with its per-language quotas.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Download.Repository = args[0]
			}
			if len(args) > 1 {
				cfg.Download.Directory = args[1]
			}
			if cfg.Download.Repository == "" && len(cfg.Projects) == 0 {
				return ErrNoRepository
			}
			if cfg.Download.Directory == "" && !cfg.Download.DryRun {
				return ErrNoDirectory
			}

			return runDownload(cmd.Context(), cmd.OutOrStdout(), cfg, root.verbose)
		},
	}

	addCommonFlags(cmd.Flags())

	flags := cmd.Flags()
	flags.String("revision", config.DefaultRevision, "branch, tag or commit to sample")
	flags.String("source", config.DefaultSource, "where trees and contents come from: api or clone")
	flags.StringSliceP("include", "I", nil, "only consider files below these directories")
	flags.StringSliceP("exclude", "X", nil, "skip files below these directories or matching these globs")
	flags.String("min-size", config.DefaultMinSize, "minimum file size, e.g. 500 or 1 KB")
	flags.String("max-size", config.DefaultMaxSize, "maximum file size, 0 for no limit")
	flags.StringSliceP("language", "l", []string{"all"}, "languages to download")
	flags.IntP("max-files", "n", config.DefaultMaxFiles, "maximum number of files to download, 0 for no limit")
	flags.Float64("qps", config.DefaultQPS, "maximum requests per second, 0 for no limit")
	flags.Int("concurrency", config.DefaultConcurrency, "concurrent downloads")
	flags.Int("batch-size", config.DefaultBatchSize, "files sampled per batch")
	flags.Bool("dry-run", false, "do not write files or the database")
	flags.Bool("log-skipped", false, "log every skipped file")
	flags.Uint64("seed", 0, "random seed, 0 for a random one")
	flags.String("github-token", "", "GitHub token (default $GITHUB_TOKEN)")
	flags.String("api-url", gitrepo.DefaultAPIURL, "GitHub API URL")

	return cmd
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("env", config.DefaultEnv, "environment: dev or prod")
	flags.String("database", config.DefaultDatabase, "database file or postgres:// connection string")
}

type downloadDeps struct {
	l          *zap.Logger
	store      db.Store
	downloader *downloads.Downloader
	runner     *downloads.Runner
	stats      *stats.Stats
}

func runDownload(ctx context.Context, out io.Writer, cfg *config.Config, verbose bool) error {
	var deps downloadDeps
	app := fx.New(
		common(cfg, verbose),
		downloadModule,
		fx.Populate(&deps.l, &deps.store, &deps.downloader, &deps.runner, &deps.stats),
		fx.StartTimeout(fxTimeout),
		fx.StopTimeout(fxTimeout),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, fxTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), fxTimeout)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			deps.l.Warn("failed to stop cleanly", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return download(ctx, out, cfg, deps)
}

func download(ctx context.Context, out io.Writer, cfg *config.Config, deps downloadDeps) error {
	start := time.Now()

	database, err := deps.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	merged, runErr := process(ctx, cfg, deps, database)

	if merged != nil {
		if cfg.Download.DryRun {
			deps.l.Info("dry run, database not saved")
		} else if err := deps.store.Save(context.WithoutCancel(ctx), merged); err != nil {
			return errors.Join(runErr, fmt.Errorf("failed to save database: %w", err))
		}
	}

	if err := deps.stats.Print(out); err != nil {
		return errors.Join(runErr, err)
	}
	printOutcome(out, merged, len(database), time.Since(start), runErr)

	return runErr
}

// process runs either the single configured repository or every project.
func process(ctx context.Context, cfg *config.Config, deps downloadDeps, database records.Database) (records.Database, error) {
	if cfg.Download.Repository != "" {
		repo, err := gitrepo.ParseRepository(cfg.Download.Repository)
		if err != nil {
			return nil, err
		}
		return deps.downloader.ProcessRepository(ctx, database, repo, cfg.Download.Revision)
	}

	ps, err := projects(cfg)
	if err != nil {
		return nil, err
	}
	return deps.runner.Run(ctx, database, ps)
}

func printOutcome(w io.Writer, merged records.Database, before int, elapsed time.Duration, err error) {
	elapsed = elapsed.Round(time.Millisecond)
	switch {
	case err != nil:
		color.New(color.FgRed).Fprintf(w, "Finished with errors in %s: %v\n", elapsed, err)
	default:
		color.New(color.FgGreen).Fprintf(w, "Processed %d new files in %s (%d in database)\n", len(merged)-before, elapsed, len(merged))
	}
}
