package downloads

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gomantics/reposample/domains/records"
	"github.com/gomantics/reposample/libs/gitrepo"
	"github.com/gomantics/reposample/libs/lang"
)

// Project is one repository to sample with its own per-language quotas
type Project struct {
	Repository gitrepo.Repository
	Revision   string
	Quotas     map[lang.Language]int
}

// Runner processes several projects against one database
type Runner struct {
	l          *zap.Logger
	downloader *Downloader
}

// NewRunner creates a runner
func NewRunner(l *zap.Logger, d *Downloader) *Runner {
	return &Runner{l: l, downloader: d}
}

// Run processes the projects sequentially, feeding the database produced by
// each one into the next. A failing project does not stop the others; all
// failures are returned joined together with the database gathered so far.
func (r *Runner) Run(ctx context.Context, db records.Database, projects []Project) (records.Database, error) {
	r.l.Info("starting projects", zap.Int("projects", len(projects)))

	var errs []error
	for i, p := range projects {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		l := r.l.With(
			zap.Int("project", i),
			zap.Stringer("repository", p.Repository),
		)
		l.Info("processing project", zap.Any("quotas", p.Quotas))

		merged, err := r.downloader.WithQuotas(p.Quotas).ProcessRepository(ctx, db, p.Repository, p.Revision)
		if merged != nil {
			db = merged
		}
		if err != nil {
			l.Error("project failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("project %s: %w", p.Repository, err))
		}
	}

	return db, errors.Join(errs...)
}
