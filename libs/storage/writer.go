// Package storage writes downloaded content below a target directory.
package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/gomantics/reposample/domains/records"
	"github.com/gomantics/reposample/libs/lang"
)

// Writer stores each file as <dir>/<language>/<sha><ext>
type Writer struct {
	l      *zap.Logger
	fs     afero.Fs
	dir    string
	dryRun bool
}

// NewWriter creates a writer. In dry-run mode nothing is written and Save only
// reports where the content would have gone.
func NewWriter(l *zap.Logger, fs afero.Fs, dir string, dryRun bool) *Writer {
	return &Writer{
		l:      l,
		fs:     fs,
		dir:    dir,
		dryRun: dryRun,
	}
}

// Destination returns the path an entry is stored at.
func (w *Writer) Destination(l lang.Language, e records.Entry) string {
	return filepath.Join(w.dir, l.String(), e.SHA+strings.ToLower(path.Ext(e.Path)))
}

// Save writes content and returns its destination.
func (w *Writer) Save(ctx context.Context, l lang.Language, e records.Entry, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest := w.Destination(l, e)
	if w.dryRun {
		w.l.Debug("dry run, not writing file", zap.String("path", e.Path), zap.String("destination", dest))
		return dest, nil
	}

	if err := w.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}
	if err := afero.WriteFile(w.fs, dest, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return dest, nil
}
