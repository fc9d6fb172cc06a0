// Package db persists the download database, either as a JSON file or in
// PostgreSQL.
package db

import (
	"context"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/gomantics/reposample/domains/records"
)

// Store loads and saves the whole database
type Store interface {
	// Load returns the persisted database, empty when nothing was saved yet.
	Load(ctx context.Context) (records.Database, error)
	// Save replaces the persisted state with db.
	Save(ctx context.Context, db records.Database) error
	Close() error
}

// IsPostgres reports whether location is a PostgreSQL connection string.
func IsPostgres(location string) bool {
	return strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://")
}

// Open selects the store for location: PostgreSQL for postgres:// URLs and a
// JSON file on fs for anything else.
func Open(ctx context.Context, l *zap.Logger, fs afero.Fs, location string) (Store, error) {
	if IsPostgres(location) {
		return NewPostgresStore(ctx, l, location)
	}
	return NewJSONStore(l, fs, location), nil
}
