package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/gomantics/reposample/domains/records"
)

// JSONStore keeps the database in a single JSON object keyed by content hash
type JSONStore struct {
	l    *zap.Logger
	fs   afero.Fs
	path string
}

// NewJSONStore creates a store for the file at path
func NewJSONStore(l *zap.Logger, fs afero.Fs, path string) *JSONStore {
	return &JSONStore{l: l, fs: fs, path: path}
}

// Load reads the file. A missing file is an empty database.
func (s *JSONStore) Load(ctx context.Context) (records.Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.l.Debug("database file does not exist, a new one will be created", zap.String("path", s.path))
		return records.Database{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read database %s: %w", s.path, err)
	}

	db := records.Database{}
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("failed to parse database %s: %w", s.path, err)
	}

	s.l.Info("database loaded", zap.String("path", s.path), zap.Int("records", len(db)))
	return db, nil
}

// Save writes db to a temporary file next to the target and renames it into
// place, so readers never observe a partial file.
func (s *JSONStore) Save(ctx context.Context, db records.Database) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if db == nil {
		db = records.Database{}
	}
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode database: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write database: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write database: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace database %s: %w", s.path, err)
	}

	s.l.Info("database saved", zap.String("path", s.path), zap.Int("records", len(db)))
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}
