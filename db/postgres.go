package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gomantics/reposample/domains/records"
	"github.com/gomantics/reposample/libs/lang"
	"github.com/gomantics/reposample/pkg/pgconv"
)

//go:embed schema/*.sql
var embedSchema embed.FS

const selectRecords = `
SELECT sha, path, mode, type, size, url, language, destination, error
FROM records`

const upsertRecord = `
INSERT INTO records (sha, path, mode, type, size, url, language, destination, error, updated)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (sha) DO UPDATE SET
    path = EXCLUDED.path,
    mode = EXCLUDED.mode,
    type = EXCLUDED.type,
    size = EXCLUDED.size,
    url = EXCLUDED.url,
    language = EXCLUDED.language,
    destination = EXCLUDED.destination,
    error = EXCLUDED.error,
    updated = EXCLUDED.updated`

// PostgresStore keeps one row per record in the records table
type PostgresStore struct {
	l    *zap.Logger
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and applies the schema
func NewPostgresStore(ctx context.Context, l *zap.Logger, dsn string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Connection pool settings
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{l: l, pool: pool}
	l.Info("database pool initialized")

	if err := s.applySchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	l.Info("database schema applied")
	return s, nil
}

// Load reads every record
func (s *PostgresStore) Load(ctx context.Context) (records.Database, error) {
	var rows []recordRow
	err := retry(ctx, func(ctx context.Context) error {
		r, err := s.pool.Query(ctx, selectRecords)
		if err != nil {
			return err
		}
		rows, err = pgx.CollectRows(r, pgx.RowToStructByName[recordRow])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	db := make(records.Database, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		db[rec.SHA] = rec
	}

	s.l.Info("database loaded", zap.Int("records", len(db)))
	return db, nil
}

// Save upserts every record of db in one transaction
func (s *PostgresStore) Save(ctx context.Context, db records.Database) error {
	now := time.Now().Unix()

	batch := &pgx.Batch{}
	for _, sha := range db.Hashes() {
		row, err := newRecordRow(db[sha])
		if err != nil {
			return err
		}
		batch.Queue(upsertRecord,
			row.SHA, row.Path, row.Mode, row.Type, row.Size, row.URL,
			row.Language, row.Destination, row.Error, now,
		)
	}

	err := inTx(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}

	s.l.Info("database saved", zap.Int("records", len(db)))
	return nil
}

func (s *PostgresStore) Close() error {
	s.l.Info("closing database pool")
	s.pool.Close()
	return nil
}

// applySchema applies all SQL schema files
func (s *PostgresStore) applySchema(ctx context.Context) error {
	sqlFiles, err := getSchemaSQLFiles()
	if err != nil {
		return err
	}

	s.l.Info("found schema files", zap.Strings("files", sqlFiles))

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	for _, filename := range sqlFiles {
		content, err := embedSchema.ReadFile("schema/" + filename)
		if err != nil {
			return fmt.Errorf("failed to read schema file %s: %w", filename, err)
		}

		if _, err := conn.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute schema %s: %w", filename, err)
		}

		s.l.Debug("schema file executed", zap.String("file", filename))
	}

	return nil
}

// getSchemaSQLFiles returns sorted list of SQL files from embedded schema
func getSchemaSQLFiles() ([]string, error) {
	fsys, err := fs.Sub(embedSchema, "schema")
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}

	sort.Strings(sqlFiles)
	return sqlFiles, nil
}

// recordRow is a row of the records table
type recordRow struct {
	SHA         string      `db:"sha"`
	Path        string      `db:"path"`
	Mode        string      `db:"mode"`
	Type        string      `db:"type"`
	Size        pgtype.Int8 `db:"size"`
	URL         pgtype.Text `db:"url"`
	Language    string      `db:"language"`
	Destination pgtype.Text `db:"destination"`
	Error       pgtype.Text `db:"error"`
}

func newRecordRow(r records.Record) (recordRow, error) {
	row := recordRow{
		SHA:      r.SHA,
		Path:     r.Path,
		Mode:     r.Mode,
		Type:     r.Type.String(),
		Size:     pgconv.ToInt8(r.Size),
		URL:      pgconv.ToText(pgconv.NonEmpty(r.URL)),
		Language: r.Language.String(),
	}

	switch o := r.Outcome.(type) {
	case records.Saved:
		row.Destination = pgconv.ToText(&o.Destination)
	case records.Failed:
		row.Error = pgconv.ToText(&o.Message)
	default:
		return recordRow{}, fmt.Errorf("%w: %s", records.ErrInvalidRecord, r.SHA)
	}
	return row, nil
}

func (row recordRow) record() (records.Record, error) {
	rec := records.Record{
		Entry: records.Entry{
			Path: row.Path,
			Mode: row.Mode,
			Type: records.EntryType(row.Type),
			Size: pgconv.FromInt8(row.Size),
			SHA:  row.SHA,
			URL:  pgconv.Val(pgconv.FromText(row.URL)),
		},
		Language: lang.Language(row.Language),
	}

	switch {
	case row.Destination.Valid && !row.Error.Valid:
		rec.Outcome = records.Saved{Destination: row.Destination.String}
	case row.Error.Valid && !row.Destination.Valid:
		rec.Outcome = records.Failed{Message: row.Error.String}
	default:
		return records.Record{}, fmt.Errorf("%w: %s", records.ErrInvalidRecord, row.SHA)
	}
	return rec, nil
}
