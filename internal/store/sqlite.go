// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"

	"github.com/pdiddy/medai-miner/pkg/types"
)

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at path. The parent directory is
// created when missing.
func NewSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "medai-miner.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, eris.Wrap(err, "sqlite: create directory")
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	id                 TEXT PRIMARY KEY,
	source             TEXT NOT NULL,
	title              TEXT NOT NULL,
	abstract           TEXT NOT NULL DEFAULT '',
	specialty          TEXT,
	architecture       TEXT,
	auc                REAL,
	accuracy           REAL,
	code_links         TEXT,
	classification     TEXT NOT NULL DEFAULT 'unclassified',
	classification_run TEXT,
	raw_metadata       TEXT,
	metadata_status    TEXT NOT NULL DEFAULT 'unprocessed',
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_classification ON records(classification);
CREATE INDEX IF NOT EXISTS idx_records_metadata_status ON records(metadata_status);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertRecord(ctx context.Context, rec types.Record) (bool, error) {
	rec, a, err := prepareInsert(rec, time.Now().UTC())
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert record")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, source, title, abstract, specialty, architecture, auc, accuracy,
			code_links, classification, raw_metadata, metadata_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		rec.ID, rec.Source, rec.Title, rec.AbstractText, a.specialty, a.architecture, a.auc, a.accuracy,
		a.codeLinks, string(rec.Classification), a.rawMetadata, string(rec.MetadataStatus), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert record %s", rec.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (types.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, eris.Wrapf(ErrNotFound, "sqlite: get record %s", id)
	}
	if err != nil {
		return types.Record{}, eris.Wrapf(err, "sqlite: get record %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, f Filter) ([]types.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.IDPrefix != "" {
		where = append(where, `id LIKE ? ESCAPE '\'`)
		args = append(args, likePrefix(f.IDPrefix))
	}
	if f.Classification != "" {
		where = append(where, `classification = ?`)
		args = append(args, string(f.Classification))
	}
	if f.MissingMetadata {
		where = append(where, `metadata_status <> ?`)
		args = append(args, string(types.MetadataEnriched))
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY id`
	if f.Limit > 0 || f.Offset > 0 {
		limit := f.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) UpsertEnrichment(ctx context.Context, id string, e types.Enrichment) error {
	a, err := newEnrichmentArgs(e)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert enrichment %s", id)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET
			specialty = COALESCE(?, specialty),
			architecture = COALESCE(?, architecture),
			auc = COALESCE(?, auc),
			accuracy = COALESCE(?, accuracy),
			code_links = COALESCE(?, code_links),
			raw_metadata = COALESCE(?, raw_metadata),
			metadata_status = COALESCE(?, metadata_status),
			updated_at = ?
		 WHERE id = ?`,
		a.specialty, a.architecture, a.auc, a.accuracy, a.codeLinks, a.rawMetadata, a.metadataStatus,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert enrichment %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: upsert enrichment %s", id)
	}
	return nil
}

func (s *SQLiteStore) SetClassification(ctx context.Context, id string, c types.Classification, runID string) (bool, error) {
	if err := validClassificationTarget(c); err != nil {
		return false, eris.Wrapf(err, "sqlite: set classification %s", id)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET classification = ?, classification_run = ?, updated_at = ?
		 WHERE id = ? AND classification = ?`,
		string(c), runID, time.Now().UTC(), id, string(types.ClassUnclassified),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: set classification %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 1 {
		return true, nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT count(*) FROM records WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: set classification %s", id)
	}
	if exists == 0 {
		return false, eris.Wrapf(ErrNotFound, "sqlite: set classification %s", id)
	}
	return false, nil
}
