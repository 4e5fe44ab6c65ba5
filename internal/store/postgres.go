// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pdiddy/medai-miner/pkg/types"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock pools satisfy it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on a shared PostgreSQL database.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres connects to the database at connString.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS records (
	id                 TEXT PRIMARY KEY,
	source             TEXT NOT NULL,
	title              TEXT NOT NULL,
	abstract           TEXT NOT NULL DEFAULT '',
	specialty          TEXT,
	architecture       TEXT,
	auc                DOUBLE PRECISION CHECK (auc BETWEEN 0 AND 1),
	accuracy           DOUBLE PRECISION CHECK (accuracy BETWEEN 0 AND 1),
	code_links         TEXT,
	classification     TEXT NOT NULL DEFAULT 'unclassified',
	classification_run TEXT,
	raw_metadata       JSONB,
	metadata_status    TEXT NOT NULL DEFAULT 'unprocessed',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_records_classification ON records(classification);
CREATE INDEX IF NOT EXISTS idx_records_metadata_status ON records(metadata_status);
`

// pgRecordColumns reads raw_metadata back as text so scanRecord can decode
// it the same way for both drivers.
var pgRecordColumns = strings.Replace(recordColumns, "raw_metadata", "raw_metadata::text", 1)

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) InsertRecord(ctx context.Context, rec types.Record) (bool, error) {
	rec, a, err := prepareInsert(rec, time.Now().UTC())
	if err != nil {
		return false, eris.Wrap(err, "postgres: insert record")
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO records (id, source, title, abstract, specialty, architecture, auc, accuracy,
			code_links, classification, raw_metadata, metadata_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13, $14)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Source, rec.Title, rec.AbstractText, a.specialty, a.architecture, a.auc, a.accuracy,
		a.codeLinks, string(rec.Classification), a.rawMetadata, string(rec.MetadataStatus), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert record %s", rec.ID)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, id string) (types.Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgRecordColumns+` FROM records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Record{}, eris.Wrapf(ErrNotFound, "postgres: get record %s", id)
	}
	if err != nil {
		return types.Record{}, eris.Wrapf(err, "postgres: get record %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, f Filter) ([]types.Record, error) {
	query := `SELECT ` + pgRecordColumns + ` FROM records WHERE true`
	args := []any{}
	argIdx := 1

	if f.IDPrefix != "" {
		query += fmt.Sprintf(` AND id LIKE $%d ESCAPE '\'`, argIdx)
		args = append(args, likePrefix(f.IDPrefix))
		argIdx++
	}
	if f.Classification != "" {
		query += fmt.Sprintf(` AND classification = $%d`, argIdx)
		args = append(args, string(f.Classification))
		argIdx++
	}
	if f.MissingMetadata {
		query += fmt.Sprintf(` AND metadata_status <> $%d`, argIdx)
		args = append(args, string(types.MetadataEnriched))
		argIdx++
	}
	query += ` ORDER BY id`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, f.Limit)
		argIdx++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, f.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) UpsertEnrichment(ctx context.Context, id string, e types.Enrichment) error {
	a, err := newEnrichmentArgs(e)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert enrichment %s", id)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE records SET
			specialty = COALESCE($1, specialty),
			architecture = COALESCE($2, architecture),
			auc = COALESCE($3, auc),
			accuracy = COALESCE($4, accuracy),
			code_links = COALESCE($5, code_links),
			raw_metadata = COALESCE($6::jsonb, raw_metadata),
			metadata_status = COALESCE($7, metadata_status),
			updated_at = $8
		 WHERE id = $9`,
		a.specialty, a.architecture, a.auc, a.accuracy, a.codeLinks, a.rawMetadata, a.metadataStatus,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert enrichment %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: upsert enrichment %s", id)
	}
	return nil
}

func (s *PostgresStore) SetClassification(ctx context.Context, id string, c types.Classification, runID string) (bool, error) {
	if err := validClassificationTarget(c); err != nil {
		return false, eris.Wrapf(err, "postgres: set classification %s", id)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE records SET classification = $1, classification_run = $2, updated_at = $3
		 WHERE id = $4 AND classification = $5`,
		string(c), runID, time.Now().UTC(), id, string(types.ClassUnclassified),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: set classification %s", id)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM records WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: set classification %s", id)
	}
	if !exists {
		return false, eris.Wrapf(ErrNotFound, "postgres: set classification %s", id)
	}
	return false, nil
}
