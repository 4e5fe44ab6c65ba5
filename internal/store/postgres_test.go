// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/medai-miner/pkg/types"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

var recordColumnNames = []string{
	"id", "source", "title", "abstract", "specialty", "architecture", "auc", "accuracy",
	"code_links", "classification", "raw_metadata", "metadata_status", "created_at", "updated_at",
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS records`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertRecord(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO records .* ON CONFLICT \(id\) DO NOTHING`).
		WithArgs("pubmed:1", "pubmed", "Title", "", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), "unclassified", pgxmock.AnyArg(), "unprocessed", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO records`).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := s.InsertRecord(ctx, types.Record{ID: "pubmed:1", Source: "pubmed", Title: "Title"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.InsertRecord(ctx, types.Record{ID: "pubmed:1", Source: "pubmed", Title: "Title"})
	require.NoError(t, err)
	assert.False(t, created)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRecord(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, source, .*raw_metadata::text.* FROM records WHERE id = \$1`).
		WithArgs("arxiv:1").
		WillReturnRows(pgxmock.NewRows(recordColumnNames).AddRow(
			"arxiv:1", "arxiv", "Title", "Abstract",
			types.Ptr("Radiology"), types.Ptr("ResNet-50"), types.Ptr(0.94), nil,
			types.Ptr(`["https://github.com/a/b"]`), "keep",
			types.Ptr(`{"version":1,"results":{"auc":0.94}}`), "enriched", now, now,
		))

	rec, err := s.GetRecord(context.Background(), "arxiv:1")
	require.NoError(t, err)
	assert.Equal(t, types.SpecialtyRadiology, rec.Specialty)
	assert.Equal(t, "ResNet-50", rec.Architecture)
	require.NotNil(t, rec.Metrics)
	assert.Equal(t, 0.94, *rec.Metrics.AUC)
	assert.Nil(t, rec.Metrics.Accuracy)
	assert.Equal(t, []string{"https://github.com/a/b"}, rec.CodeLinks)
	assert.Equal(t, types.ClassKeep, rec.Classification)
	require.NotNil(t, rec.RawMetadata)
	assert.Equal(t, 0.94, *rec.RawMetadata.Results.AUC)
	assert.Equal(t, types.MetadataEnriched, rec.MetadataStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRecord_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM records WHERE id = \$1`).
		WithArgs("arxiv:404").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRecord(context.Background(), "arxiv:404")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound), "err = %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRecords(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM records WHERE true AND id LIKE \$1 ESCAPE .* AND classification = \$2 AND metadata_status <> \$3 ORDER BY id LIMIT \$4 OFFSET \$5`).
		WithArgs(`arxiv\_x:%`, "unclassified", "enriched", 10, 5).
		WillReturnRows(pgxmock.NewRows(recordColumnNames).
			AddRow("arxiv_x:1", "arxiv", "A", "", nil, nil, nil, nil, nil, "unclassified", nil, "unprocessed", now, now).
			AddRow("arxiv_x:2", "arxiv", "B", "", nil, nil, nil, nil, nil, "unclassified", nil, "extraction-failed", now, now))

	recs, err := s.ListRecords(context.Background(), Filter{
		IDPrefix:        "arxiv_x:",
		Classification:  types.ClassUnclassified,
		MissingMetadata: true,
		Offset:          5,
		Limit:           10,
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "arxiv_x:1", recs[0].ID)
	assert.Nil(t, recs[0].Metrics)
	assert.Equal(t, types.MetadataFailed, recs[1].MetadataStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertEnrichment(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE records SET\s+specialty = COALESCE\(\$1, specialty\)`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "pubmed:1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE records SET`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	e := types.Enrichment{Architecture: types.Ptr("U-Net"), MetadataStatus: types.Ptr(types.MetadataExtracting)}
	require.NoError(t, s.UpsertEnrichment(ctx, "pubmed:1", e))

	err := s.UpsertEnrichment(ctx, "pubmed:404", e)
	assert.True(t, errors.Is(err, ErrNotFound), "err = %v", err)

	err = s.UpsertEnrichment(ctx, "pubmed:1", types.Enrichment{Specialty: types.Ptr(types.Specialty("Astrology"))})
	assert.Error(t, err, "invalid enrichment must be rejected before any query")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetClassification(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE records SET classification = \$1, classification_run = \$2, updated_at = \$3\s+WHERE id = \$4 AND classification = \$5`).
		WithArgs("keep", "run-1", pgxmock.AnyArg(), "hf:a", "unclassified").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectExec(`UPDATE records SET classification`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("hf:a").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectExec(`UPDATE records SET classification`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("hf:missing").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	applied, err := s.SetClassification(ctx, "hf:a", types.ClassKeep, "run-1")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.SetClassification(ctx, "hf:a", types.ClassRemove, "run-2")
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = s.SetClassification(ctx, "hf:missing", types.ClassRemove, "run-2")
	assert.True(t, errors.Is(err, ErrNotFound), "err = %v", err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
