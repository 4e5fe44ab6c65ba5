// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists Records and their enrichment fields. Every write is
// a single-record statement, so a failure mid-run never rolls back records
// that were already enriched or classified.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/medai-miner/pkg/types"
)

// ErrNotFound is returned when a record id is not in the store.
var ErrNotFound = eris.New("record not found")

// Filter selects records for a pipeline stage. Zero values match everything.
type Filter struct {
	// IDPrefix restricts to ids starting with the prefix (e.g. "arxiv:").
	IDPrefix string `json:"id_prefix,omitempty"`

	// Classification restricts to one classification state.
	Classification types.Classification `json:"classification,omitempty"`

	// MissingMetadata restricts to records whose metadata status is not enriched.
	MissingMetadata bool `json:"missing_metadata,omitempty"`

	Offset int `json:"offset,omitempty"`

	// Limit caps the number of records; zero or negative means no cap.
	Limit int `json:"limit,omitempty"`
}

// Store is the persistence collaborator of the pipeline.
type Store interface {
	// InsertRecord adds rec if its id is not present. Existing records are
	// left untouched and created is false.
	InsertRecord(ctx context.Context, rec types.Record) (created bool, err error)

	// GetRecord returns the record with id or ErrNotFound.
	GetRecord(ctx context.Context, id string) (types.Record, error)

	// ListRecords returns records matching f ordered by id.
	ListRecords(ctx context.Context, f Filter) ([]types.Record, error)

	// UpsertEnrichment merges the non-nil fields of e into the record.
	// Applying the same enrichment twice leaves the record unchanged.
	UpsertEnrichment(ctx context.Context, id string, e types.Enrichment) error

	// SetClassification moves an unclassified record to c. It reports false
	// when the record was already classified.
	SetClassification(ctx context.Context, id string, c types.Classification, runID string) (applied bool, err error)

	Close() error
}

// Open returns the store selected by cfg and ensures its schema exists.
func Open(ctx context.Context, cfg types.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case types.StoreSQLite, "":
		st, err := NewSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	case types.StorePostgres:
		st, err := NewPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// recordColumns is the select list shared by both implementations and read
// by scanRecord.
const recordColumns = `id, source, title, abstract, specialty, architecture, auc, accuracy,
	code_links, classification, raw_metadata, metadata_status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (types.Record, error) {
	var (
		rec                      types.Record
		specialty, architecture  *string
		auc, accuracy            *float64
		codeLinks, rawMetadata   *string
		classification, mdStatus string
	)
	if err := row.Scan(
		&rec.ID, &rec.Source, &rec.Title, &rec.AbstractText,
		&specialty, &architecture, &auc, &accuracy,
		&codeLinks, &classification, &rawMetadata, &mdStatus,
		&rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return types.Record{}, err
	}

	if specialty != nil {
		rec.Specialty = types.Specialty(*specialty)
	}
	if architecture != nil {
		rec.Architecture = *architecture
	}
	if auc != nil || accuracy != nil {
		rec.Metrics = &types.Metrics{AUC: auc, Accuracy: accuracy}
	}
	if codeLinks != nil && *codeLinks != "" {
		if err := json.Unmarshal([]byte(*codeLinks), &rec.CodeLinks); err != nil {
			return types.Record{}, eris.Wrapf(err, "decode code_links of %s", rec.ID)
		}
	}
	rec.Classification = types.Classification(classification)
	if rawMetadata != nil && *rawMetadata != "" {
		rec.RawMetadata = &types.StructuredMetadata{}
		if err := json.Unmarshal([]byte(*rawMetadata), rec.RawMetadata); err != nil {
			return types.Record{}, eris.Wrapf(err, "decode raw_metadata of %s", rec.ID)
		}
	}
	rec.MetadataStatus = types.MetadataStatus(mdStatus)
	return rec, nil
}

// enrichmentArgs holds the column values of an enrichment; nil leaves the
// column unchanged through COALESCE.
type enrichmentArgs struct {
	specialty      *string
	architecture   *string
	auc            *float64
	accuracy       *float64
	codeLinks      *string
	rawMetadata    *string
	metadataStatus *string
}

func newEnrichmentArgs(e types.Enrichment) (enrichmentArgs, error) {
	if err := e.Validate(); err != nil {
		return enrichmentArgs{}, eris.Wrap(err, "invalid enrichment")
	}
	var a enrichmentArgs
	if e.Specialty != nil {
		a.specialty = types.Ptr(string(*e.Specialty))
	}
	a.architecture = e.Architecture
	if e.Metrics != nil {
		a.auc = e.Metrics.AUC
		a.accuracy = e.Metrics.Accuracy
	}
	if e.CodeLinks != nil {
		data, err := json.Marshal(e.CodeLinks)
		if err != nil {
			return enrichmentArgs{}, eris.Wrap(err, "encode code_links")
		}
		a.codeLinks = types.Ptr(string(data))
	}
	if e.RawMetadata != nil {
		data, err := json.Marshal(e.RawMetadata)
		if err != nil {
			return enrichmentArgs{}, eris.Wrap(err, "encode raw_metadata")
		}
		a.rawMetadata = types.Ptr(string(data))
	}
	if e.MetadataStatus != nil {
		a.metadataStatus = types.Ptr(string(*e.MetadataStatus))
	}
	return a, nil
}

// prepareInsert fills lifecycle defaults and validates a new record.
func prepareInsert(rec types.Record, now time.Time) (types.Record, enrichmentArgs, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return rec, enrichmentArgs{}, eris.New("record id is required")
	}
	if strings.TrimSpace(rec.Title) == "" {
		return rec, enrichmentArgs{}, eris.Errorf("record %s: title is required", rec.ID)
	}
	if rec.Classification == "" {
		rec.Classification = types.ClassUnclassified
	}
	if !rec.Classification.Valid() {
		return rec, enrichmentArgs{}, eris.Errorf("record %s: unknown classification %q", rec.ID, rec.Classification)
	}
	if rec.MetadataStatus == "" {
		rec.MetadataStatus = types.MetadataUnprocessed
	}
	rec.CreatedAt, rec.UpdatedAt = now, now

	e := types.Enrichment{
		Metrics:        rec.Metrics,
		CodeLinks:      rec.CodeLinks,
		RawMetadata:    rec.RawMetadata,
		MetadataStatus: &rec.MetadataStatus,
	}
	if rec.Specialty != "" {
		e.Specialty = &rec.Specialty
	}
	if rec.Architecture != "" {
		e.Architecture = &rec.Architecture
	}
	a, err := newEnrichmentArgs(e)
	if err != nil {
		return rec, enrichmentArgs{}, eris.Wrapf(err, "record %s", rec.ID)
	}
	return rec, a, nil
}

func validClassificationTarget(c types.Classification) error {
	if c != types.ClassKeep && c != types.ClassRemove {
		return eris.Errorf("classification must be keep or remove, got %q", c)
	}
	return nil
}

// likePrefix escapes LIKE metacharacters in p and appends the wildcard.
func likePrefix(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(p) + "%"
}
