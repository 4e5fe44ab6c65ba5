// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/medai-miner/internal/llm"
	"github.com/pdiddy/medai-miner/internal/metrics"
	"github.com/pdiddy/medai-miner/internal/ratelimit"
	"github.com/pdiddy/medai-miner/internal/store"
	"github.com/pdiddy/medai-miner/pkg/types"
)

// Store is the subset of the record store the extraction run needs.
type Store interface {
	ListRecords(ctx context.Context, f store.Filter) ([]types.Record, error)
	UpsertEnrichment(ctx context.Context, id string, e types.Enrichment) error
}

// BatchSummary holds counts from an extraction run.
type BatchSummary struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Total returns the number of records processed.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Skipped + s.Failed
}

// HasFailures reports whether any record failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// Runner drives extraction over many records.
type Runner struct {
	Extractor *Extractor
	Limiter   ratelimit.Limiter
	// Retries is the number of resends after a transient API failure.
	Retries int
}

// ExtractAll extracts metadata for the records selected by cfg: those not
// yet enriched, or every record when cfg.Reprocess is set. Each record moves
// unprocessed -> extracting -> enriched | extraction-failed through its own
// writes. A failed record is counted and the run continues; an
// authentication failure aborts the run.
func (r *Runner) ExtractAll(ctx context.Context, st Store, cfg types.MetadataConfig, w io.Writer) (BatchSummary, error) {
	records, err := st.ListRecords(ctx, store.Filter{
		IDPrefix:        cfg.IDPrefix,
		MissingMetadata: !cfg.Reprocess,
		Offset:          cfg.Offset,
		Limit:           cfg.Limit,
	})
	if err != nil {
		return BatchSummary{}, err
	}

	limiter := r.Limiter
	if limiter == nil {
		limiter = ratelimit.None
	}

	var summary BatchSummary
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if strings.TrimSpace(rec.AbstractText) == "" {
			fmt.Fprintf(w, "skipped %s: no description\n", rec.ID)
			summary.Skipped++
			metrics.RecordProcessed("metadata", "skipped")
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return summary, err
		}

		fmt.Fprintf(w, "extracting %s\n", rec.ID)
		if err := setStatus(ctx, st, rec.ID, types.MetadataExtracting); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", rec.ID, err)
			summary.Failed++
			metrics.RecordProcessed("metadata", "failed")
			continue
		}

		md, err := r.extract(ctx, rec)
		// The record's writes finish even if the run is being cancelled.
		writeCtx := context.WithoutCancel(ctx)

		if llm.IsAuth(err) {
			prev := rec.MetadataStatus
			if prev == "" || prev == types.MetadataExtracting {
				prev = types.MetadataUnprocessed
			}
			if serr := setStatus(writeCtx, st, rec.ID, prev); serr != nil {
				zap.L().Warn("metadata: could not restore status", zap.String("id", rec.ID), zap.Error(serr))
			}
			zap.L().Error("metadata: authentication failed, aborting run", zap.Error(err))
			return summary, err
		}

		if err != nil {
			zap.L().Warn("metadata: extraction failed", zap.String("id", rec.ID), zap.Error(err))
			fmt.Fprintf(w, "failed  %s: %v\n", rec.ID, err)
			summary.Failed++
			metrics.RecordProcessed("metadata", "failed")
			if serr := setStatus(writeCtx, st, rec.ID, types.MetadataFailed); serr != nil {
				zap.L().Warn("metadata: could not mark failure", zap.String("id", rec.ID), zap.Error(serr))
			}
			continue
		}

		if err := st.UpsertEnrichment(writeCtx, rec.ID, enrichmentFor(rec, md)); err != nil {
			zap.L().Warn("metadata: persist failed", zap.String("id", rec.ID), zap.Error(err))
			fmt.Fprintf(w, "failed  %s: write error: %v\n", rec.ID, err)
			summary.Failed++
			metrics.RecordProcessed("metadata", "failed")
			continue
		}

		fmt.Fprintf(w, "extracted %s\n", rec.ID)
		summary.Extracted++
		metrics.RecordProcessed("metadata", "enriched")
	}

	zap.L().Info("metadata: run complete",
		zap.Int("extracted", summary.Extracted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (r *Runner) extract(ctx context.Context, rec types.Record) (*types.StructuredMetadata, error) {
	var md *types.StructuredMetadata
	err := llm.Retry(ctx, r.Retries, func(ctx context.Context) error {
		var err error
		md, err = r.Extractor.Extract(ctx, rec)
		return err
	})
	return md, err
}

func setStatus(ctx context.Context, st Store, id string, s types.MetadataStatus) error {
	return st.UpsertEnrichment(ctx, id, types.Enrichment{MetadataStatus: &s})
}

// enrichmentFor builds the success write: the metadata, the enriched
// status, and any AUC or accuracy the record does not have yet.
func enrichmentFor(rec types.Record, md *types.StructuredMetadata) types.Enrichment {
	status := types.MetadataEnriched
	e := types.Enrichment{RawMetadata: md, MetadataStatus: &status}

	if md.Results == nil {
		return e
	}
	var current types.Metrics
	if rec.Metrics != nil {
		current = *rec.Metrics
	}
	var fill types.Metrics
	if current.AUC == nil && md.Results.AUC != nil {
		fill.AUC = md.Results.AUC
	}
	if current.Accuracy == nil && md.Results.Accuracy != nil {
		fill.Accuracy = md.Results.Accuracy
	}
	if !fill.IsEmpty() {
		e.Metrics = &fill
	}
	return e
}
