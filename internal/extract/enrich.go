// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pdiddy/medai-miner/internal/metrics"
	"github.com/pdiddy/medai-miner/internal/store"
	"github.com/pdiddy/medai-miner/internal/textnorm"
	"github.com/pdiddy/medai-miner/pkg/types"
)

// Enrich runs the heuristic extractors over a record's normalized title and
// abstract and returns the fields to write back. Fields already populated on
// rec are left out unless reprocess is set; an extractor that finds nothing
// never clears a field. Code links are always merged into the existing set.
func Enrich(rec types.Record, reprocess bool) types.Enrichment {
	title := textnorm.Normalize(rec.Title)
	abstract := textnorm.Normalize(rec.AbstractText)
	text := title + " " + abstract

	var e types.Enrichment

	if arch := Architecture(text); arch != "" && arch != rec.Architecture {
		if reprocess || rec.Architecture == "" {
			e.Architecture = &arch
		}
	}

	if spec := Specialty(title, abstract); spec != rec.Specialty {
		if reprocess || rec.Specialty == "" {
			e.Specialty = &spec
		}
	}

	found := Metrics(text)
	var current types.Metrics
	if rec.Metrics != nil {
		current = *rec.Metrics
	}
	var m types.Metrics
	if replaces(found.AUC, current.AUC, reprocess) {
		m.AUC = found.AUC
	}
	if replaces(found.Accuracy, current.Accuracy, reprocess) {
		m.Accuracy = found.Accuracy
	}
	if !m.IsEmpty() {
		e.Metrics = &m
	}

	// Links are taken from the raw text: markup stripping would drop href values.
	links := MergeLinks(rec.CodeLinks, CodeLinks(rec.Title+" "+rec.AbstractText))
	if len(links) > len(rec.CodeLinks) {
		e.CodeLinks = links
	}

	return e
}

func replaces(found, current *float64, reprocess bool) bool {
	if found == nil {
		return false
	}
	if current == nil {
		return true
	}
	return reprocess && *found != *current
}

// EnrichStore is the subset of the record store the enrichment run needs.
type EnrichStore interface {
	ListRecords(ctx context.Context, f store.Filter) ([]types.Record, error)
	UpsertEnrichment(ctx context.Context, id string, e types.Enrichment) error
}

// EnrichSummary holds counts from an enrichment run.
type EnrichSummary struct {
	Enriched  int
	Unchanged int
	Failed    int
}

// Total returns the number of records processed.
func (s EnrichSummary) Total() int {
	return s.Enriched + s.Unchanged + s.Failed
}

// EnrichAll enriches every record selected by cfg and writes each result as
// its own idempotent update. A store failure for one record is reported and
// counted; the run continues with the next record. Cancellation is checked
// between records.
func EnrichAll(ctx context.Context, st EnrichStore, cfg types.EnrichConfig, w io.Writer) (EnrichSummary, error) {
	records, err := st.ListRecords(ctx, store.Filter{
		IDPrefix: cfg.IDPrefix,
		Offset:   cfg.Offset,
		Limit:    cfg.Limit,
	})
	if err != nil {
		return EnrichSummary{}, err
	}

	var summary EnrichSummary
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		e := Enrich(rec, cfg.Reprocess)
		if e.IsEmpty() {
			fmt.Fprintf(w, "unchanged %s\n", rec.ID)
			summary.Unchanged++
			metrics.RecordProcessed("enrich", "unchanged")
			continue
		}

		if err := st.UpsertEnrichment(ctx, rec.ID, e); err != nil {
			zap.L().Warn("enrich: persist failed", zap.String("id", rec.ID), zap.Error(err))
			fmt.Fprintf(w, "failed  %s: %v\n", rec.ID, err)
			summary.Failed++
			metrics.RecordProcessed("enrich", "failed")
			continue
		}

		fmt.Fprintf(w, "enriched %s%s\n", rec.ID, describe(e))
		summary.Enriched++
		metrics.RecordProcessed("enrich", "enriched")
	}

	zap.L().Info("enrich: run complete",
		zap.Int("enriched", summary.Enriched),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// describe renders the populated fields of e for a progress line.
func describe(e types.Enrichment) string {
	var s string
	if e.Architecture != nil {
		s += " architecture=" + *e.Architecture
	}
	if e.Specialty != nil {
		s += " specialty=" + string(*e.Specialty)
	}
	if e.Metrics != nil {
		if e.Metrics.AUC != nil {
			s += fmt.Sprintf(" auc=%.4g", *e.Metrics.AUC)
		}
		if e.Metrics.Accuracy != nil {
			s += fmt.Sprintf(" accuracy=%.4g", *e.Metrics.Accuracy)
		}
	}
	if len(e.CodeLinks) > 0 {
		s += fmt.Sprintf(" links=%d", len(e.CodeLinks))
	}
	return s
}
