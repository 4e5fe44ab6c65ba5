// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source harvests candidate records from paper search APIs and
// inserts the ones the store has not seen before.
package source

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pdiddy/medai-miner/internal/extract"
	"github.com/pdiddy/medai-miner/internal/metrics"
	"github.com/pdiddy/medai-miner/internal/textnorm"
	"github.com/pdiddy/medai-miner/pkg/types"
)

const defaultMaxResults = 50

// Backend searches a single paper API.
type Backend interface {
	Name() string
	Search(ctx context.Context, query Query, cfg types.HarvestConfig) ([]types.SearchResult, error)
}

// Query holds the search parameters for one harvest.
type Query struct {
	FreeText string
	Keywords []string
	DateFrom time.Time
	DateTo   time.Time
}

// IsEmpty reports whether the query has no searchable terms.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.FreeText) == "" && len(q.Keywords) == 0
}

func (q Query) String() string {
	return strings.TrimSpace(strings.Join(append([]string{q.FreeText}, q.Keywords...), " "))
}

// Inserter is the subset of the record store harvesting needs.
type Inserter interface {
	InsertRecord(ctx context.Context, rec types.Record) (bool, error)
}

// Summary holds counts from a harvest.
type Summary struct {
	Found          int
	Duplicates     int
	Created        int
	Existing       int
	FailedWrites   int
	FailedBackends []string
}

// Add accumulates o into s, for runs over several queries.
func (s *Summary) Add(o Summary) {
	s.Found += o.Found
	s.Duplicates += o.Duplicates
	s.Created += o.Created
	s.Existing += o.Existing
	s.FailedWrites += o.FailedWrites
	s.FailedBackends = append(s.FailedBackends, o.FailedBackends...)
}

// Harvest queries each backend in turn, waiting cfg.InterBackendDelay
// between them, deduplicates the results by id and normalized title, and
// inserts every result as a new record. Records already in the store are
// left untouched. A failing backend is reported and skipped; Harvest fails
// only when the query is empty or every backend failed.
func Harvest(ctx context.Context, st Inserter, backends []Backend, query Query, cfg types.HarvestConfig, w io.Writer) (Summary, error) {
	if query.IsEmpty() {
		return Summary{}, eris.New("query is empty")
	}
	if len(backends) == 0 {
		return Summary{}, eris.New("no harvest backends enabled")
	}

	var (
		summary Summary
		all     []types.SearchResult
	)
	for i, b := range backends {
		if i > 0 {
			if err := sleep(ctx, cfg.InterBackendDelay); err != nil {
				return summary, err
			}
		}
		results, err := b.Search(ctx, query, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			zap.L().Warn("harvest: backend failed", zap.String("backend", b.Name()), zap.Error(err))
			fmt.Fprintf(w, "warning: backend %s failed: %v\n", b.Name(), err)
			summary.FailedBackends = append(summary.FailedBackends, b.Name())
			continue
		}
		fmt.Fprintf(w, "%s: %d results for %q\n", b.Name(), len(results), query.String())
		all = append(all, results...)
	}
	if len(summary.FailedBackends) == len(backends) {
		return summary, eris.Errorf("all %d backends failed", len(backends))
	}

	deduped, removed := deduplicate(all)
	summary.Found = len(all)
	summary.Duplicates = removed

	for _, r := range deduped {
		rec := toRecord(r)
		created, err := st.InsertRecord(ctx, rec)
		switch {
		case err != nil:
			zap.L().Warn("harvest: insert failed", zap.String("id", rec.ID), zap.Error(err))
			fmt.Fprintf(w, "failed  %s: %v\n", rec.ID, err)
			summary.FailedWrites++
			metrics.RecordProcessed("harvest", "failed")
		case created:
			fmt.Fprintf(w, "created %s\n", rec.ID)
			summary.Created++
			metrics.RecordProcessed("harvest", "created")
		default:
			summary.Existing++
			metrics.RecordProcessed("harvest", "existing")
		}
	}

	zap.L().Info("harvest: query complete",
		zap.String("query", query.String()),
		zap.Int("found", summary.Found),
		zap.Int("created", summary.Created),
		zap.Int("existing", summary.Existing),
	)
	return summary, nil
}

// toRecord builds the stored record: text is normalized and code links are
// taken from the raw title and abstract before markup is stripped.
func toRecord(r types.SearchResult) types.Record {
	rec := r.ToRecord()
	rec.Title = textnorm.Normalize(r.Title)
	rec.AbstractText = textnorm.Normalize(r.Abstract)
	rec.CodeLinks = extract.CodeLinks(r.Title + "\n" + r.Abstract)
	return rec
}

// deduplicate drops results that share an id or a normalized title with an
// earlier result, filling the kept result's empty fields from the dropped one.
func deduplicate(results []types.SearchResult) ([]types.SearchResult, int) {
	seen := make(map[string]int) // key -> index in deduped
	var deduped []types.SearchResult
	removed := 0

	for _, r := range results {
		idKey := ""
		if r.ID != "" {
			idKey = "id:" + strings.ToLower(r.ID)
		}
		titleKey := ""
		if t := NormalizeTitle(r.Title); t != "" {
			titleKey = "title:" + t
		}

		idx, dup := seen[idKey]
		if !dup && titleKey != "" {
			idx, dup = seen[titleKey]
		}
		if dup {
			mergeInto(&deduped[idx], r)
			removed++
		} else {
			idx = len(deduped)
			deduped = append(deduped, r)
		}
		// The same paper may carry another id in a later backend.
		if idKey != "" {
			seen[idKey] = idx
		}
		if titleKey != "" {
			seen[titleKey] = idx
		}
	}
	return deduped, removed
}

func mergeInto(dst *types.SearchResult, src types.SearchResult) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if dst.Date.IsZero() {
		dst.Date = src.Date
	}
}

// NormalizeTitle returns the title with markup removed, lowercased, and
// stripped of punctuation, for duplicate detection.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(textnorm.Normalize(title)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func maxResults(cfg types.HarvestConfig) int {
	if cfg.MaxResults <= 0 {
		return defaultMaxResults
	}
	return cfg.MaxResults
}
