// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/medai-miner/internal/llm"
	"github.com/pdiddy/medai-miner/internal/metrics"
	"github.com/pdiddy/medai-miner/internal/store"
	"github.com/pdiddy/medai-miner/pkg/types"
)

// Store is the subset of the record store a classification run needs.
type Store interface {
	ListRecords(ctx context.Context, f store.Filter) ([]types.Record, error)
	SetClassification(ctx context.Context, id string, c types.Classification, runID string) (bool, error)
}

// RunSummary holds counts from a classification run.
type RunSummary struct {
	RunID string

	// TitleRemoved counts records removed by the title filter.
	TitleRemoved int
	Kept         int
	Removed      int
	Undecided    int

	// Stale counts decisions not applied because the record had already
	// left the unclassified state.
	Stale int

	FailedWrites  int
	FailedBatches int
}

// Total returns the number of records that received a decision or were
// left undecided.
func (s RunSummary) Total() int {
	return s.TitleRemoved + s.Kept + s.Removed + s.Undecided + s.Stale + s.FailedWrites
}

// Run classifies the unclassified records selected by cfg. Titles are
// filtered first; survivors go to the language model in batches and every
// decision is persisted as soon as its batch returns. A failed batch is
// reported and the run moves on to the next one, except for an
// authentication failure, which aborts the run.
func Run(ctx context.Context, st Store, cl *Classifier, cfg types.ClassifyConfig, w io.Writer) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString()}
	log := zap.L().With(zap.String("run_id", summary.RunID))

	records, err := st.ListRecords(ctx, store.Filter{
		IDPrefix:       cfg.IDPrefix,
		Classification: types.ClassUnclassified,
		Offset:         cfg.Offset,
		Limit:          cfg.Limit,
	})
	if err != nil {
		return summary, err
	}
	fmt.Fprintf(w, "run %s: %d unclassified records\n", summary.RunID, len(records))

	survivors, titleRemoved := FilterByTitle(records)
	if err := removeByTitle(ctx, st, titleRemoved, summary.RunID, false, w, &summary); err != nil {
		return summary, err
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batches := (len(survivors) + batchSize - 1) / batchSize

	// Decisions of a batch that was in flight when the run was cancelled
	// are still written.
	writeCtx := context.WithoutCancel(ctx)
	onBatch := func(b BatchResult) error {
		apply := func(ids []string, c types.Classification) {
			for _, id := range ids {
				switch persist(writeCtx, st, id, c, summary.RunID, &summary) {
				case outcomeApplied:
					fmt.Fprintf(w, "%s %s\n", c, id)
					if c == types.ClassKeep {
						summary.Kept++
					} else {
						summary.Removed++
					}
					metrics.RecordProcessed("classify", string(c))
				case outcomeFailed:
					fmt.Fprintf(w, "failed  %s: could not store decision\n", id)
				}
			}
		}
		apply(b.KeepIDs, types.ClassKeep)
		apply(b.RemoveIDs, types.ClassRemove)
		for _, id := range b.Undecided {
			fmt.Fprintf(w, "undecided %s\n", id)
			metrics.RecordProcessed("classify", "undecided")
		}
		summary.Undecided += len(b.Undecided)

		fmt.Fprintf(w, "batch %d/%d: %d keep, %d remove, %d undecided\n",
			b.Index+1, batches, len(b.KeepIDs), len(b.RemoveIDs), len(b.Undecided))
		return nil
	}

	remaining, first := survivors, 0
	for len(remaining) > 0 {
		err := cl.stream(ctx, remaining, batchSize, first, onBatch)
		if err == nil {
			break
		}

		var be *BatchError
		if !errors.As(err, &be) {
			return summary, err
		}
		if llm.IsAuth(be.Err) {
			log.Error("classify: authentication failed, aborting run", zap.Error(be.Err))
			return summary, err
		}

		log.Warn("classify: batch failed", zap.Int("batch", be.Index), zap.Error(be.Err))
		fmt.Fprintf(w, "failed  batch %d/%d: %v\n", be.Index+1, batches, be.Err)
		summary.FailedBatches++
		metrics.RecordProcessed("classify", "batch_failed")

		skip := (be.Index - first + 1) * batchSize
		if skip >= len(remaining) {
			break
		}
		remaining, first = remaining[skip:], be.Index+1
	}

	log.Info("classify: run complete",
		zap.Int("title_removed", summary.TitleRemoved),
		zap.Int("kept", summary.Kept),
		zap.Int("removed", summary.Removed),
		zap.Int("undecided", summary.Undecided),
		zap.Int("failed_batches", summary.FailedBatches),
	)
	return summary, nil
}

// FilterTitles applies only the title filter to the unclassified records
// selected by cfg. With dryRun set nothing is written and the would-be
// removals are reported.
func FilterTitles(ctx context.Context, st Store, cfg types.ClassifyConfig, dryRun bool, w io.Writer) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString()}
	records, err := st.ListRecords(ctx, store.Filter{
		IDPrefix:       cfg.IDPrefix,
		Classification: types.ClassUnclassified,
		Offset:         cfg.Offset,
		Limit:          cfg.Limit,
	})
	if err != nil {
		return summary, err
	}

	survivors, titleRemoved := FilterByTitle(records)
	if err := removeByTitle(ctx, st, titleRemoved, summary.RunID, dryRun, w, &summary); err != nil {
		return summary, err
	}
	summary.Undecided = len(survivors)
	return summary, nil
}

func removeByTitle(ctx context.Context, st Store, records []types.Record, runID string, dryRun bool, w io.Writer, s *RunSummary) error {
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		v := CheckTitle(r.Title)
		if dryRun {
			fmt.Fprintf(w, "would remove %s (title: %s)\n", r.ID, v.Excluded)
			s.TitleRemoved++
			continue
		}
		switch persist(ctx, st, r.ID, types.ClassRemove, runID, s) {
		case outcomeApplied:
			fmt.Fprintf(w, "removed %s (title: %s)\n", r.ID, v.Excluded)
			s.TitleRemoved++
			metrics.RecordProcessed("classify", "title_removed")
		case outcomeFailed:
			fmt.Fprintf(w, "failed  %s: could not store decision\n", r.ID)
		}
	}
	return nil
}

type outcome int

const (
	outcomeApplied outcome = iota
	outcomeStale
	outcomeFailed
)

// persist writes one decision as its own statement. Failures are logged and
// counted so the run can continue with the next record.
func persist(ctx context.Context, st Store, id string, c types.Classification, runID string, s *RunSummary) outcome {
	applied, err := st.SetClassification(ctx, id, c, runID)
	if err != nil {
		zap.L().Warn("classify: persist failed", zap.String("id", id), zap.Error(err))
		s.FailedWrites++
		metrics.RecordProcessed("classify", "failed")
		return outcomeFailed
	}
	if !applied {
		s.Stale++
		return outcomeStale
	}
	return outcomeApplied
}
