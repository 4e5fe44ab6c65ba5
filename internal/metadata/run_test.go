// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/medai-miner/internal/llm"
	"github.com/pdiddy/medai-miner/internal/store"
	"github.com/pdiddy/medai-miner/pkg/types"
)

func TestMain(m *testing.M) {
	llm.BackoffBase = time.Millisecond
	os.Exit(m.Run())
}

type fakeStore struct {
	records []types.Record
	filter  store.Filter
	// statuses records every status written per id, in order.
	statuses map[string][]types.MetadataStatus
	written  map[string]types.Enrichment
	failID   string
}

func (f *fakeStore) ListRecords(_ context.Context, filter store.Filter) ([]types.Record, error) {
	f.filter = filter
	return f.records, nil
}

func (f *fakeStore) UpsertEnrichment(_ context.Context, id string, e types.Enrichment) error {
	if f.statuses == nil {
		f.statuses = make(map[string][]types.MetadataStatus)
		f.written = make(map[string]types.Enrichment)
	}
	if id == f.failID && e.RawMetadata != nil {
		return errors.New("disk full")
	}
	if e.MetadataStatus != nil {
		f.statuses[id] = append(f.statuses[id], *e.MetadataStatus)
	}
	if e.RawMetadata != nil {
		f.written[id] = e
	}
	return nil
}

// funcCompleter answers each request with the function for the record
// whose name appears in the prompt.
type funcCompleter struct {
	byName map[string]func() (string, error)
	calls  int
}

func (f *funcCompleter) Complete(_ context.Context, req llm.Request) (llm.Completion, error) {
	f.calls++
	for name, fn := range f.byName {
		if strings.Contains(req.Prompt, "Name: "+name+"\n") {
			text, err := fn()
			return llm.Completion{Text: text}, err
		}
	}
	return llm.Completion{}, errors.New("unexpected prompt")
}

func answer(text string) func() (string, error) {
	return func() (string, error) { return text, nil }
}

func failWith(err error) func() (string, error) {
	return func() (string, error) { return "", err }
}

type countingLimiter struct{ waits int }

func (c *countingLimiter) Wait(ctx context.Context) error {
	c.waits++
	return ctx.Err()
}

func ptr[T any](v T) *T { return &v }

func TestExtractAll(t *testing.T) {
	fs := &fakeStore{records: []types.Record{
		{ID: "hf:1", Title: "Pneumonia detector", AbstractText: "DenseNet on chest X-rays."},
		{ID: "hf:2", Title: "Empty card", AbstractText: "  "},
		{ID: "hf:3", Title: "Retina model", AbstractText: "Fundus images.",
			Metrics: &types.Metrics{AUC: ptr(0.8)}},
		{ID: "hf:4", Title: "Skin lesions", AbstractText: "Dermoscopy."},
	}}
	fc := &funcCompleter{byName: map[string]func() (string, error){
		"Pneumonia detector": answer("```json\n" + sampleJSON + "\n```"),
		"Retina model":       answer(`{"results": {"auc": 0.93, "accuracy": "88%"}}`),
		"Skin lesions":       answer("Sorry, the description has no metadata."),
	}}
	lim := &countingLimiter{}
	r := &Runner{Extractor: NewExtractor(fc, types.MetadataConfig{}), Limiter: lim}

	var buf bytes.Buffer
	summary, err := r.ExtractAll(context.Background(), fs,
		types.MetadataConfig{IDPrefix: "hf:", Offset: 2, Limit: 10}, &buf)
	require.NoError(t, err)

	assert.Equal(t, BatchSummary{Extracted: 2, Skipped: 1, Failed: 1}, summary)
	assert.Equal(t, 4, summary.Total())
	assert.True(t, summary.HasFailures())
	assert.Equal(t, 3, lim.waits, "skipped records are not rate limited")
	assert.Equal(t, 3, fc.calls)

	assert.True(t, fs.filter.MissingMetadata)
	assert.Equal(t, "hf:", fs.filter.IDPrefix)
	assert.Equal(t, 2, fs.filter.Offset)
	assert.Equal(t, 10, fs.filter.Limit)

	assert.Equal(t, []types.MetadataStatus{types.MetadataExtracting, types.MetadataEnriched}, fs.statuses["hf:1"])
	assert.Empty(t, fs.statuses["hf:2"])
	assert.Equal(t, []types.MetadataStatus{types.MetadataExtracting, types.MetadataFailed}, fs.statuses["hf:4"])

	first := fs.written["hf:1"]
	require.NotNil(t, first.Metrics)
	assert.InDelta(t, 0.94, *first.Metrics.AUC, 1e-9, "missing AUC is filled from results")
	assert.Nil(t, first.Metrics.Accuracy)

	third := fs.written["hf:3"]
	require.NotNil(t, third.Metrics)
	assert.Nil(t, third.Metrics.AUC, "existing AUC is not overwritten")
	assert.InDelta(t, 0.88, *third.Metrics.Accuracy, 1e-9)

	out := buf.String()
	for _, want := range []string{
		"extracting hf:1",
		"extracted hf:1",
		"skipped hf:2: no description",
		"failed  hf:4: unparseable metadata response",
	} {
		assert.Contains(t, out, want)
	}
}

func TestExtractAllReprocess(t *testing.T) {
	fs := &fakeStore{}
	r := &Runner{Extractor: NewExtractor(&funcCompleter{}, types.MetadataConfig{})}

	_, err := r.ExtractAll(context.Background(), fs, types.MetadataConfig{Reprocess: true}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.False(t, fs.filter.MissingMetadata)
}

func TestExtractAllRetriesTransient(t *testing.T) {
	attempts := 0
	fs := &fakeStore{records: []types.Record{{ID: "hf:1", Title: "Model", AbstractText: "text"}}}
	fc := &funcCompleter{byName: map[string]func() (string, error){
		"Model": func() (string, error) {
			attempts++
			if attempts < 3 {
				return "", &llm.APIError{Kind: llm.KindTransient, StatusCode: 529, Err: errors.New("overloaded")}
			}
			return `{"methodology": {"task": "detection"}}`, nil
		},
	}}
	r := &Runner{Extractor: NewExtractor(fc, types.MetadataConfig{}), Retries: 3}

	summary, err := r.ExtractAll(context.Background(), fs, types.MetadataConfig{}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Extracted)
	assert.Equal(t, 3, attempts)
}

func TestExtractAllAbortsOnAuth(t *testing.T) {
	authErr := &llm.APIError{Kind: llm.KindAuth, StatusCode: 401, Err: errors.New("invalid x-api-key")}
	fs := &fakeStore{records: []types.Record{
		{ID: "hf:1", Title: "First", AbstractText: "a", MetadataStatus: types.MetadataFailed},
		{ID: "hf:2", Title: "Second", AbstractText: "b"},
	}}
	fc := &funcCompleter{byName: map[string]func() (string, error){
		"First":  failWith(authErr),
		"Second": answer(`{"methodology": {"task": "x"}}`),
	}}
	r := &Runner{Extractor: NewExtractor(fc, types.MetadataConfig{}), Retries: 2}

	summary, err := r.ExtractAll(context.Background(), fs, types.MetadataConfig{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, llm.IsAuth(err))
	assert.Equal(t, 1, fc.calls, "auth errors are not retried")
	assert.Equal(t, 0, summary.Total())
	assert.Equal(t, []types.MetadataStatus{types.MetadataExtracting, types.MetadataFailed}, fs.statuses["hf:1"],
		"previous status is restored")
	assert.Empty(t, fs.statuses["hf:2"])
}

func TestExtractAllWriteFailure(t *testing.T) {
	fs := &fakeStore{
		records: []types.Record{{ID: "hf:1", Title: "Model", AbstractText: "text"}},
		failID:  "hf:1",
	}
	fc := &funcCompleter{byName: map[string]func() (string, error){
		"Model": answer(`{"methodology": {"task": "x"}}`),
	}}
	r := &Runner{Extractor: NewExtractor(fc, types.MetadataConfig{})}

	var buf bytes.Buffer
	summary, err := r.ExtractAll(context.Background(), fs, types.MetadataConfig{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, buf.String(), "failed  hf:1: write error: disk full")
}

func TestExtractAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fs := &fakeStore{records: []types.Record{
		{ID: "hf:1", Title: "First", AbstractText: "a"},
		{ID: "hf:2", Title: "Second", AbstractText: "b"},
	}}
	fc := &funcCompleter{byName: map[string]func() (string, error){
		"First": func() (string, error) {
			cancel()
			return `{"methodology": {"task": "x"}}`, nil
		},
		"Second": answer(`{"methodology": {"task": "y"}}`),
	}}
	r := &Runner{Extractor: NewExtractor(fc, types.MetadataConfig{})}

	summary, err := r.ExtractAll(ctx, fs, types.MetadataConfig{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Extracted, "the in-flight record is finished")
	assert.Equal(t, 1, fc.calls)
}
