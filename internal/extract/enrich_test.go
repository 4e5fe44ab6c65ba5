// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/pdiddy/medai-miner/internal/store"
	"github.com/pdiddy/medai-miner/pkg/types"
)

const pneumoniaAbstract = "Our ResNet-50 model achieved an AUC of 0.94 (94%) for pneumonia detection on chest X-rays. Code: https://github.com/lab/pneumo."

func TestEnrichEndToEnd(t *testing.T) {
	rec := types.Record{ID: "pubmed:1", Title: "Pneumonia detection", AbstractText: pneumoniaAbstract}

	e := Enrich(rec, false)

	if e.Architecture == nil || *e.Architecture != "ResNet-50" {
		t.Errorf("Architecture = %v, want ResNet-50", e.Architecture)
	}
	if e.Specialty == nil || *e.Specialty != types.SpecialtyRadiology {
		t.Errorf("Specialty = %v, want Radiology", e.Specialty)
	}
	if e.Metrics == nil {
		t.Fatal("Metrics = nil")
	}
	if e.Metrics.AUC == nil || *e.Metrics.AUC != 0.94 {
		t.Errorf("AUC = %s, want 0.94", fmtMetric(e.Metrics.AUC))
	}
	if e.Metrics.Accuracy != nil {
		t.Errorf("Accuracy = %s, want nil", fmtMetric(e.Metrics.Accuracy))
	}
	if want := []string{"https://github.com/lab/pneumo"}; !reflect.DeepEqual(e.CodeLinks, want) {
		t.Errorf("CodeLinks = %v, want %v", e.CodeLinks, want)
	}
}

func TestEnrichNormalizesMarkup(t *testing.T) {
	rec := types.Record{
		ID:           "arxiv:1",
		Title:        "Res&lt;b&gt;Net-50&lt;/b&gt; on X&#8209;ray",
		AbstractText: "<p>accuracy&nbsp;of 93%</p>",
	}
	e := Enrich(rec, false)
	if e.Metrics == nil || e.Metrics.Accuracy == nil || *e.Metrics.Accuracy != 0.93 {
		t.Errorf("Metrics = %+v, want accuracy 0.93", e.Metrics)
	}
}

func TestEnrichKeepsPopulatedFields(t *testing.T) {
	spec := types.SpecialtyCardiology
	rec := types.Record{
		ID:           "pubmed:2",
		Title:        "Pneumonia detection",
		AbstractText: pneumoniaAbstract,
		Architecture: "CNN",
		Specialty:    spec,
		Metrics:      &types.Metrics{Accuracy: fptr(0.9)},
		CodeLinks:    []string{"https://gitlab.com/other/repo"},
	}

	e := Enrich(rec, false)
	if e.Architecture != nil {
		t.Errorf("Architecture overwritten with %q", *e.Architecture)
	}
	if e.Specialty != nil {
		t.Errorf("Specialty overwritten with %q", *e.Specialty)
	}
	if e.Metrics == nil || e.Metrics.AUC == nil || e.Metrics.Accuracy != nil {
		t.Errorf("Metrics = %+v, want only AUC filled", e.Metrics)
	}
	want := []string{"https://gitlab.com/other/repo", "https://github.com/lab/pneumo"}
	if !reflect.DeepEqual(e.CodeLinks, want) {
		t.Errorf("CodeLinks = %v, want %v", e.CodeLinks, want)
	}

	re := Enrich(rec, true)
	if re.Architecture == nil || *re.Architecture != "ResNet-50" {
		t.Errorf("reprocess Architecture = %v, want ResNet-50", re.Architecture)
	}
	if re.Specialty == nil || *re.Specialty != types.SpecialtyRadiology {
		t.Errorf("reprocess Specialty = %v, want Radiology", re.Specialty)
	}
}

func TestEnrichNeverClears(t *testing.T) {
	rec := types.Record{
		ID:           "hf:org/model",
		Title:        "A model card",
		Architecture: "BERT",
		Metrics:      &types.Metrics{AUC: fptr(0.8)},
	}
	e := Enrich(rec, true)
	if e.Architecture != nil || e.Metrics != nil || e.CodeLinks != nil {
		t.Errorf("Enrich with nothing found = %+v, want only specialty", e)
	}
}

// apply mirrors the store's merge so idempotence can be checked without a database.
func apply(rec types.Record, e types.Enrichment) types.Record {
	if e.Architecture != nil {
		rec.Architecture = *e.Architecture
	}
	if e.Specialty != nil {
		rec.Specialty = *e.Specialty
	}
	if e.Metrics != nil {
		m := types.Metrics{}
		if rec.Metrics != nil {
			m = *rec.Metrics
		}
		if e.Metrics.AUC != nil {
			m.AUC = e.Metrics.AUC
		}
		if e.Metrics.Accuracy != nil {
			m.Accuracy = e.Metrics.Accuracy
		}
		rec.Metrics = &m
	}
	if e.CodeLinks != nil {
		rec.CodeLinks = e.CodeLinks
	}
	return rec
}

func TestEnrichIdempotent(t *testing.T) {
	rec := types.Record{ID: "pubmed:3", Title: "Pneumonia detection", AbstractText: pneumoniaAbstract}
	rec = apply(rec, Enrich(rec, false))

	if e := Enrich(rec, false); !e.IsEmpty() {
		t.Errorf("second Enrich = %+v, want empty", e)
	}
	if e := Enrich(rec, true); !e.IsEmpty() {
		t.Errorf("reprocess of enriched record = %+v, want empty", e)
	}
}

// --- EnrichAll ---

type fakeEnrichStore struct {
	records []types.Record
	failID  string
	upserts map[string]types.Enrichment
	filter  store.Filter
}

func (f *fakeEnrichStore) ListRecords(_ context.Context, filter store.Filter) ([]types.Record, error) {
	f.filter = filter
	return f.records, nil
}

func (f *fakeEnrichStore) UpsertEnrichment(_ context.Context, id string, e types.Enrichment) error {
	if id == f.failID {
		return errors.New("disk full")
	}
	if f.upserts == nil {
		f.upserts = make(map[string]types.Enrichment)
	}
	f.upserts[id] = e
	return nil
}

func TestEnrichAll(t *testing.T) {
	fs := &fakeEnrichStore{
		records: []types.Record{
			{ID: "pubmed:1", Title: "Pneumonia detection", AbstractText: pneumoniaAbstract},
			{ID: "pubmed:2", Title: "ECG arrhythmia detection with an LSTM"},
			{ID: "pubmed:3", Title: "Already done", Specialty: types.SpecialtyOther},
		},
		failID: "pubmed:2",
	}
	cfg := types.EnrichConfig{IDPrefix: "pubmed:", Offset: 5, Limit: 10}

	var buf bytes.Buffer
	summary, err := EnrichAll(context.Background(), fs, cfg, &buf)
	if err != nil {
		t.Fatalf("EnrichAll: %v", err)
	}

	if summary.Enriched != 1 || summary.Failed != 1 || summary.Unchanged != 1 {
		t.Errorf("summary = %+v, want 1 enriched, 1 failed, 1 unchanged", summary)
	}
	if summary.Total() != 3 {
		t.Errorf("Total = %d, want 3", summary.Total())
	}
	if fs.filter.IDPrefix != "pubmed:" || fs.filter.Offset != 5 || fs.filter.Limit != 10 {
		t.Errorf("filter = %+v", fs.filter)
	}
	if _, ok := fs.upserts["pubmed:1"]; !ok {
		t.Error("pubmed:1 not persisted")
	}

	out := buf.String()
	for _, want := range []string{"enriched pubmed:1", "failed  pubmed:2: disk full", "unchanged pubmed:3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEnrichAllCancelled(t *testing.T) {
	fs := &fakeEnrichStore{records: []types.Record{{ID: "a:1", Title: "x"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err := EnrichAll(ctx, fs, types.EnrichConfig{}, &buf)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(fs.upserts) != 0 {
		t.Errorf("upserts after cancel = %d, want 0", len(fs.upserts))
	}
}
