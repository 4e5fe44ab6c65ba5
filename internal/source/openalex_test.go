// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/medai-miner/pkg/types"
)

const openAlexJSON = `{"results": [
  {"id": "https://openalex.org/W1", "title": "Diabetic retinopathy grading",
   "publication_date": "2023-05-06",
   "ids": {"openalex": "https://openalex.org/W1", "pmid": "https://pubmed.ncbi.nlm.nih.gov/36999999"},
   "authorships": [{"author": {"display_name": "Ada Lovelace"}}, {"author": {"display_name": ""}}],
   "abstract_inverted_index": {"ResNet": [2], "We": [0], "train": [1]}},
  {"id": "https://openalex.org/W2", "title": "Stroke triage", "publication_year": 2021, "ids": {}},
  {"id": "", "title": "No ids", "ids": {}}
]}`

func withOpenAlexServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	t.Cleanup(func() {
		openAlexSearchBase = old
		ts.Close()
	})
}

func TestOpenAlexSearch(t *testing.T) {
	var captured *http.Request
	withOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, openAlexJSON)
	})

	b := &OpenAlexBackend{Client: http.DefaultClient, Email: "lab@example.org"}
	q := Query{
		FreeText: "retinopathy",
		Keywords: []string{"deep learning"},
		DateFrom: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	results, err := b.Search(context.Background(), q, types.HarvestConfig{MaxResults: 1000})
	require.NoError(t, err)

	params := captured.URL.Query()
	assert.Equal(t, "retinopathy deep learning", params.Get("search"))
	assert.Equal(t, "200", params.Get("per_page"))
	assert.Equal(t, "from_publication_date:2022-01-01,to_publication_date:2023-12-31", params.Get("filter"))
	assert.Equal(t, "lab@example.org", params.Get("mailto"))

	require.Len(t, results, 2, "works without any id are skipped")
	assert.Equal(t, "pubmed:36999999", results[0].ID)
	assert.Equal(t, "We train ResNet", results[0].Abstract)
	assert.Equal(t, []string{"Ada Lovelace"}, results[0].Authors)
	assert.Equal(t, time.Date(2023, 5, 6, 0, 0, 0, 0, time.UTC), results[0].Date)
	assert.Equal(t, "openalex", results[0].Source)

	assert.Equal(t, "openalex:W2", results[1].ID)
	assert.Equal(t, 2021, results[1].Date.Year())
}

func TestOpenAlexSearchErrors(t *testing.T) {
	b := &OpenAlexBackend{Client: http.DefaultClient}
	_, err := b.Search(context.Background(), Query{}, types.HarvestConfig{})
	assert.Error(t, err, "empty query")

	withOpenAlexServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	_, err = b.Search(context.Background(), Query{FreeText: "x"}, types.HarvestConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
}

func TestReconstructAbstract(t *testing.T) {
	assert.Equal(t, "", reconstructAbstract(nil))
	assert.Equal(t, "the model and the data",
		reconstructAbstract(map[string][]int{"the": {0, 3}, "model": {1}, "and": {2}, "data": {4}}))
}
