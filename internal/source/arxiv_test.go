// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/medai-miner/pkg/types"
)

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Vision Transformers for
      Chest Radiograph Triage</title>
    <summary>  We train a ViT. Code: https://github.com/lab/vit-cxr  </summary>
    <published>2023-01-17T18:00:00Z</published>
    <author><name>Ada Lovelace</name></author>
    <author><name> Alan Turing </name></author>
  </entry>
  <entry>
    <id>not-an-arxiv-url</id>
    <title>Skipped</title>
  </entry>
</feed>`

func withArxivServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	old := arxivAPIBase
	arxivAPIBase = ts.URL
	t.Cleanup(func() {
		arxivAPIBase = old
		ts.Close()
	})
}

func TestArxivSearch(t *testing.T) {
	var rawQuery, ua string
	withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		ua = r.Header.Get("User-Agent")
		fmt.Fprint(w, arxivFeedXML)
	})

	b := &ArxivBackend{Client: http.DefaultClient}
	cfg := types.HarvestConfig{MaxResults: 7, HTTPConfig: types.HTTPConfig{UserAgent: "medai-miner/test"}}
	results, err := b.Search(context.Background(), Query{FreeText: "chest radiograph"}, cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if !strings.Contains(rawQuery, "search_query=all:chest+radiograph") {
		t.Errorf("query = %q", rawQuery)
	}
	if !strings.Contains(rawQuery, "max_results=7") {
		t.Errorf("max_results missing from %q", rawQuery)
	}
	if ua != "medai-miner/test" {
		t.Errorf("User-Agent = %q", ua)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.ID != "arxiv:2301.07041" {
		t.Errorf("ID = %q", r.ID)
	}
	if r.Title != "Vision Transformers for Chest Radiograph Triage" {
		t.Errorf("Title = %q", r.Title)
	}
	if r.Abstract != "We train a ViT. Code: https://github.com/lab/vit-cxr" {
		t.Errorf("Abstract = %q", r.Abstract)
	}
	if len(r.Authors) != 2 || r.Authors[1] != "Alan Turing" {
		t.Errorf("Authors = %v", r.Authors)
	}
	if want := time.Date(2023, 1, 17, 18, 0, 0, 0, time.UTC); !r.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", r.Date, want)
	}
	if r.Source != "arxiv" {
		t.Errorf("Source = %q", r.Source)
	}
}

func TestArxivSearchHTTPError(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	b := &ArxivBackend{Client: http.DefaultClient}
	_, err := b.Search(context.Background(), Query{FreeText: "x"}, types.HarvestConfig{})
	if err == nil || !strings.Contains(err.Error(), "HTTP 400") {
		t.Errorf("err = %v, want HTTP 400", err)
	}
}

func TestArxivSearchRetriesThrottle(t *testing.T) {
	var calls int32
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, arxivFeedXML)
	})
	b := &ArxivBackend{Client: http.DefaultClient}
	results, err := b.Search(context.Background(), Query{FreeText: "x"}, types.HarvestConfig{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || atomic.LoadInt32(&calls) != 2 {
		t.Errorf("results = %d, calls = %d", len(results), calls)
	}
}

func TestArxivSearchMalformedXML(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<feed><entry>")
	})
	b := &ArxivBackend{Client: http.DefaultClient}
	if _, err := b.Search(context.Background(), Query{FreeText: "x"}, types.HarvestConfig{}); err == nil {
		t.Error("expected parse error")
	}
}

func TestBuildArxivQuery(t *testing.T) {
	jan := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	dec := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		q    Query
		want string
	}{
		{"free text", Query{FreeText: "deep  learning"}, "all:deep+learning"},
		{"keywords", Query{FreeText: "ct", Keywords: []string{"lung nodule"}}, "all:ct+AND+all:lung+nodule"},
		{"escapes", Query{FreeText: "covid-19 & x-ray"}, "all:covid-19+%26+x-ray"},
		{"date range", Query{FreeText: "ecg", DateFrom: jan, DateTo: dec},
			"all:ecg+AND+submittedDate:[202301010000+TO+202312312359]"},
		{"open end", Query{FreeText: "ecg", DateFrom: jan},
			"all:ecg+AND+submittedDate:[202301010000+TO+300001010000]"},
		{"dates only", Query{DateFrom: jan}, ""},
		{"empty", Query{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildArxivQuery(tt.q); got != tt.want {
				t.Errorf("buildArxivQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"http://arxiv.org/abs/cs/0112017v1", "cs/0112017"},
		{"http://arxiv.org/pdf/2301.07041", ""},
	}
	for _, tt := range tests {
		if got := extractArxivID(tt.in); got != tt.want {
			t.Errorf("extractArxivID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
