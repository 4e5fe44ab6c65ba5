// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/medai-miner/internal/httputil"
	"github.com/pdiddy/medai-miner/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivBackend queries the arXiv Atom API.
type ArxivBackend struct {
	Client *http.Client
}

// Name returns the backend identifier.
func (b *ArxivBackend) Name() string { return "arxiv" }

// Search returns arXiv preprints matching query, newest first.
func (b *ArxivBackend) Search(ctx context.Context, query Query, cfg types.HarvestConfig) ([]types.SearchResult, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, eris.New("empty arXiv query")
	}

	// search_query keeps its literal '+' separators, so it is appended unencoded.
	reqURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=submittedDate&sortOrder=descending",
		arxivAPIBase, q, maxResults(cfg))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "creating arXiv request")
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, eris.Wrap(err, "arXiv API request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, eris.Wrap(err, "parsing arXiv response")
	}

	var results []types.SearchResult
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}
		r := types.SearchResult{
			ID:       types.RecordID("arxiv", arxivID),
			Title:    strings.Join(strings.Fields(entry.Title), " "),
			Abstract: strings.TrimSpace(entry.Summary),
			Source:   "arxiv",
		}
		for _, a := range entry.Authors {
			r.Authors = append(r.Authors, strings.TrimSpace(a.Name))
		}
		if t, perr := time.Parse(time.RFC3339, entry.Published); perr == nil {
			r.Date = t
		}
		results = append(results, r)
	}
	return results, nil
}

// buildArxivQuery constructs the search_query parameter: every free-text
// and keyword term is searched in all fields, and the date range filters on
// submission date.
func buildArxivQuery(q Query) string {
	var parts []string
	if terms := escapeTerms(q.FreeText); terms != "" {
		parts = append(parts, "all:"+terms)
	}
	for _, kw := range q.Keywords {
		if terms := escapeTerms(kw); terms != "" {
			parts = append(parts, "all:"+terms)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	if !q.DateFrom.IsZero() || !q.DateTo.IsZero() {
		from, to := "190001010000", "300001010000"
		if !q.DateFrom.IsZero() {
			from = q.DateFrom.Format("20060102") + "0000"
		}
		if !q.DateTo.IsZero() {
			to = q.DateTo.Format("20060102") + "2359"
		}
		parts = append(parts, "submittedDate:["+from+"+TO+"+to+"]")
	}
	return strings.Join(parts, "+AND+")
}

func escapeTerms(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = url.QueryEscape(f)
	}
	return strings.Join(fields, "+")
}

// arXiv Atom feed structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv id from an entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
