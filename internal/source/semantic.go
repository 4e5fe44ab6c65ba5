// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
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

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,publicationDate"

// semanticMaxLimit is the largest page the search endpoint accepts.
const semanticMaxLimit = 100

// SemanticScholarBackend queries the Semantic Scholar Graph API.
type SemanticScholarBackend struct {
	Client *http.Client
	APIKey string
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return "semantic_scholar" }

// Search returns papers matching query. Each result is identified by its
// PubMed id when it has one, then its arXiv id, then the Semantic Scholar
// paper id.
func (b *SemanticScholarBackend) Search(ctx context.Context, query Query, cfg types.HarvestConfig) ([]types.SearchResult, error) {
	q := buildSemanticQuery(query)
	if q == "" {
		return nil, eris.New("empty Semantic Scholar query")
	}

	limit := maxResults(cfg)
	if limit > semanticMaxLimit {
		limit = semanticMaxLimit
	}
	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(limit)},
		"fields": {semanticFields},
	}
	if yr := buildYearRange(query.DateFrom, query.DateTo); yr != "" {
		params.Set("year", yr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "creating Semantic Scholar request")
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, eris.Wrap(err, "Semantic Scholar API request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, eris.Wrap(err, "parsing Semantic Scholar response")
	}

	var results []types.SearchResult
	for _, paper := range sr.Data {
		id := paper.recordID()
		if id == "" {
			continue
		}
		r := types.SearchResult{
			ID:       id,
			Title:    paper.Title,
			Abstract: paper.Abstract,
			Source:   "semantic_scholar",
		}
		for _, a := range paper.Authors {
			r.Authors = append(r.Authors, a.Name)
		}
		if paper.PublicationDate != "" {
			if t, perr := time.Parse("2006-01-02", paper.PublicationDate); perr == nil {
				r.Date = t
			}
		} else if paper.Year > 0 {
			r.Date = time.Date(paper.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		}
		results = append(results, r)
	}
	return results, nil
}

func buildSemanticQuery(q Query) string {
	parts := []string{strings.TrimSpace(q.FreeText)}
	parts = append(parts, q.Keywords...)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// buildYearRange returns a Semantic Scholar year filter (e.g. "2020-2023").
func buildYearRange(from, to time.Time) string {
	switch {
	case !from.IsZero() && !to.IsZero():
		return fmt.Sprintf("%d-%d", from.Year(), to.Year())
	case !from.IsZero():
		return fmt.Sprintf("%d-", from.Year())
	case !to.IsZero():
		return fmt.Sprintf("-%d", to.Year())
	}
	return ""
}

// Semantic Scholar API structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	PubMed string `json:"PubMed"`
	ArXiv  string `json:"ArXiv"`
	DOI    string `json:"DOI"`
}

func (p semanticPaper) recordID() string {
	switch {
	case p.ExternalIDs.PubMed != "":
		return types.RecordID("pubmed", p.ExternalIDs.PubMed)
	case p.ExternalIDs.ArXiv != "":
		return types.RecordID("arxiv", p.ExternalIDs.ArXiv)
	case p.PaperID != "":
		return types.RecordID("s2", p.PaperID)
	}
	return ""
}
