// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/medai-miner/internal/httputil"
	"github.com/pdiddy/medai-miner/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

const openAlexMaxPerPage = 200

// OpenAlexBackend queries the OpenAlex Works API.
type OpenAlexBackend struct {
	Client *http.Client
	// Email is sent as the mailto parameter for polite pool access.
	Email string
}

// Name returns the backend identifier.
func (b *OpenAlexBackend) Name() string { return "openalex" }

// Search returns works matching query. Each result is identified by its
// PubMed id when OpenAlex knows it, otherwise by the OpenAlex work id.
func (b *OpenAlexBackend) Search(ctx context.Context, query Query, cfg types.HarvestConfig) ([]types.SearchResult, error) {
	text := buildSemanticQuery(query)
	if text == "" {
		return nil, eris.New("empty OpenAlex query")
	}

	perPage := maxResults(cfg)
	if perPage > openAlexMaxPerPage {
		perPage = openAlexMaxPerPage
	}
	params := url.Values{
		"search":   {text},
		"per_page": {strconv.Itoa(perPage)},
		"page":     {"1"},
	}
	var filters []string
	if !query.DateFrom.IsZero() {
		filters = append(filters, "from_publication_date:"+query.DateFrom.Format("2006-01-02"))
	}
	if !query.DateTo.IsZero() {
		filters = append(filters, "to_publication_date:"+query.DateTo.Format("2006-01-02"))
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}
	if b.Email != "" {
		params.Set("mailto", b.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "creating OpenAlex request")
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, eris.Wrap(err, "OpenAlex API request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, eris.Wrap(err, "parsing OpenAlex response")
	}

	var results []types.SearchResult
	for _, work := range oar.Results {
		id := work.recordID()
		if id == "" {
			continue
		}
		r := types.SearchResult{
			ID:       id,
			Title:    work.Title,
			Abstract: reconstructAbstract(work.AbstractInvertedIndex),
			Source:   "openalex",
		}
		for _, a := range work.Authorships {
			if a.Author.DisplayName != "" {
				r.Authors = append(r.Authors, a.Author.DisplayName)
			}
		}
		if work.PublicationDate != "" {
			if t, perr := time.Parse("2006-01-02", work.PublicationDate); perr == nil {
				r.Date = t
			}
		} else if work.PublicationYear > 0 {
			r.Date = time.Date(work.PublicationYear, 1, 1, 0, 0, 0, 0, time.UTC)
		}
		results = append(results, r)
	}
	return results, nil
}

// reconstructAbstract turns OpenAlex's abstract_inverted_index, which maps
// each word to the positions it occupies, back into plain text.
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}
	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range index {
		for _, p := range positions {
			pairs = append(pairs, posWord{p, word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	IDs                   openAlexIDs          `json:"ids"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
}

type openAlexIDs struct {
	PMID string `json:"pmid"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

func (w openAlexWork) recordID() string {
	if pmid := strings.TrimPrefix(w.IDs.PMID, "https://pubmed.ncbi.nlm.nih.gov/"); pmid != "" {
		return types.RecordID("pubmed", strings.TrimSuffix(pmid, "/"))
	}
	if w.ID != "" {
		return types.RecordID("openalex", strings.TrimPrefix(w.ID, "https://openalex.org/"))
	}
	return ""
}
