// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SearchResult is a candidate paper returned by a harvest backend before it
// becomes a Record.
type SearchResult struct {
	// ID is the source-prefixed identifier ("arxiv:2301.07041", "pubmed:123").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract or summary.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Date is the publication or preprint date.
	Date time.Time `json:"date" yaml:"date"`

	// Source identifies which backend found this result (e.g. "arxiv", "semantic_scholar").
	Source string `json:"source" yaml:"source"`
}

// ToRecord converts a search result into a fresh, unclassified Record.
func (r SearchResult) ToRecord() Record {
	return Record{
		ID:             r.ID,
		Source:         r.Source,
		Title:          r.Title,
		AbstractText:   r.Abstract,
		Classification: ClassUnclassified,
		MetadataStatus: MetadataUnprocessed,
	}
}
