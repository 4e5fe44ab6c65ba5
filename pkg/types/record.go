// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the medai-miner pipeline:
// the scraped Record, the partial Enrichment written back to the store, the
// StructuredMetadata produced by LLM extraction, and the stage configs.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Classification is the curation lifecycle state of a Record.
type Classification string

const (
	ClassUnclassified Classification = "unclassified"
	ClassKeep         Classification = "keep"
	ClassRemove       Classification = "remove"
)

// Valid reports whether c is one of the known classification states.
func (c Classification) Valid() bool {
	switch c {
	case ClassUnclassified, ClassKeep, ClassRemove:
		return true
	}
	return false
}

// MetadataStatus tracks structured metadata extraction for a Record:
// unprocessed -> extracting -> enriched | extraction-failed.
type MetadataStatus string

const (
	MetadataUnprocessed MetadataStatus = "unprocessed"
	MetadataExtracting  MetadataStatus = "extracting"
	MetadataEnriched    MetadataStatus = "enriched"
	MetadataFailed      MetadataStatus = "extraction-failed"
)

// Valid reports whether s is one of the known metadata states.
func (s MetadataStatus) Valid() bool {
	switch s {
	case MetadataUnprocessed, MetadataExtracting, MetadataEnriched, MetadataFailed:
		return true
	}
	return false
}

// Metrics holds reported model performance as decimals in [0,1].
// A nil field means the metric was not found.
type Metrics struct {
	AUC      *float64 `json:"auc,omitempty" yaml:"auc,omitempty"`
	Accuracy *float64 `json:"accuracy,omitempty" yaml:"accuracy,omitempty"`
}

// IsEmpty reports whether no metric is present.
func (m Metrics) IsEmpty() bool {
	return m.AUC == nil && m.Accuracy == nil
}

// Record is a scraped paper or model entity.
type Record struct {
	// ID is the source-prefixed external identifier, e.g. "arxiv:2301.07041"
	// or "pubmed:38012345". Unique within the store.
	ID string `json:"id" yaml:"id"`

	// Source names the scraper that first observed the record.
	Source string `json:"source" yaml:"source"`

	Title        string `json:"title" yaml:"title"`
	AbstractText string `json:"abstract" yaml:"abstract"`

	// Specialty is assigned by the keyword classifier; empty until enriched.
	Specialty Specialty `json:"specialty,omitempty" yaml:"specialty,omitempty"`

	// Architecture is a controlled-vocabulary name or empty.
	Architecture string `json:"architecture,omitempty" yaml:"architecture,omitempty"`

	Metrics   *Metrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	CodeLinks []string `json:"code_links,omitempty" yaml:"code_links,omitempty"`

	Classification Classification `json:"classification" yaml:"classification"`

	RawMetadata    *StructuredMetadata `json:"raw_metadata,omitempty" yaml:"raw_metadata,omitempty"`
	MetadataStatus MetadataStatus      `json:"metadata_status" yaml:"metadata_status"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// SourceID returns the identifier without its source prefix.
func (r Record) SourceID() string {
	if _, id, ok := strings.Cut(r.ID, ":"); ok {
		return id
	}
	return r.ID
}

// RecordID builds a store identifier from a source prefix and external id.
func RecordID(prefix, externalID string) string {
	return prefix + ":" + strings.TrimSpace(externalID)
}

// Enrichment is a partial update to a Record. Nil fields are left unchanged
// by the store, so applying the same Enrichment twice is a no-op.
type Enrichment struct {
	Specialty      *Specialty          `json:"specialty,omitempty" yaml:"specialty,omitempty"`
	Architecture   *string             `json:"architecture,omitempty" yaml:"architecture,omitempty"`
	Metrics        *Metrics            `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	CodeLinks      []string            `json:"code_links,omitempty" yaml:"code_links,omitempty"`
	RawMetadata    *StructuredMetadata `json:"raw_metadata,omitempty" yaml:"raw_metadata,omitempty"`
	MetadataStatus *MetadataStatus     `json:"metadata_status,omitempty" yaml:"metadata_status,omitempty"`
}

// IsEmpty reports whether the enrichment would change nothing.
func (e Enrichment) IsEmpty() bool {
	return e.Specialty == nil && e.Architecture == nil &&
		(e.Metrics == nil || e.Metrics.IsEmpty()) && e.CodeLinks == nil &&
		e.RawMetadata == nil && e.MetadataStatus == nil
}

// Validate checks the enrichment against the record invariants: metric
// values are decimals in [0,1] and enumerated fields hold known values.
func (e Enrichment) Validate() error {
	if e.Specialty != nil && !e.Specialty.Valid() {
		return fmt.Errorf("unknown specialty %q", *e.Specialty)
	}
	if e.Architecture != nil && !ValidArchitecture(*e.Architecture) {
		return fmt.Errorf("unknown architecture %q", *e.Architecture)
	}
	if e.Metrics != nil {
		for name, v := range map[string]*float64{"auc": e.Metrics.AUC, "accuracy": e.Metrics.Accuracy} {
			if v != nil && (*v < 0 || *v > 1) {
				return fmt.Errorf("%s %v outside [0,1]", name, *v)
			}
		}
	}
	if e.MetadataStatus != nil && !e.MetadataStatus.Valid() {
		return fmt.Errorf("unknown metadata status %q", *e.MetadataStatus)
	}
	return nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
