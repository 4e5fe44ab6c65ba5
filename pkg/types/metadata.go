// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// MetadataVersion is the current StructuredMetadata layout version.
const MetadataVersion = 1

// StructuredMetadata is the validated result of LLM metadata extraction for a
// single record. All sections and fields are optional.
type StructuredMetadata struct {
	Version     int          `json:"version" yaml:"version"`
	Dataset     *Dataset     `json:"dataset,omitempty" yaml:"dataset,omitempty"`
	Methodology *Methodology `json:"methodology,omitempty" yaml:"methodology,omitempty"`
	Validation  *Validation  `json:"validation,omitempty" yaml:"validation,omitempty"`
	Results     *Results     `json:"results,omitempty" yaml:"results,omitempty"`
}

// Dataset describes the data a model was trained or evaluated on.
type Dataset struct {
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Modality   string `json:"modality,omitempty" yaml:"modality,omitempty"`
	SampleSize *int   `json:"sample_size,omitempty" yaml:"sample_size,omitempty"`
	Source     string `json:"source,omitempty" yaml:"source,omitempty"`
	Public     *bool  `json:"public,omitempty" yaml:"public,omitempty"`
}

// Methodology describes the modelling approach.
type Methodology struct {
	Architecture string `json:"architecture,omitempty" yaml:"architecture,omitempty"`
	Task         string `json:"task,omitempty" yaml:"task,omitempty"`
	Approach     string `json:"approach,omitempty" yaml:"approach,omitempty"`
}

// Validation describes how the reported results were validated.
type Validation struct {
	// Type is "internal", "external", "prospective", or free text from the model.
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
	Sites *int   `json:"sites,omitempty" yaml:"sites,omitempty"`
}

// Results holds reported performance values as decimals in [0,1].
type Results struct {
	Sensitivity *float64 `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty"`
	Specificity *float64 `json:"specificity,omitempty" yaml:"specificity,omitempty"`
	Accuracy    *float64 `json:"accuracy,omitempty" yaml:"accuracy,omitempty"`
	AUC         *float64 `json:"auc,omitempty" yaml:"auc,omitempty"`
	F1          *float64 `json:"f1,omitempty" yaml:"f1,omitempty"`
	PPV         *float64 `json:"ppv,omitempty" yaml:"ppv,omitempty"`
	NPV         *float64 `json:"npv,omitempty" yaml:"npv,omitempty"`
}

// IsEmpty reports whether no result value is present.
func (r Results) IsEmpty() bool {
	return r.Sensitivity == nil && r.Specificity == nil && r.Accuracy == nil &&
		r.AUC == nil && r.F1 == nil && r.PPV == nil && r.NPV == nil
}
