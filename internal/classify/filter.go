// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify decides which scraped records belong in the research
// corpus. A cheap title filter runs first; survivors are sent in batches to
// a language model that answers KEEP or REMOVE per record.
package classify

import (
	"regexp"

	"github.com/pdiddy/medai-miner/internal/textnorm"
	"github.com/pdiddy/medai-miner/pkg/types"
)

// TitlePattern is one named entry of a title filter list.
type TitlePattern struct {
	Name    string
	Pattern *regexp.Regexp
}

func titlePattern(name, pattern string) TitlePattern {
	return TitlePattern{Name: name, Pattern: regexp.MustCompile(`(?i)` + pattern)}
}

// excludePatterns flag titles that look like tutorials, demos, coursework
// or throwaway uploads.
var excludePatterns = []TitlePattern{
	titlePattern("tutorial", `\btutorials?\b`),
	titlePattern("demo", `\bdemo(?:s|nstration)?\b`),
	titlePattern("test upload", `\btest(?:ing)?[-_\s]?(?:upload|model|repo|run|space|push)\b`),
	titlePattern("hello world", `\bhello[-_\s]?world\b`),
	titlePattern("first attempt", `\bmy[-_\s]first\b`),
	titlePattern("getting started", `\b(?:getting[-_\s]started|quick[-_\s]?start|for beginners|beginner'?s?)\b`),
	titlePattern("introduction", `\b(?:introduction|intro) to\b`),
	titlePattern("how to", `\bhow[-_\s]to\b`),
	titlePattern("coursework", `\b(?:homework|assignment|coursework|course project|class project|lab \d+|exercise \d+)\b`),
	titlePattern("workshop", `\b(?:workshop|bootcamp|hackathon|kaggle competition)\b`),
	titlePattern("practice", `\bpractice\b`),
	titlePattern("playground", `\b(?:playground|sandbox|scratch(?:pad)?)\b`),
	titlePattern("template", `\b(?:template|boilerplate|starter[-_\s]kit)\b`),
	titlePattern("placeholder", `\b(?:untitled|dummy|placeholder|foo|asdf)\b`),
	titlePattern("copy", `\b(?:fork|copy) of\b`),
	titlePattern("toy", `\btoy (?:model|example|dataset|problem)\b`),
}

// includePatterns mark titles with a medical-research signal. A title that
// matches any of them is never removed by the filter, whatever it excludes.
var includePatterns = []TitlePattern{
	titlePattern("clinical", `\b(?:clinical|clinic|clinician|hospital|patients?|medical|medicine|healthcare|health)\b`),
	titlePattern("disease", `\b(?:disease|disorder|syndrome|diagnos\w*|prognos\w*|screening|triage|mortality)\b`),
	titlePattern("oncology", `\b(?:cancer|tumou?r|carcinoma|lesion|melanoma|lymphoma|leukemia|metasta\w*)\b`),
	titlePattern("imaging", `\b(?:radiolog\w*|patholog\w*|histopatholog\w*|x-?rays?|ct|mri|ultrasound|mammogra\w*|fundus|dermoscop\w*)\b`),
	titlePattern("organ", `\b(?:cardi\w*|pulmonar\w*|lung|retina\w*|brain|liver|kidney|renal|colon\w*)\b`),
	titlePattern("condition", `\b(?:pneumonia|covid(?:-?19)?|sepsis|stroke|diabetes|diabetic|alzheimer'?s?|parkinson'?s?|arrhythmia|epilep\w*|depression)\b`),
	titlePattern("biomedical", `\b(?:biomedical|bioinformatics|genomic\w*|pubmed|mimic(?:-?i{2,3}|-?iv)?|ehr|emr|icd(?:-?\d+)?|ecg|ekg|eeg)\b`),
	titlePattern("clinical nlp", `\b(?:ner|named entity|de-?identification|clinical notes?)\b`),
	titlePattern("architecture family", `\b(?:\w*bert|resnet\w*|densenet\w*|u-?net\w*|vit|vision transformer|transformer|efficientnet\w*|yolo\w*|r-?cnn|gpt-?\d*|llama\w*|cnn|lstm|gan)\b`),
}

// Exclude returns the exclude list in evaluation order.
func Exclude() []TitlePattern {
	return append([]TitlePattern(nil), excludePatterns...)
}

// Include returns the include (override) list in evaluation order.
func Include() []TitlePattern {
	return append([]TitlePattern(nil), includePatterns...)
}

// TitleVerdict explains a filter decision for one title.
type TitleVerdict struct {
	Remove bool
	// Excluded and Included name the first matching pattern of each list,
	// empty when none matched.
	Excluded string
	Included string
}

// CheckTitle applies the filter rule to a single title: remove when some
// exclude pattern matches and no include pattern does.
func CheckTitle(title string) TitleVerdict {
	title = textnorm.Normalize(title)
	var v TitleVerdict
	v.Excluded = firstMatch(excludePatterns, title)
	if v.Excluded == "" {
		return v
	}
	v.Included = firstMatch(includePatterns, title)
	v.Remove = v.Included == ""
	return v
}

func firstMatch(patterns []TitlePattern, s string) string {
	for _, p := range patterns {
		if p.Pattern.MatchString(s) {
			return p.Name
		}
	}
	return ""
}

// FilterByTitle splits records into survivors and removals. Both outputs
// keep input order.
func FilterByTitle(records []types.Record) (keep, remove []types.Record) {
	for _, r := range records {
		if CheckTitle(r.Title).Remove {
			remove = append(remove, r)
			continue
		}
		keep = append(keep, r)
	}
	return keep, remove
}
