// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"math"
	"regexp"
	"strconv"

	"github.com/pdiddy/medai-miner/pkg/types"
)

// Plausible ranges, in percent, for extracted values. A match outside its
// range is treated as not found and the search continues.
const (
	MinAUCPercent      = 10.0 // exclusive
	MaxAUCPercent      = 100.0
	MinAccuracyPercent = 50.0
	MaxAccuracyPercent = 100.0
)

// metricGap is the filler allowed between a keyword and its value. It cannot
// cross a digit, a percent sign or a semicolon. A period is allowed unless
// whitespace and a capital letter follow it, so "approx." and "vs." pass but
// a sentence break does not.
const metricGap = `(?:[^\d%.;]|\.\s*[^\sA-Z\d%.;]){0,40}?(?:\.\s*)?`

const metricNumber = `(\d{1,3}(?:\.\d+)?|\.\d+)`

const (
	aucKeyword      = `(?i:\b(?:roc[-\s]?auc|au-?roc|auc(?:-?roc)?|area under (?:the )?(?:receiver operating characteristic |roc )?curve|c-?statistics?|c-?index)\b)`
	accuracyKeyword = `(?:(?i:\b(?:classification |diagnostic |overall |balanced )?accuracy\b)|\bACC\b)`
)

// metricPattern is one way a metric can be reported. Percent patterns carry
// an explicit % sign and are never rescaled.
type metricPattern struct {
	re      *regexp.Regexp
	percent bool
}

func metricPatterns(keyword string) []metricPattern {
	return []metricPattern{
		// "AUC of 94.1%", "accuracy: 92 percent"
		{regexp.MustCompile(keyword + metricGap + metricNumber + `\s?(?:%|(?i:percent)\b)`), true},
		// "AUC of 0.94", "C-statistic = .87"
		{regexp.MustCompile(keyword + metricGap + metricNumber), false},
		// "92% accuracy", "94.5% AUC"
		{regexp.MustCompile(metricNumber + `\s?%\s+(?:(?i:an|a|the)\s+)?` + keyword), true},
		// "0.94 AUC"
		{regexp.MustCompile(metricNumber + `\s+` + keyword), false},
	}
}

var (
	aucPatterns      = metricPatterns(aucKeyword)
	accuracyPatterns = metricPatterns(accuracyKeyword)

	// ciSuffixRe marks a percentage that belongs to a confidence interval.
	ciSuffixRe = regexp.MustCompile(`^\s*(?i:ci\b|confidence)`)

	// percentSuffixRe marks a bare number that is really a percentage.
	percentSuffixRe = regexp.MustCompile(`^\s?%`)
)

// Metrics extracts reported AUC and accuracy from text. Each value is a
// decimal in [0,1]; a metric that is not found, or found only with
// implausible values, is nil.
func Metrics(text string) types.Metrics {
	var m types.Metrics
	if v, ok := findMetric(text, aucPatterns, aucPlausible); ok {
		m.AUC = &v
	}
	if v, ok := findMetric(text, accuracyPatterns, accuracyPlausible); ok {
		m.Accuracy = &v
	}
	return m
}

func aucPlausible(pct float64) bool {
	return pct > MinAUCPercent && pct <= MaxAUCPercent
}

func accuracyPlausible(pct float64) bool {
	return pct >= MinAccuracyPercent && pct <= MaxAccuracyPercent
}

// findMetric walks patterns in order and, within a pattern, occurrences in
// text order. The first plausible value wins.
func findMetric(text string, patterns []metricPattern, plausible func(float64) bool) (float64, bool) {
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2], loc[3]
			if !standaloneNumber(text, start, end) {
				continue
			}
			if p.percent && ciSuffixRe.MatchString(text[loc[1]:]) {
				continue
			}
			if !p.percent && percentSuffixRe.MatchString(text[end:]) {
				continue
			}
			v, err := strconv.ParseFloat(text[start:end], 64)
			if err != nil {
				continue
			}
			if !p.percent && v < 1 {
				v *= 100
			}
			if !plausible(v) {
				continue
			}
			return round4(v / 100), true
		}
	}
	return 0, false
}

// standaloneNumber rejects captures that are a fragment of a longer number,
// such as the "10" in "10,000" or the "12" in "3.12".
func standaloneNumber(text string, start, end int) bool {
	if start > 0 {
		switch c := text[start-1]; {
		case c >= '0' && c <= '9', c == '.', c == ',':
			return false
		}
	}
	if end < len(text) {
		c := text[end]
		if c >= '0' && c <= '9' {
			return false
		}
		if (c == ',' || c == '.') && end+1 < len(text) && text[end+1] >= '0' && text[end+1] <= '9' {
			return false
		}
	}
	return true
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
