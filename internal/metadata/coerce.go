// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// resultFields are the performance values coerced to decimals in [0,1].
var resultFields = []string{"sensitivity", "specificity", "accuracy", "auc", "f1", "ppv", "npv"}

// sectionFields lists the keys kept in each section. Anything else the
// model adds is dropped before validation.
var sectionFields = map[string]map[string]fieldKind{
	"dataset": {
		"name":        kindString,
		"modality":    kindString,
		"sample_size": kindCount,
		"source":      kindString,
		"public":      kindBool,
	},
	"methodology": {
		"architecture": kindString,
		"task":         kindString,
		"approach":     kindString,
	},
	"validation": {
		"type":  kindString,
		"sites": kindCount,
	},
	"results": resultKinds(),
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindCount
	kindBool
	kindFraction
)

func resultKinds() map[string]fieldKind {
	m := make(map[string]fieldKind, len(resultFields))
	for _, f := range resultFields {
		m[f] = kindFraction
	}
	return m
}

// sanitize coerces a decoded response in place into the shape the schema
// expects and returns the names of dropped fields. Sections that are not
// objects are left alone so validation reports them.
func sanitize(doc map[string]any) []string {
	var dropped []string
	for key, v := range doc {
		fields, known := sectionFields[key]
		switch {
		case key == "version":
			continue
		case !known || v == nil:
			delete(doc, key)
			dropped = append(dropped, key)
			continue
		}

		section, ok := v.(map[string]any)
		if !ok {
			continue
		}
		for name, raw := range section {
			kind, ok := fields[name]
			if !ok {
				delete(section, name)
				dropped = append(dropped, key+"."+name)
				continue
			}
			val, ok := coerceField(kind, raw)
			if !ok {
				delete(section, name)
				dropped = append(dropped, key+"."+name)
				continue
			}
			section[name] = val
		}
		if len(section) == 0 {
			delete(doc, key)
		}
	}
	return dropped
}

func coerceField(kind fieldKind, v any) (any, bool) {
	switch kind {
	case kindString:
		return coerceString(v)
	case kindCount:
		return coerceCount(v)
	case kindBool:
		return coerceBool(v)
	case kindFraction:
		return CoerceFraction(v)
	}
	return nil, false
}

func coerceString(v any) (any, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case []any:
		var parts []string
		for _, e := range t {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, ", "), len(parts) > 0
	}
	return nil, false
}

func coerceCount(v any) (any, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		if err != nil {
			return nil, false
		}
		f = n
	default:
		return nil, false
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil, false
	}
	return int(f), true
}

func coerceBool(v any) (any, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes":
			return true, true
		case "false", "no":
			return false, true
		}
	}
	return nil, false
}

// leadingNumberRe captures the number at the start of a string value such
// as "91.2%", "0.87 (95% CI 0.84-0.90)" or "~0.9".
var leadingNumberRe = regexp.MustCompile(`^[~≈<>=\s]*(\d+(?:\.\d+)?|\.\d+)\s*(%?)`)

// CoerceFraction converts a reported performance value to a decimal in
// [0,1]. It accepts a number, a numeric string with an optional percent
// sign, or an object (or array) of such values. For an object the largest
// value as reported is taken first and only then scaled, so
// {"internal": 0.95, "external": 92} gives 0.92. Values above 1 are read as
// percentages. Non-finite values, negatives and anything above 100 are
// rejected.
func CoerceFraction(v any) (float64, bool) {
	raw, percent, ok := reported(v)
	if !ok {
		return 0, false
	}
	return fraction(raw, percent)
}

// reported returns the number as written and whether it carried a percent
// sign. Containers yield their largest plausible entry.
func reported(v any) (float64, bool, bool) {
	switch t := v.(type) {
	case float64:
		return t, false, plausible(t)
	case int:
		return float64(t), false, plausible(float64(t))
	case string:
		m := leadingNumberRe.FindStringSubmatch(strings.TrimSpace(t))
		if m == nil {
			return 0, false, false
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false, false
		}
		return f, m[2] == "%", plausible(f)
	case map[string]any:
		return largest(mapValues(t))
	case []any:
		return largest(t)
	}
	return 0, false, false
}

func plausible(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0 && f <= 100
}

func fraction(f float64, percent bool) (float64, bool) {
	if !plausible(f) {
		return 0, false
	}
	if percent || f > 1 {
		f /= 100
	}
	return math.Round(f*10000) / 10000, true
}

func mapValues(m map[string]any) []any {
	out := make([]any, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// largest picks the entry with the greatest reported number. Entries that
// cannot be read are skipped.
func largest(vals []any) (float64, bool, bool) {
	best, bestPercent, found := 0.0, false, false
	for _, v := range vals {
		f, percent, ok := reported(v)
		if !ok {
			continue
		}
		if !found || f > best {
			best, bestPercent, found = f, percent, true
		}
	}
	return best, bestPercent, found
}
