// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"math"
	"testing"
)

func TestCoerceFraction(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"decimal", 0.87, 0.87, true},
		{"one", 1.0, 1, true},
		{"zero", 0.0, 0, true},
		{"percent number", 93.0, 0.93, true},
		{"int", 95, 0.95, true},
		{"percent string", "93%", 0.93, true},
		{"percent string with space", "87.5 %", 0.875, true},
		{"decimal string", "0.912", 0.912, true},
		{"leading dot", ".85", 0.85, true},
		{"with confidence interval", "0.87 (95% CI 0.84-0.90)", 0.87, true},
		{"approximate", "~0.9", 0.9, true},
		{"small percent", "0.5%", 0.005, true},
		{"rounded", 0.912345, 0.9123, true},
		{"object takes max as reported", map[string]any{"internal": 0.91, "external": "86%"}, 0.86, true},
		{"mixed scales compare before scaling", map[string]any{"internal": 0.95, "external": 92.0}, 0.92, true},
		{"implausible entry skipped", map[string]any{"a": 0.8, "b": 150.0}, 0.8, true},
		{"nested object", map[string]any{"a": map[string]any{"x": 0.7, "y": "75%"}, "b": 0.6}, 0.75, true},
		{"array takes max", []any{0.7, 88.0, "junk"}, 0.88, true},
		{"over 100", 150.0, 0, false},
		{"negative", -0.2, 0, false},
		{"nan", math.NaN(), 0, false},
		{"inf", math.Inf(1), 0, false},
		{"word", "high", 0, false},
		{"NaN string", "NaN", 0, false},
		{"empty object", map[string]any{}, 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceFraction(tt.in)
			if ok != tt.ok {
				t.Fatalf("CoerceFraction(%v) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CoerceFraction(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	doc := map[string]any{
		"version": 7.0,
		"dataset": map[string]any{
			"name":        []any{"MIMIC-III", " eICU "},
			"sample_size": 12.5,
			"public":      "no",
		},
		"methodology": "CNN",
		"extra":       map[string]any{"a": 1.0},
		"results":     nil,
	}

	dropped := sanitize(doc)

	if _, ok := doc["extra"]; ok {
		t.Error("unknown section kept")
	}
	if _, ok := doc["results"]; ok {
		t.Error("null section kept")
	}
	if doc["methodology"] != "CNN" {
		t.Error("non-object section should be left for validation")
	}
	if doc["version"] != 7.0 {
		t.Error("version should be untouched")
	}

	ds := doc["dataset"].(map[string]any)
	if ds["name"] != "MIMIC-III, eICU" {
		t.Errorf("name = %v", ds["name"])
	}
	if _, ok := ds["sample_size"]; ok {
		t.Error("fractional sample size kept")
	}
	if ds["public"] != false {
		t.Errorf("public = %v", ds["public"])
	}

	want := map[string]bool{"extra": true, "results": true, "dataset.sample_size": true}
	if len(dropped) != len(want) {
		t.Fatalf("dropped = %v", dropped)
	}
	for _, d := range dropped {
		if !want[d] {
			t.Errorf("unexpected dropped field %q", d)
		}
	}
}
