// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"reflect"
	"testing"
)

func TestCodeLinks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"trailing period", "Code: https://github.com/org/repo.", []string{"https://github.com/org/repo"}},
		{"unbalanced paren", "(see https://github.com/a/b)", []string{"https://github.com/a/b"}},
		{"balanced paren kept", "https://github.com/a/b_(v2)", []string{"https://github.com/a/b_(v2)"}},
		{"unknown host dropped", "https://example.com/x and https://notgithub.com/y", nil},
		{"subdomain", "mirror at http://www.github.com/x/y", []string{"http://www.github.com/x/y"}},
		{"several hosts in order", "weights https://huggingface.co/org/model, data https://zenodo.org/record/1",
			[]string{"https://huggingface.co/org/model", "https://zenodo.org/record/1"}},
		{"case-insensitive dedupe keeps first", "https://github.com/A/B and https://GitHub.com/a/b",
			[]string{"https://github.com/A/B"}},
		{"href inside markup", `<a href="https://gitlab.com/g/p">repo</a>`, []string{"https://gitlab.com/g/p"}},
		{"no links", "no code released", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CodeLinks(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CodeLinks(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsCodeLink(t *testing.T) {
	tests := []struct {
		link string
		want bool
	}{
		{"https://github.com/a/b", true},
		{"https://bitbucket.org/a/b", true},
		{"https://codeocean.com/capsule/1", true},
		{"https://paperswithcode.com/paper/x", true},
		{"ftp://github.com/a", false},
		{"github.com/a/b", false},
		{"https://github.com.evil.io/a", false},
		{"https://", false},
	}
	for _, tt := range tests {
		if got := IsCodeLink(tt.link); got != tt.want {
			t.Errorf("IsCodeLink(%q) = %v, want %v", tt.link, got, tt.want)
		}
	}
}

func TestMergeLinks(t *testing.T) {
	a := []string{"https://github.com/a/b", "https://gitlab.com/x/y"}
	b := []string{"https://GITHUB.com/a/b", "https://zenodo.org/record/2"}

	got := MergeLinks(a, b)
	want := []string{"https://github.com/a/b", "https://gitlab.com/x/y", "https://zenodo.org/record/2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeLinks = %v, want %v", got, want)
	}

	if got := MergeLinks(nil, nil); len(got) != 0 {
		t.Errorf("MergeLinks(nil, nil) = %v, want empty", got)
	}
}
