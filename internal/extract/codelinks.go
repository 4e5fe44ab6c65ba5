// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// CodeHosts lists the domains accepted as code links. Subdomains are
// accepted too (e.g. "www.github.com").
var CodeHosts = []string{
	"github.com",
	"gitlab.com",
	"bitbucket.org",
	"huggingface.co",
	"codeocean.com",
	"zenodo.org",
	"paperswithcode.com",
}

var urlRe = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"'\x60]+`)

// CodeLinks returns the code-hosting URLs found in text, deduplicated
// case-insensitively, in the order first seen.
func CodeLinks(text string) []string {
	var links []string
	seen := make(map[string]bool)
	for _, raw := range urlRe.FindAllString(text, -1) {
		link, ok := cleanLink(raw)
		if !ok {
			continue
		}
		key := strings.ToLower(link)
		if seen[key] {
			continue
		}
		seen[key] = true
		links = append(links, link)
	}
	return links
}

// MergeLinks returns the union of a and b, keeping the order of a followed by
// links of b not already present.
func MergeLinks(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, l := range append(append([]string{}, a...), b...) {
		key := strings.ToLower(l)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

// IsCodeLink reports whether link is an absolute http(s) URL on a known code host.
func IsCodeLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range CodeHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// cleanLink trims sentence punctuation that commonly trails a URL in prose
// and unbalanced closing brackets, then validates the host.
func cleanLink(raw string) (string, bool) {
	link := raw
	for {
		trimmed := strings.TrimRight(link, ".,;:!?*'\"")
		if strings.HasSuffix(trimmed, ")") && strings.Count(trimmed, "(") < strings.Count(trimmed, ")") {
			trimmed = trimmed[:len(trimmed)-1]
		}
		if strings.HasSuffix(trimmed, "]") && strings.Count(trimmed, "[") < strings.Count(trimmed, "]") {
			trimmed = trimmed[:len(trimmed)-1]
		}
		if trimmed == link {
			break
		}
		link = trimmed
	}
	if !IsCodeLink(link) {
		return "", false
	}
	return link, true
}
