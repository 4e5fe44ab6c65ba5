// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textnorm cleans raw scraped text: it decodes a fixed set of HTML/XML
// character references, strips tag markup, and collapses whitespace.
package textnorm

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// namedEntities is the fixed set of named references that are decoded.
// Anything else of the form &name; is passed through unchanged.
var namedEntities = map[string]string{
	"amp":    "&",
	"lt":     "<",
	"gt":     ">",
	"quot":   `"`,
	"apos":   "'",
	"nbsp":   "\u00a0",
	"mdash":  "—",
	"ndash":  "–",
	"hellip": "…",
	"lsquo":  "‘",
	"rsquo":  "’",
	"ldquo":  "“",
	"rdquo":  "”",
	"bull":   "•",
	"middot": "·",
	"copy":   "©",
	"reg":    "®",
	"trade":  "™",
	"deg":    "°",
	"plusmn": "±",
	"times":  "×",
}

var (
	entityRe     = regexp.MustCompile(`&(#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6}|[a-zA-Z][a-zA-Z0-9]{1,31});`)
	tagRe        = regexp.MustCompile(`</?[a-zA-Z!?][^<>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize decodes character references, strips markup, and collapses
// whitespace. Normalize(Normalize(s)) == Normalize(s) for all s.
func Normalize(raw string) string {
	// Every productive pass shortens s, so the loop reaches a fixpoint.
	s := raw
	for {
		next := stripTags(decodeEntities(s))
		if next == s {
			break
		}
		s = next
	}
	// Non-breaking and other Unicode spaces collapse with ASCII whitespace.
	s = strings.Map(func(r rune) rune {
		if r == '\u00a0' || r == '\u2009' || r == '\u202f' {
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// decodeEntities replaces every recognised reference in s once.
func decodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityRe.ReplaceAllStringFunc(s, func(ref string) string {
		body := ref[1 : len(ref)-1]
		if body[0] != '#' {
			if v, ok := namedEntities[body]; ok {
				return v
			}
			return ref
		}
		var (
			n   uint64
			err error
		)
		if body[1] == 'x' || body[1] == 'X' {
			n, err = strconv.ParseUint(body[2:], 16, 32)
		} else {
			n, err = strconv.ParseUint(body[1:], 10, 32)
		}
		if err != nil || n == 0 || n > utf8.MaxRune || (n >= 0xD800 && n <= 0xDFFF) {
			return ref
		}
		return string(rune(n))
	})
}

// stripTags removes tag-like markup: <p>, </b>, <br/>, <!-- x -->, <?xml ...?>.
func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	return tagRe.ReplaceAllString(s, " ")
}
