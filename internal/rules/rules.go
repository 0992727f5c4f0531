// Package rules holds the pattern tables shared by the section locator,
// the extractor and the outline builder. A Rules value is built once and
// never mutated, so it is safe to share between goroutines.
package rules

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// PageBreakToken replaces page-break rules in extracted markup and text.
const PageBreakToken = "PAGE_BREAK_MARKER"

// Rewrite is a regexp replacement applied in order.
type Rewrite struct {
	Pattern *regexp.Regexp
	Replace string
}

// Rules is the immutable pattern set.
type Rules struct {
	// SectionMarker matches "Item 7A" and captures "7A".
	SectionMarker *regexp.Regexp
	// PartSectionMarker matches "Part II - Item 7" and captures "7".
	PartSectionMarker *regexp.Regexp
	// MarkerCount counts section markers in lower-cased table text.
	MarkerCount *regexp.Regexp

	TOCIndicators []string
	TitleRewrites []Rewrite
	// CaptionPrefix matches the "Part II - Item 7." lead-in of a title.
	CaptionPrefix *regexp.Regexp
	EndMarkers    []*regexp.Regexp

	PageBreak      *regexp.Regexp
	PageBreakToken string
	PageFooter     *regexp.Regexp

	ArtifactPhrases  map[string]bool
	ArtifactPatterns []*regexp.Regexp

	// MinPageWords is the word floor below which pages are never trimmed.
	MinPageWords int
}

// Default returns the shared rule set.
var Default = sync.OnceValue(New)

// New compiles a fresh rule set.
func New() *Rules {
	return &Rules{
		SectionMarker:     regexp.MustCompile(`(?i)item\s+(\d+[a-z]?)\b`),
		PartSectionMarker: regexp.MustCompile(`(?i)part\s+[IV]+\s*[–-]\s*item\s+(\d+[a-z]?)\b`),
		MarkerCount:       regexp.MustCompile(`item\s+\d+[a-z]?`),

		TOCIndicators: []string{
			"table of contents",
			"index to financial statements",
			"item 1.",
			"item 1a",
			"part i",
			"part ii",
			"item 1 ",
		},

		TitleRewrites: []Rewrite{
			{regexp.MustCompile(`\s+\d+\s*$`), ""},
			{regexp.MustCompile(`\.\s*\d+\s*$`), "."},
			{regexp.MustCompile(`\d+\s*$`), ""},
			{regexp.MustCompile(`\s*[.…]{2,}\s*$`), ""},
		},

		CaptionPrefix: regexp.MustCompile(`(?i)^\s*(?:part\s+[IV]+\s*[–-]?\s*)?item\s*(?:\d+[a-z]?\b)?[\s.:–-]*`),

		EndMarkers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:id|name)\s*=\s*["']signatures[^"']*["']`),
			regexp.MustCompile(`(?i)\b(?:id|name)\s*=\s*["']exhibits[^"']*["']`),
			// "cover" must stand as its own token; "discovery" does not match.
			regexp.MustCompile(`(?i)\b(?:id|name)\s*=\s*["'](?:[^"']*[^a-z"'])?cover(?:page)?(?:[^a-z"'][^"']*)?["']`),
			regexp.MustCompile(`(?i)>\s*SIGNATURES\s*<`),
			regexp.MustCompile(`(?i)>\s*SIGNA\s*<.*?>\s*TURES\s*<`),
		},

		PageBreak:      regexp.MustCompile(`(?i)<hr[^>]*page-break-after\s*:\s*always[^>]*>`),
		PageBreakToken: PageBreakToken,
		PageFooter:     regexp.MustCompile(`\|\s*\d{4}\s*Form\s*10-[KQ]\s*\|`),

		ArtifactPhrases: map[string]bool{
			"table of contents": true,
			"page":              true,
			"form":              true,
			"10-k":              true,
			"10-q":              true,
			"10-a":              true,
			"form 10-k summary": true,
			"not applicable":    true,
		},
		ArtifactPatterns: []*regexp.Regexp{
			regexp.MustCompile(`^\d{1,3}$`),
			regexp.MustCompile(`^[a-z\s]+(?:inc|corp|ltd|llc|co)\.?$`),
			regexp.MustCompile(`^[a-z]+ (?:inc|corp|ltd)\s*\|\s*\d{4}`),
			regexp.MustCompile(`^(?:inc|form|10-?k)\s*\|`),
		},

		MinPageWords: 10,
	}
}

// SectionID returns the upper-cased section id found in s, or "".
func (r *Rules) SectionID(s string) string {
	if m := r.SectionMarker.FindStringSubmatch(s); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := r.PartSectionMarker.FindStringSubmatch(s); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

// CleanTitle strips trailing page numbers and dot leaders from a TOC title.
func (r *Rules) CleanTitle(s string) string {
	for _, rw := range r.TitleRewrites {
		s = rw.Pattern.ReplaceAllString(s, rw.Replace)
	}
	return strings.TrimSpace(s)
}

// HasCaption reports whether a title says more than its section marker.
func (r *Rules) HasCaption(title string) bool {
	rest := r.CaptionPrefix.ReplaceAllString(title, "")
	return strings.IndexFunc(rest, unicode.IsLetter) >= 0
}

// AnchorPattern matches an id or name attribute whose value is exactly anchor.
func AnchorPattern(anchor string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:id|name)\s*=\s*['"]` + regexp.QuoteMeta(anchor) + `['"]`)
}
