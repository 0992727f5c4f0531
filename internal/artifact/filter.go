// Package artifact strips repeating page headers, footers and page numbers
// from text extracted out of paginated filings.
package artifact

import (
	"strings"
	"unicode"

	"github.com/dgallion1/itemxtract/internal/rules"
)

// Filter trims pagination noise from the edges of each page.
type Filter struct {
	rules *rules.Rules
}

func New(r *rules.Rules) *Filter {
	return &Filter{rules: r}
}

// Strip splits text on the page-break token, trims boundary noise from every
// page and joins the surviving pages with a single space. Pages at or below
// the word floor are returned unchanged.
func (f *Filter) Strip(text string) string {
	var pages []string
	for _, p := range strings.Split(text, f.rules.PageBreakToken) {
		if p = strings.TrimSpace(p); p != "" {
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return strings.TrimSpace(strings.ReplaceAll(text, f.rules.PageBreakToken, ""))
	}

	cleaned := make([]string, 0, len(pages))
	for _, p := range pages {
		if c := f.stripPage(p); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	return strings.TrimSpace(strings.Join(cleaned, " "))
}

func (f *Filter) stripPage(page string) string {
	words := strings.Fields(page)
	if len(words) <= f.rules.MinPageWords {
		return page
	}

	for len(words) > f.rules.MinPageWords {
		n := f.trailingNoise(words)
		if n == 0 {
			break
		}
		words = words[:len(words)-n]
	}
	for len(words) > f.rules.MinPageWords {
		n := f.leadingNoise(words)
		if n == 0 {
			break
		}
		words = words[n:]
	}
	return strings.Join(words, " ")
}

// trailingNoise returns how many words at the end of words are noise.
func (f *Filter) trailingNoise(words []string) int {
	last := strings.ToLower(words[len(words)-1])
	if f.isNoiseWord(last) {
		return 1
	}
	if len(words)-2 >= f.rules.MinPageWords {
		pair := strings.ToLower(words[len(words)-2]) + " " + last
		if f.rules.ArtifactPhrases[pair] {
			return 2
		}
	}
	if f.matchesPattern(last) {
		return 1
	}
	return 0
}

// leadingNoise returns how many words at the start of words are noise.
func (f *Filter) leadingNoise(words []string) int {
	first := strings.ToLower(words[0])
	if f.isNoiseWord(first) {
		return 1
	}
	if len(words)-2 >= f.rules.MinPageWords {
		pair := first + " " + strings.ToLower(words[1])
		if f.rules.ArtifactPhrases[pair] {
			return 2
		}
	}
	if f.matchesPattern(first) {
		return 1
	}
	return 0
}

func (f *Filter) isNoiseWord(w string) bool {
	return isDigits(w) || w == "|" || f.rules.ArtifactPhrases[w]
}

func (f *Filter) matchesPattern(w string) bool {
	for _, re := range f.rules.ArtifactPatterns {
		if re.MatchString(w) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
