// Package textnorm normalizes text pulled out of filing markup.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// invisibles maps no-break spaces and format characters (zero-width
// space, joiners, byte order mark) to a plain space.
var invisibles = runes.Map(func(r rune) rune {
	if r == '\u00a0' || unicode.Is(unicode.Cf, r) {
		return ' '
	}
	return r
})

// Collapse joins whitespace-separated fields with single spaces.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Clean composes s to NFC, turns invisible characters into spaces and
// collapses whitespace.
func Clean(s string) string {
	out, _, err := transform.String(transform.Chain(norm.NFC, invisibles), s)
	if err != nil {
		out = s
	}
	return Collapse(out)
}
