package toc

import (
	"regexp"
	"strings"

	"github.com/dgallion1/itemxtract/internal/rules"
)

// Resolver turns an Index into byte ranges over the raw markup. It reads
// it with regexp and string search only, so offsets stay valid
// for slicing the same buffer.
type Resolver struct {
	rules *rules.Rules
}

func NewResolver(r *rules.Rules) *Resolver {
	return &Resolver{rules: r}
}

// Resolve returns a range for every section whose anchor occurs in raw, in
// section order. A section starts at the tag holding its anchor and ends at
// the tag holding the next locatable section's anchor; the last one ends at
// an end-of-filing marker or at the end of the document. Ranges are never
// empty or inverted.
func (r *Resolver) Resolve(raw string, idx Index) Ranges {
	ids := idx.SortedIDs()
	patterns := make(map[string]*regexp.Regexp, len(ids))
	for _, id := range ids {
		if e := idx[id]; e.HasAnchor() {
			patterns[id] = rules.AnchorPattern(e.Anchor)
		}
	}

	var out Ranges
	for i, id := range ids {
		re := patterns[id]
		if re == nil {
			continue
		}
		loc := re.FindStringIndex(raw)
		if loc == nil {
			continue
		}
		start := tagStart(raw, loc[0])
		end := r.endOffset(raw, start, ids[i+1:], patterns)
		out = append(out, Range{ID: id, Start: start, End: end})
	}
	return out
}

func (r *Resolver) endOffset(raw string, start int, later []string, patterns map[string]*regexp.Regexp) int {
	for _, id := range later {
		re := patterns[id]
		if re == nil {
			continue
		}
		if end := firstTagAfter(re, raw, start); end > 0 {
			return end
		}
	}

	end := -1
	for _, re := range r.rules.EndMarkers {
		if pos := firstTagAfter(re, raw, start); pos > 0 && (end < 0 || pos < end) {
			end = pos
		}
	}
	if end > 0 {
		return end
	}
	return len(raw)
}

// firstTagAfter finds the first match of re in raw[start:] whose enclosing
// tag starts after start, and returns that tag's offset or -1.
func firstTagAfter(re *regexp.Regexp, raw string, start int) int {
	from := start
	for from < len(raw) {
		loc := re.FindStringIndex(raw[from:])
		if loc == nil {
			return -1
		}
		if pos := tagStart(raw, from+loc[0]); pos > start {
			return pos
		}
		from += max(loc[1], 1)
	}
	return -1
}

// tagStart returns the offset of the last '<' before pos, or pos itself.
func tagStart(raw string, pos int) int {
	if i := strings.LastIndexByte(raw[:pos], '<'); i >= 0 {
		return i
	}
	return pos
}
