// Package toc finds a filing's table of contents and turns it into byte
// ranges over the raw markup.
package toc

import (
	"errors"
	"maps"
	"slices"

	"github.com/dgallion1/itemxtract/internal/forms"
)

// ErrNoTableOfContents is returned when fewer than two sections are found.
var ErrNoTableOfContents = errors.New("no table of contents found")

// Entry maps one section id to the anchor that marks its start.
type Entry struct {
	ID     string `json:"section_id"`
	Anchor string `json:"anchor,omitempty"`
	Title  string `json:"title"`
}

// HasAnchor reports whether the entry can be located in the markup.
func (e Entry) HasAnchor() bool {
	return e.Anchor != ""
}

// Index is the anchor mapping for one document, keyed by section id.
type Index map[string]Entry

// SortedIDs returns the section ids ordered 1, 1A, 1B, 2, ..., 10.
func (idx Index) SortedIDs() []string {
	return slices.SortedFunc(maps.Keys(idx), forms.CompareIDs)
}

// add records e, keeping an existing anchored entry over an unanchored one.
func (idx Index) add(e Entry) {
	if prev, ok := idx[e.ID]; ok && prev.HasAnchor() && !e.HasAnchor() {
		return
	}
	idx[e.ID] = e
}

// Range is the half-open byte range [Start, End) of one section.
type Range struct {
	ID    string `json:"section_id"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Ranges holds resolved ranges in section order.
type Ranges []Range

// Lookup returns the range for id.
func (rs Ranges) Lookup(id string) (Range, bool) {
	for _, r := range rs {
		if r.ID == id {
			return r, true
		}
	}
	return Range{}, false
}
