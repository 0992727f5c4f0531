package toc

import (
	"strings"
	"testing"

	"github.com/dgallion1/itemxtract/internal/rules"
)

func newResolver() *Resolver {
	return NewResolver(rules.Default())
}

const (
	partCover  = `<html><body><table><tr><td><a href="#item1">Item 1</a></td></tr></table>`
	partItem1  = `<div id="item1"><p>Business text</p></div>`
	partItem1A = `<div id="item1a"><p>Risk text</p></div>`
	partItem2  = `<p><a name='item2'></a>Properties text</p>`
	partSig    = `<div id="signatures"><p>SIGNATURES</p></div></body></html>`
)

func resolvedFiling() (string, Index) {
	raw := partCover + partItem1 + partItem1A + partItem2 + partSig
	idx := Index{
		"1":  {ID: "1", Anchor: "item1"},
		"1A": {ID: "1A", Anchor: "item1a"},
		"2":  {ID: "2", Anchor: "item2"},
	}
	return raw, idx
}

func TestResolve_ContiguousRanges(t *testing.T) {
	raw, idx := resolvedFiling()
	ranges := newResolver().Resolve(raw, idx)
	if len(ranges) != 3 {
		t.Fatalf("expected 3 ranges, got %d: %+v", len(ranges), ranges)
	}

	start1 := len(partCover)
	start1A := start1 + len(partItem1)
	start2 := start1A + len(partItem1A)
	sig := start2 + len(partItem2)

	want := Ranges{
		{ID: "1", Start: start1, End: start1A},
		{ID: "1A", Start: start1A, End: start2 + len("<p>")},
		{ID: "2", Start: start2 + len("<p>"), End: sig},
	}
	for i, w := range want {
		if ranges[i] != w {
			t.Errorf("range %d = %+v, want %+v", i, ranges[i], w)
		}
	}
	for i := 0; i+1 < len(ranges); i++ {
		if ranges[i].End != ranges[i+1].Start {
			t.Errorf("ranges %s and %s are not contiguous", ranges[i].ID, ranges[i+1].ID)
		}
	}
}

func TestResolve_AnchorAtRangeStart(t *testing.T) {
	raw, idx := resolvedFiling()
	for _, r := range newResolver().Resolve(raw, idx) {
		slice := raw[r.Start:r.End]
		loc := rules.AnchorPattern(idx[r.ID].Anchor).FindStringIndex(slice)
		if loc == nil {
			t.Errorf("anchor of %s not found inside its range", r.ID)
			continue
		}
		if firstTagEnd := strings.IndexByte(slice, '>'); loc[0] > firstTagEnd {
			t.Errorf("anchor of %s at %d, outside the opening tag (ends %d)", r.ID, loc[0], firstTagEnd)
		}
		if !strings.HasPrefix(slice, "<") {
			t.Errorf("range %s does not start at a tag: %q", r.ID, slice[:min(20, len(slice))])
		}
	}
}

func TestResolve_LastSectionWithoutMarkerRunsToEnd(t *testing.T) {
	raw := `<div id="a1">one</div><div id="a2">two</div><p>trailing</p>`
	idx := Index{"1": {ID: "1", Anchor: "a1"}, "2": {ID: "2", Anchor: "a2"}}
	ranges := newResolver().Resolve(raw, idx)
	r, ok := ranges.Lookup("2")
	if !ok {
		t.Fatal("expected a range for 2")
	}
	if r.End != len(raw) {
		t.Errorf("expected end %d, got %d", len(raw), r.End)
	}
}

func TestResolve_EndMarkers(t *testing.T) {
	tests := []struct {
		name   string
		tail   string
		marker string
	}{
		{"signatures id", `<div id="signatures_page">x</div>`, `<div id="signatures_page">`},
		{"exhibits name", `<a name="exhibits"></a>`, `<a name="exhibits">`},
		{"cover id", `<div id="back_cover">x</div>`, `<div id="back_cover">`},
		{"coverpage id", `<div id="coverpage">x</div>`, `<div id="coverpage">`},
		{"signatures heading", `<p><b>SIGNATURES</b></p>`, `<b>SIGNATURES`},
		{"split signatures", `<p><span>SIGNA</span><span>TURES</span></p>`, `<span>SIGNA`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			head := `<div id="a1">one</div><div id="a15">exhibit list</div>`
			raw := head + tt.tail
			idx := Index{"1": {ID: "1", Anchor: "a1"}, "15": {ID: "15", Anchor: "a15"}}
			r, ok := newResolver().Resolve(raw, idx).Lookup("15")
			if !ok {
				t.Fatal("expected a range for 15")
			}
			want := strings.Index(raw, tt.marker)
			if r.End != want {
				t.Errorf("end = %d, want %d", r.End, want)
			}
		})
	}
}

func TestResolve_CoverInsideWordIsNotAMarker(t *testing.T) {
	raw := `<div id="a1">one</div><div id="a1a">risks</div><p id="discovery">more risks</p><p name="Recovery">still risks</p>`
	idx := Index{"1": {ID: "1", Anchor: "a1"}, "1A": {ID: "1A", Anchor: "a1a"}}
	r, ok := newResolver().Resolve(raw, idx).Lookup("1A")
	if !ok {
		t.Fatal("expected a range for 1A")
	}
	if r.End != len(raw) {
		t.Errorf("end = %d, want %d (cut at %q)", r.End, len(raw), raw[r.End:])
	}
}

func TestResolve_EarliestEndMarkerWins(t *testing.T) {
	raw := `<div id="a1">one</div><div id="a2">two</div><p>SIGNATURES</p><div id="exhibits">x</div>`
	idx := Index{"1": {ID: "1", Anchor: "a1"}, "2": {ID: "2", Anchor: "a2"}}
	r, _ := newResolver().Resolve(raw, idx).Lookup("2")
	if want := strings.Index(raw, "<p>SIGNATURES"); r.End != want {
		t.Errorf("end = %d, want %d", r.End, want)
	}
}

func TestResolve_SkipsUnanchoredSections(t *testing.T) {
	raw := `<div id="a1">one</div><div>Item 2</div><div id="a3">three</div>`
	idx := Index{
		"1": {ID: "1", Anchor: "a1"},
		"2": {ID: "2"},
		"3": {ID: "3", Anchor: "a3"},
	}
	ranges := newResolver().Resolve(raw, idx)
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %+v", ranges)
	}
	if _, ok := ranges.Lookup("2"); ok {
		t.Error("expected no range for unanchored section")
	}
	r1, _ := ranges.Lookup("1")
	if want := strings.Index(raw, `<div id="a3">`); r1.End != want {
		t.Errorf("end of 1 = %d, want %d", r1.End, want)
	}
}

func TestResolve_AnchorNotInDocument(t *testing.T) {
	raw := `<div id="a1">one</div><div id="a2">two</div>`
	idx := Index{"1": {ID: "1", Anchor: "a1"}, "2": {ID: "2", Anchor: "missing"}}
	ranges := newResolver().Resolve(raw, idx)
	if _, ok := ranges.Lookup("2"); ok {
		t.Error("expected no range for missing anchor")
	}
	r1, _ := ranges.Lookup("1")
	if r1.End != len(raw) {
		t.Errorf("end of 1 = %d, want %d", r1.End, len(raw))
	}
}

func TestResolve_OutOfOrderAnchorsNeverInvert(t *testing.T) {
	raw := `<div id="a2">two</div><div id="a1">one</div><p>SIGNATURES</p>`
	idx := Index{"1": {ID: "1", Anchor: "a1"}, "2": {ID: "2", Anchor: "a2"}}
	ranges := newResolver().Resolve(raw, idx)
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %+v", ranges)
	}
	for _, r := range ranges {
		if r.End <= r.Start {
			t.Errorf("range %s is empty or inverted: %+v", r.ID, r)
		}
	}
	r1, _ := ranges.Lookup("1")
	if want := strings.Index(raw, "<p>"); r1.End != want {
		t.Errorf("end of 1 = %d, want %d", r1.End, want)
	}
}

func TestResolve_AnchorIsLiteral(t *testing.T) {
	raw := `<div id="item.1">one</div><div id="itemX1">decoy</div><div id="item.2">two</div>`
	idx := Index{"1": {ID: "1", Anchor: "item.1"}, "2": {ID: "2", Anchor: "item.2"}}
	r, _ := newResolver().Resolve(raw, idx).Lookup("1")
	if r.Start != 0 || r.End != strings.Index(raw, `<div id="item.2">`) {
		t.Errorf("unexpected range %+v", r)
	}
}

func TestResolve_IgnoresHrefFragments(t *testing.T) {
	raw := `<a href="#a1">Item 1</a><div id="a1">one</div><div id="a2">two</div>`
	idx := Index{"1": {ID: "1", Anchor: "a1"}, "2": {ID: "2", Anchor: "a2"}}
	r, _ := newResolver().Resolve(raw, idx).Lookup("1")
	if want := strings.Index(raw, `<div id="a1">`); r.Start != want {
		t.Errorf("start = %d, want %d", r.Start, want)
	}
}
