package toc

import (
	"fmt"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dgallion1/itemxtract/internal/forms"
	"github.com/dgallion1/itemxtract/internal/rules"
	"github.com/dgallion1/itemxtract/internal/textnorm"
)

// Locator builds the anchor index of a filing.
type Locator struct {
	rules *rules.Rules
}

func NewLocator(r *rules.Rules) *Locator {
	return &Locator{rules: r}
}

// Locate returns the section index of raw. The table of contents table is
// tried first; when it is missing or too small the leading block elements
// are scanned instead. Fewer than two sections yields ErrNoTableOfContents.
func (l *Locator) Locate(raw, filingType string) (Index, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	if table := l.findTable(doc); table != nil {
		if idx := l.tableEntries(table, filingType); len(idx) >= 2 {
			return idx, nil
		}
	}

	if idx := l.scanBlocks(raw, filingType); len(idx) >= 2 {
		return idx, nil
	}
	return nil, ErrNoTableOfContents
}

// findTable picks the qualifying table with the most section markers.
// The first table wins a tie.
func (l *Locator) findTable(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestCount := -1

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		text := strings.ToLower(textnorm.Collapse(table.Text()))
		count := len(l.rules.MarkerCount.FindAllStringIndex(text, -1))
		indicator := slices.ContainsFunc(l.rules.TOCIndicators, func(phrase string) bool {
			return strings.Contains(text, phrase)
		})

		if !indicator && count < 2 {
			return
		}
		if table.Find("a").Length() == 0 && count < 3 {
			return
		}
		if count > bestCount {
			best, bestCount = table, count
		}
	})
	return best
}

func (l *Locator) tableEntries(table *goquery.Selection, filingType string) Index {
	idx := Index{}
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		text := textnorm.Collapse(row.Text())
		id := l.rules.SectionID(text)
		if id == "" {
			return
		}
		idx.add(Entry{
			ID:     id,
			Anchor: rowAnchor(row),
			Title:  l.title(text, filingType, id),
		})
	})
	return idx
}

// rowAnchor takes the fragment of the first in-row link that has one,
// falling back to the row's own id.
func rowAnchor(row *goquery.Selection) string {
	var anchor string
	row.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if _, frag, ok := strings.Cut(href, "#"); ok {
			anchor, _, _ = strings.Cut(frag, "#")
		}
		return anchor == ""
	})
	if anchor == "" {
		anchor, _ = row.Attr("id")
	}
	return anchor
}

func (l *Locator) title(text, filingType, id string) string {
	t := l.rules.CleanTitle(text)
	if l.rules.HasCaption(t) {
		return t
	}
	if t := forms.Title(filingType, id); t != "" {
		return t
	}
	return "Item " + id
}
