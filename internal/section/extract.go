// Package section cuts one item out of a filing and cleans it.
package section

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dgallion1/itemxtract/internal/artifact"
	"github.com/dgallion1/itemxtract/internal/rules"
	"github.com/dgallion1/itemxtract/internal/textnorm"
	"github.com/dgallion1/itemxtract/internal/toc"
	"golang.org/x/net/html"
)

var (
	// ErrNotInIndex means the table of contents has no entry for the section.
	ErrNotInIndex = errors.New("section not in table of contents")
	// ErrUnresolvable means the section has no byte range in the document.
	ErrUnresolvable = errors.New("section range unresolvable")
)

// Section is one extracted item. The JSON shape is the persisted record.
type Section struct {
	ID     string `json:"item_number"`
	Title  string `json:"item_title"`
	Markup string `json:"html_content"`
	Text   string `json:"text_content"`
}

// Extractor slices sections out of raw filing markup.
type Extractor struct {
	rules    *rules.Rules
	resolver *toc.Resolver
	filter   *artifact.Filter
}

func NewExtractor(r *rules.Rules) *Extractor {
	return &Extractor{
		rules:    r,
		resolver: toc.NewResolver(r),
		filter:   artifact.New(r),
	}
}

// Extract resolves the ranges of idx and returns section id.
func (e *Extractor) Extract(raw, id string, idx toc.Index) (*Section, error) {
	return e.ExtractResolved(raw, id, idx, e.resolver.Resolve(raw, idx))
}

// ExtractResolved is Extract with ranges already computed for raw, so that
// several sections of one document share a single resolve pass.
func (e *Extractor) ExtractResolved(raw, id string, idx toc.Index, ranges toc.Ranges) (*Section, error) {
	entry, ok := idx[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotInIndex)
	}
	rng, ok := ranges.Lookup(id)
	if !ok || rng.End <= rng.Start || rng.End > len(raw) {
		return nil, fmt.Errorf("item %s: %w", id, ErrUnresolvable)
	}

	markup, text, err := e.clean(raw[rng.Start:rng.End])
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", id, err)
	}

	title := entry.Title
	if title == "" {
		title = "Item " + id
	}
	return &Section{ID: id, Title: title, Markup: markup, Text: text}, nil
}

// clean parses the slice once and derives both markup and text from it.
func (e *Extractor) clean(fragment string) (string, string, error) {
	fragment = e.rules.PageBreak.ReplaceAllString(fragment, "\n"+e.rules.PageBreakToken+"\n")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", "", fmt.Errorf("parse section: %w", err)
	}
	doc.Find("script, style").Remove()

	markup, err := doc.Find("body").Html()
	if err != nil {
		return "", "", fmt.Errorf("render section: %w", err)
	}

	var parts []string
	for _, n := range doc.Nodes {
		collectText(n, &parts)
	}
	text := e.filter.Strip(textnorm.Collapse(strings.Join(parts, " ")))
	return markup, text, nil
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		*parts = append(*parts, n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
