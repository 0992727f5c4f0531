// Package outline rebuilds the heading/body hierarchy of an extracted
// section from the inline styling of its blocks.
package outline

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/dgallion1/itemxtract/internal/artifact"
	"github.com/dgallion1/itemxtract/internal/doctree"
	"github.com/dgallion1/itemxtract/internal/rules"
	"github.com/dgallion1/itemxtract/internal/textnorm"
	"golang.org/x/net/html"
)

const (
	minHeadingRunes = 3
	maxHeadingRunes = 200
	maxItalicRunes  = 100
)

var (
	boldStyle   = regexp.MustCompile(`font-weight:(?:bold|bolder|[6-9]00)\b`)
	italicStyle = regexp.MustCompile(`font-style:italic\b`)
)

// BlockKind is the classification of one block element.
type BlockKind int

const (
	Ignored BlockKind = iota
	Heading
	Body
)

func (k BlockKind) String() string {
	switch k {
	case Heading:
		return "heading"
	case Body:
		return "body"
	default:
		return "ignored"
	}
}

// Block is the result of classifying one element. Depth is set for headings only.
type Block struct {
	Kind  BlockKind
	Depth int
	Text  string
}

// Builder turns clean section markup into an outline forest.
type Builder struct {
	rules  *rules.Rules
	filter *artifact.Filter
}

func NewBuilder(r *rules.Rules) *Builder {
	return &Builder{rules: r, filter: artifact.New(r)}
}

// Build parses markup and returns the outline. A section without any
// styled heading yields a single simple_text root, or nothing when it has
// no text at all.
func (b *Builder) Build(markup string) ([]*doctree.Node, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse outline markup: %w", err)
	}
	doc.Find("script, style").Remove()

	type stackEntry struct {
		node  *doctree.Node
		depth int
	}
	var (
		forest []*doctree.Node
		stack  []stackEntry
	)

	var blocks []Block
	for _, n := range doc.Nodes {
		blocks = append(blocks, b.blocks(n)...)
	}
	for _, blk := range blocks {
		switch blk.Kind {
		case Heading:
			for len(stack) > 0 && stack[len(stack)-1].depth >= blk.Depth {
				stack = stack[:len(stack)-1]
			}
			node := doctree.NewHeading(blk.Depth, blk.Text)
			if len(stack) > 0 {
				parent := stack[len(stack)-1].node
				parent.Children = append(parent.Children, node)
			} else {
				forest = append(forest, node)
			}
			stack = append(stack, stackEntry{node: node, depth: blk.Depth})
		case Body:
			// Text outside any open heading is dropped.
			if len(stack) > 0 {
				stack[len(stack)-1].node.AppendBody(blk.Text)
			}
		}
	}

	if len(forest) == 0 {
		var parts []string
		for _, n := range doc.Nodes {
			collectText(n, &parts)
		}
		text := b.filter.Strip(textnorm.Clean(strings.Join(parts, " ")))
		if text == "" {
			return []*doctree.Node{}, nil
		}
		forest = []*doctree.Node{doctree.NewSimpleText(text)}
	}
	return forest, nil
}

// blocks classifies the div and p elements under root in document order.
// A block's own content is split into runs at its nested blocks; each run
// is classified on its own and nested blocks follow in place, so no text is
// counted twice and none is lost.
func (b *Builder) blocks(root *html.Node) []Block {
	var out []Block
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		var run []*html.Node
		flush := func() {
			if blk := b.classifyRun(run); blk.Kind != Ignored {
				out = append(out, blk)
			}
			run = nil
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if isBlock(c) {
				flush()
				visit(c)
				continue
			}
			run = append(run, c)
		}
		flush()
	}

	// Content outside any block is not classified.
	var seek func(n *html.Node)
	seek = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if isBlock(c) {
				visit(c)
			} else {
				seek(c)
			}
		}
	}
	if isBlock(root) {
		visit(root)
	} else {
		seek(root)
	}
	return out
}

func isBlock(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.Data == "div" || n.Data == "p")
}

// Classify decides whether a block is a heading, body text or neither from
// its own content, leaving nested blocks out. Bold wins over italic; only
// direct span and font children count as styling.
func (b *Builder) Classify(s *goquery.Selection) Block {
	var run []*html.Node
	for _, n := range s.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !isBlock(c) {
				run = append(run, c)
			}
		}
	}
	return b.classifyRun(run)
}

func (b *Builder) classifyRun(run []*html.Node) Block {
	if len(run) == 0 {
		return Block{Kind: Ignored}
	}
	var sb strings.Builder
	for _, n := range run {
		writeText(&sb, n)
	}
	text := textnorm.Clean(sb.String())

	if depth := headingDepth(run, text); depth > 0 {
		return Block{Kind: Heading, Depth: depth, Text: text}
	}
	if text == "" || b.isPageMarker(text) {
		return Block{Kind: Ignored}
	}
	return Block{Kind: Body, Text: text}
}

func headingDepth(run []*html.Node, text string) int {
	n := utf8.RuneCountInString(text)
	if n < minHeadingRunes || n > maxHeadingRunes {
		return 0
	}

	var bold, italic bool
	for _, c := range run {
		if c.Type != html.ElementNode || (c.Data != "span" && c.Data != "font") {
			continue
		}
		style := compactStyle(attr(c, "style"))
		if boldStyle.MatchString(style) {
			bold = true
		}
		if italicStyle.MatchString(style) {
			italic = true
		}
	}
	switch {
	case bold:
		return 1
	case italic && n <= maxItalicRunes:
		return 2
	}
	return 0
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// writeText appends every text node under n, like goquery's Text.
func writeText(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
}

func compactStyle(style string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, strings.ToLower(style))
}

func (b *Builder) isPageMarker(text string) bool {
	return strings.Contains(text, b.rules.PageBreakToken) || b.rules.PageFooter.MatchString(text)
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
