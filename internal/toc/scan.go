package toc

import (
	"bytes"
	"strings"

	"github.com/dgallion1/itemxtract/internal/textnorm"
	"golang.org/x/net/html"
)

const (
	maxScanElements = 200
	maxScanSections = 20
	// maxAnchorDistance is how many source lines a preceding <a name> may
	// sit above an element and still count as its anchor.
	maxAnchorDistance = 10
)

// block elements whose start implicitly closes an open <p>.
var closesParagraph = map[string]bool{
	"p": true, "div": true, "table": true, "ul": true, "ol": true, "dl": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"hr": true, "pre": true, "blockquote": true, "section": true, "center": true,
}

func isScanElement(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "p", "div":
		return true
	}
	return false
}

type namedAnchor struct {
	name string
	line int
}

type scanElement struct {
	line     int
	id, name string
	// first <a> inside the element
	linkName, linkID string
	hasLink          bool
	prev             *namedAnchor
	text             strings.Builder
}

func (e *scanElement) anchor() string {
	switch {
	case e.id != "":
		return e.id
	case e.name != "":
		return e.name
	case e.linkName != "":
		return e.linkName
	case e.linkID != "":
		return e.linkID
	}
	if e.prev != nil && abs(e.line-e.prev.line) < maxAnchorDistance {
		return e.prev.name
	}
	return ""
}

type openElement struct {
	tag string
	el  *scanElement // nil once the element budget is spent
}

// scanBlocks streams raw with the tokenizer so every element keeps its
// source line, and reads section markers out of the first block elements.
func (l *Locator) scanBlocks(raw, filingType string) Index {
	elements := collectElements(raw)

	idx := Index{}
	for _, el := range elements {
		if len(idx) >= maxScanSections {
			break
		}
		text := textnorm.Collapse(el.text.String())
		id := l.rules.SectionID(text)
		if id == "" {
			continue
		}
		if prev, ok := idx[id]; ok && prev.HasAnchor() {
			continue
		}
		idx[id] = Entry{ID: id, Anchor: el.anchor(), Title: l.title(text, filingType, id)}
	}
	return idx
}

func collectElements(raw string) []*scanElement {
	z := html.NewTokenizer(strings.NewReader(raw))

	var (
		elements  []*scanElement
		open      []openElement
		lastNamed *namedAnchor
		rawText   int
		line      = 1
	)

	closeParagraph := func() {
		if n := len(open); n > 0 && open[n-1].tag == "p" {
			open = open[:n-1]
		}
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tokLine := line
		line += bytes.Count(z.Raw(), []byte{'\n'})

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			tag := tok.Data
			switch {
			case tag == "script" || tag == "style":
				if tt == html.StartTagToken {
					rawText++
				}
			case tag == "a":
				name, id := attr(tok, "name"), attr(tok, "id")
				for _, o := range open {
					if o.el != nil && !o.el.hasLink {
						o.el.linkName, o.el.linkID, o.el.hasLink = name, id, true
					}
				}
				if name != "" {
					lastNamed = &namedAnchor{name: name, line: tokLine}
				}
			case isScanElement(tag):
				closeParagraph()
				var el *scanElement
				if len(elements) < maxScanElements {
					el = &scanElement{line: tokLine, id: attr(tok, "id"), name: attr(tok, "name"), prev: lastNamed}
					elements = append(elements, el)
				}
				if tt == html.StartTagToken {
					open = append(open, openElement{tag: tag, el: el})
				}
			case closesParagraph[tag]:
				closeParagraph()
			}

		case html.EndTagToken:
			tag := z.Token().Data
			switch {
			case tag == "script" || tag == "style":
				if rawText > 0 {
					rawText--
				}
			case isScanElement(tag):
				for i := len(open) - 1; i >= 0; i-- {
					if open[i].tag == tag {
						open = open[:i]
						break
					}
				}
			}

		case html.TextToken:
			if rawText > 0 || len(open) == 0 {
				continue
			}
			text := string(z.Text())
			for _, o := range open {
				if o.el != nil {
					o.el.text.WriteString(text)
				}
			}
		}

		if len(elements) >= maxScanElements && len(open) == 0 {
			break
		}
	}
	return elements
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
