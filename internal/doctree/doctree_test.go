package doctree

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"
)

func sampleForest() []*Node {
	overview := NewHeading(1, "Overview")
	products := NewHeading(2, "Products")
	services := NewHeading(2, "Services")
	overview.Children = append(overview.Children, products, services)
	risks := NewHeading(1, "Risks")
	return []*Node{overview, risks}
}

func TestWalk_PreOrder(t *testing.T) {
	var got []string
	Walk(sampleForest(), func(n, _ *Node) bool {
		got = append(got, n.HeadingText())
		return true
	})
	want := []string{"Overview", "Products", "Services", "Risks"}
	if !slices.Equal(got, want) {
		t.Errorf("walk order = %v, want %v", got, want)
	}
}

func TestWalk_SkipChildren(t *testing.T) {
	var got []string
	Walk(sampleForest(), func(n, _ *Node) bool {
		got = append(got, n.HeadingText())
		return n.HeadingText() != "Overview"
	})
	want := []string{"Overview", "Risks"}
	if !slices.Equal(got, want) {
		t.Errorf("walk order = %v, want %v", got, want)
	}
}

func TestCount(t *testing.T) {
	if n := Count(sampleForest()); n != 4 {
		t.Errorf("expected 4 nodes, got %d", n)
	}
	if n := Count(nil); n != 0 {
		t.Errorf("expected 0 nodes, got %d", n)
	}
}

func TestBreadcrumb(t *testing.T) {
	forest := sampleForest()
	crumbs := Breadcrumb(forest)
	services := forest[0].Children[1]
	if got := strings.Join(crumbs[services], " > "); got != "Overview > Services" {
		t.Errorf("breadcrumb = %q", got)
	}
}

func TestAppendBody(t *testing.T) {
	n := NewHeading(1, "Overview")
	n.AppendBody("First.")
	n.AppendBody("")
	n.AppendBody("Second.")
	if n.Body != "First. Second." {
		t.Errorf("body = %q", n.Body)
	}
}

func TestNode_JSONShape(t *testing.T) {
	data, err := json.Marshal([]*Node{NewSimpleText("all text")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"type":"simple_text","layer":1,"heading":null,"body":"all text","children":[]}]`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}
