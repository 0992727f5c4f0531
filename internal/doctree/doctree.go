package doctree

// Kind tags an outline node.
type Kind string

const (
	KindHeading    Kind = "heading"
	KindSimpleText Kind = "simple_text"
)

// Node is one entry in a section outline. Depth 1 is the outermost heading
// level and every child is strictly deeper than its parent.
type Node struct {
	Kind     Kind    `json:"type"`
	Depth    int     `json:"layer"`
	Heading  *string `json:"heading"`
	Body     string  `json:"body"`
	Children []*Node `json:"children"`
}

// NewHeading returns a heading node with an empty child list.
func NewHeading(depth int, heading string) *Node {
	return &Node{
		Kind:     KindHeading,
		Depth:    depth,
		Heading:  &heading,
		Children: []*Node{},
	}
}

// NewSimpleText returns the single root used when a section has no headings.
func NewSimpleText(body string) *Node {
	return &Node{
		Kind:     KindSimpleText,
		Depth:    1,
		Body:     body,
		Children: []*Node{},
	}
}

// HeadingText returns the heading or "" for headless nodes.
func (n *Node) HeadingText() string {
	if n.Heading == nil {
		return ""
	}
	return *n.Heading
}

// AppendBody adds text to the node body, space separated.
func (n *Node) AppendBody(text string) {
	if text == "" {
		return
	}
	if n.Body != "" {
		n.Body += " " + text
	} else {
		n.Body = text
	}
}

// Walk visits every node depth first with its parent (nil for roots).
// Returning false from fn skips the node's children.
func Walk(forest []*Node, fn func(n, parent *Node) bool) {
	type frame struct {
		node, parent *Node
	}
	stack := make([]frame, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: forest[i]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.node, f.parent) {
			continue
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], parent: f.node})
		}
	}
}

// Count returns the number of nodes in the forest.
func Count(forest []*Node) int {
	n := 0
	Walk(forest, func(*Node, *Node) bool {
		n++
		return true
	})
	return n
}

// Breadcrumb lists the headings on the path to every node, keyed by node.
func Breadcrumb(forest []*Node) map[*Node][]string {
	out := make(map[*Node][]string)
	Walk(forest, func(n, parent *Node) bool {
		var trail []string
		if parent != nil {
			trail = append(trail, out[parent]...)
		}
		if h := n.HeadingText(); h != "" {
			trail = append(trail, h)
		}
		out[n] = trail
		return true
	})
	return out
}
