// Package anchor re-locates saved text snippets inside a live document
// tree and wraps them in highlight markers.
//
// The document is abstracted behind the Index interface so resolution
// can be tested against any synthetic tree; HTMLIndex implements it for
// DOCX-converted HTML.
package anchor

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Location points at a substring of one text node, in document order.
type Location struct {
	node  *html.Node
	start int
	end   int
}

// Marker describes the wrapper element inserted around a resolved
// snippet.
type Marker struct {
	ID           string // value of data-marker-id
	AnnotationID string // value of data-annotation-id, used for focus events
	Background   string // CSS background color
	Border       string // CSS border-bottom color
}

// Index is an ordered text view of a document tree.
type Index interface {
	// Find returns the first text node containing substr, walking the
	// whole document in order.
	Find(substr string) (Location, bool)

	// FindWithin scopes the walk to the subtree of the element with the
	// given id. The second result reports whether the anchor element
	// exists at all.
	FindWithin(anchorID, substr string) (loc Location, found, anchorExists bool)

	// Wrap mutates the tree, wrapping the located substring in a marker
	// element.
	Wrap(loc Location, m Marker) error

	// Unwrap removes a previously inserted marker, splicing its text
	// back into the parent. Returns false if no such marker exists.
	Unwrap(markerID string) bool
}

// HTMLIndex implements Index over a parsed HTML tree.
type HTMLIndex struct {
	root *html.Node
}

var _ Index = (*HTMLIndex)(nil)

// ParseHTML builds an index from serialized HTML, typically the output
// of the DOCX conversion endpoint.
func ParseHTML(r io.Reader) (*HTMLIndex, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &HTMLIndex{root: root}, nil
}

// Render serializes the current tree, markers included.
func (ix *HTMLIndex) Render(w io.Writer) error {
	return html.Render(w, ix.root)
}

// ElementByID returns the element carrying the given id attribute, or
// nil.
func (ix *HTMLIndex) ElementByID(id string) *html.Node {
	if id == "" {
		return nil
	}
	var found *html.Node
	walk(ix.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attrVal(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

func (ix *HTMLIndex) Find(substr string) (Location, bool) {
	return findText(ix.root, substr)
}

func (ix *HTMLIndex) FindWithin(anchorID, substr string) (Location, bool, bool) {
	anchorNode := ix.ElementByID(anchorID)
	if anchorNode == nil {
		return Location{}, false, false
	}
	loc, ok := findText(anchorNode, substr)
	return loc, ok, true
}

// findText walks text nodes under scope in document order and returns
// the first occurrence of substr within a single text node. The match
// is an exact, case-sensitive substring match.
func findText(scope *html.Node, substr string) (Location, bool) {
	if substr == "" {
		return Location{}, false
	}
	var loc Location
	found := false
	walk(scope, func(n *html.Node) bool {
		if n.Type != html.TextNode {
			return true
		}
		if i := strings.Index(n.Data, substr); i >= 0 {
			loc = Location{node: n, start: i, end: i + len(substr)}
			found = true
			return false
		}
		return true
	})
	return loc, found
}

func (ix *HTMLIndex) Wrap(loc Location, m Marker) error {
	n := loc.node
	parent := n.Parent

	before := n.Data[:loc.start]
	selected := n.Data[loc.start:loc.end]
	after := n.Data[loc.end:]

	span := &html.Node{
		Type:     html.ElementNode,
		Data:     "span",
		DataAtom: atom.Span,
		Attr: []html.Attribute{
			{Key: "class", Val: "text-commented"},
			{Key: "data-marker-id", Val: m.ID},
			{Key: "data-annotation-id", Val: m.AnnotationID},
			{Key: "style", Val: markerStyle(m)},
		},
	}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: selected})

	if before != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: before}, n)
	}
	parent.InsertBefore(span, n)
	if after != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: after}, n)
	}
	parent.RemoveChild(n)
	return nil
}

func (ix *HTMLIndex) Unwrap(markerID string) bool {
	var span *html.Node
	walk(ix.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Span && attrVal(n, "data-marker-id") == markerID {
			span = n
			return false
		}
		return true
	})
	if span == nil {
		return false
	}

	parent := span.Parent
	for span.FirstChild != nil {
		child := span.FirstChild
		span.RemoveChild(child)
		parent.InsertBefore(child, span)
	}
	parent.RemoveChild(span)
	return true
}

// MarkerAnnotationID reports the annotation a marker belongs to, for
// routing click/focus events. Empty if the marker is gone.
func (ix *HTMLIndex) MarkerAnnotationID(markerID string) string {
	var id string
	walk(ix.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attrVal(n, "data-marker-id") == markerID {
			id = attrVal(n, "data-annotation-id")
			return false
		}
		return true
	})
	return id
}

// Text returns the concatenated text content of the document, mostly
// for tests and snippets.
func (ix *HTMLIndex) Text() string {
	var sb strings.Builder
	walk(ix.root, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		return true
	})
	return sb.String()
}

// walk visits nodes depth-first in document order. fn returning false
// stops the walk.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func markerStyle(m Marker) string {
	var sb strings.Builder
	sb.WriteString("background-color: " + m.Background + ";")
	if m.Border != "" {
		sb.WriteString(" border-bottom: 2px solid " + m.Border + ";")
	}
	sb.WriteString(" cursor: pointer;")
	return sb.String()
}
