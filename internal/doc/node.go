package doc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidRange is returned when a position or range falls outside a node.
	ErrInvalidRange = errors.New("position out of range")
	// ErrNotBoundary is returned when a replace range does not start and end
	// on child boundaries of a single parent.
	ErrNotBoundary = errors.New("range is not on node boundaries")
	// ErrNoNode is returned when no node starts at a position.
	ErrNoNode = errors.New("no node at position")
)

// Mark is inline formatting attached to a text node.
type Mark struct {
	Type  string `json:"type"`
	Attrs Attrs  `json:"attrs,omitempty"`
}

// Node is one node of a document tree. Nodes are immutable once built:
// edits produce new nodes that share untouched children with the old tree.
type Node struct {
	Type    Kind
	Attrs   Attrs
	Content []*Node
	Text    string
	Marks   []Mark

	// typeName keeps the wire name of KindOther nodes.
	typeName string
}

// New builds a node of the given kind.
func New(kind Kind, attrs Attrs, content ...*Node) *Node {
	return &Node{Type: kind, Attrs: attrs, Content: content}
}

// NewText builds a text node.
func NewText(text string, marks ...Mark) *Node {
	return &Node{Type: KindText, Text: text, Marks: marks}
}

// NewOther builds a node of a type this package does not model.
func NewOther(name string, attrs Attrs, content ...*Node) *Node {
	return &Node{Type: KindOther, Attrs: attrs, Content: content, typeName: name}
}

// Paragraph is a convenience constructor for a paragraph holding plain text.
func Paragraph(text string) *Node {
	if text == "" {
		return New(KindParagraph, nil)
	}
	return New(KindParagraph, nil, NewText(text))
}

// TypeName returns the wire name of the node's type.
func (n *Node) TypeName() string {
	if n.Type == KindOther {
		return n.typeName
	}
	return n.Type.String()
}

// Size is the number of positions the node occupies in its parent.
func (n *Node) Size() int {
	switch {
	case n.Type == KindText:
		return utf8.RuneCountInString(n.Text)
	case n.Type.IsLeaf():
		return 1
	default:
		return n.ContentSize() + 2
	}
}

// ContentSize is the total size of the node's children.
func (n *Node) ContentSize() int {
	size := 0
	for _, child := range n.Content {
		size += child.Size()
	}
	return size
}

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int {
	return len(n.Content)
}

// Child returns the i-th child, or nil when out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.Content) {
		return nil
	}
	return n.Content[i]
}

// ChildOffset returns the content-relative position where child i starts.
func (n *Node) ChildOffset(i int) int {
	offset := 0
	for j := 0; j < i && j < len(n.Content); j++ {
		offset += n.Content[j].Size()
	}
	return offset
}

// NodeAt returns the node that starts at pos, where pos is relative to the
// start of this node's content. It descends as far as needed.
func (n *Node) NodeAt(pos int) *Node {
	node := n
	for {
		index, offset := node.findIndex(pos)
		child := node.Child(index)
		if child == nil {
			return nil
		}
		if offset == pos || child.Type == KindText {
			return child
		}
		pos -= offset + 1
		node = child
	}
}

// findIndex locates the child containing pos and the offset where that
// child starts. A pos that equals a child's end is attributed to the next child.
func (n *Node) findIndex(pos int) (int, int) {
	offset := 0
	for i, child := range n.Content {
		end := offset + child.Size()
		if end > pos {
			return i, offset
		}
		offset = end
	}
	return len(n.Content), offset
}

// Descendants calls fn for every node below n in document order with its
// position relative to n's content start. Returning false from fn skips
// that node's children.
func (n *Node) Descendants(fn func(node *Node, pos int, parent *Node, index int) bool) {
	n.descend(0, fn)
}

func (n *Node) descend(base int, fn func(*Node, int, *Node, int) bool) {
	pos := base
	for i, child := range n.Content {
		if fn(child, pos, n, i) && len(child.Content) > 0 {
			child.descend(pos+1, fn)
		}
		pos += child.Size()
	}
}

// TextContent concatenates all text below n.
func (n *Node) TextContent() string {
	if n.Type == KindText {
		return n.Text
	}
	var b strings.Builder
	n.Descendants(func(node *Node, _ int, _ *Node, _ int) bool {
		if node.Type == KindText {
			b.WriteString(node.Text)
		}
		return true
	})
	return b.String()
}

// Copy returns a node of the same type and attributes with new content.
func (n *Node) Copy(content []*Node) *Node {
	return &Node{Type: n.Type, Attrs: n.Attrs, Content: content, Text: n.Text, Marks: n.Marks, typeName: n.typeName}
}

// WithAttrs returns a copy of the node with the given attributes.
func (n *Node) WithAttrs(attrs Attrs) *Node {
	return &Node{Type: n.Type, Attrs: attrs, Content: n.Content, Text: n.Text, Marks: n.Marks, typeName: n.typeName}
}

// WithType returns a copy of the node retyped to kind.
func (n *Node) WithType(kind Kind) *Node {
	out := &Node{Type: kind, Attrs: n.Attrs, Content: n.Content, Text: n.Text, Marks: n.Marks}
	if kind == KindOther {
		out.typeName = n.typeName
	}
	return out
}

// ReplaceChild returns a copy of n with child i swapped for child.
func (n *Node) ReplaceChild(i int, child *Node) *Node {
	content := make([]*Node, len(n.Content))
	copy(content, n.Content)
	content[i] = child
	return n.Copy(content)
}

// Equal reports whether two trees are structurally identical.
func (n *Node) Equal(other *Node) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	if n.TypeName() != other.TypeName() || n.Text != other.Text {
		return false
	}
	if !n.Attrs.Equal(other.Attrs) || !reflect.DeepEqual(normalizeMarks(n.Marks), normalizeMarks(other.Marks)) {
		return false
	}
	if len(n.Content) != len(other.Content) {
		return false
	}
	for i := range n.Content {
		if !n.Content[i].Equal(other.Content[i]) {
			return false
		}
	}
	return true
}

func normalizeMarks(marks []Mark) []Mark {
	if len(marks) == 0 {
		return nil
	}
	return marks
}

// Check validates the structural rules the editing core depends on.
func (n *Node) Check() error {
	return n.check(nil)
}

func (n *Node) check(parent *Node) error {
	switch {
	case n.Type == KindInvalid:
		return fmt.Errorf("node without type")
	case n.Type == KindText:
		if n.Text == "" {
			return fmt.Errorf("empty text node")
		}
		if len(n.Content) > 0 {
			return fmt.Errorf("text node with content")
		}
	case n.Type.IsLeaf():
		if len(n.Content) > 0 {
			return fmt.Errorf("%s: leaf node with content", n.TypeName())
		}
	}

	for i, child := range n.Content {
		if err := checkChild(n, child); err != nil {
			return fmt.Errorf("%s child %d: %w", n.TypeName(), i, err)
		}
		if err := child.check(n); err != nil {
			return err
		}
	}
	return nil
}

func checkChild(parent, child *Node) error {
	switch parent.Type.TableRole() {
	case RoleTable:
		if child.Type != KindTableRow {
			return fmt.Errorf("table expects rows, got %s", child.TypeName())
		}
		return nil
	case RoleRow:
		if !child.Type.IsCell() {
			return fmt.Errorf("row expects cells, got %s", child.TypeName())
		}
		return nil
	}
	if child.Type == KindTableRow && parent.Type != KindTable {
		return fmt.Errorf("row outside table")
	}
	if child.Type.IsCell() {
		return fmt.Errorf("cell outside row")
	}
	if parent.Type.IsTextblock() && !child.Type.IsInline() && child.Type != KindOther {
		return fmt.Errorf("%s inside textblock", child.TypeName())
	}
	if !parent.Type.IsTextblock() && parent.Type != KindOther && child.Type.IsInline() {
		return fmt.Errorf("inline %s outside textblock", child.TypeName())
	}
	return nil
}
