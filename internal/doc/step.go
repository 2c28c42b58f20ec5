package doc

import "fmt"

// Step is one structural edit. Applying a step yields a new tree; the
// original is never modified.
type Step interface {
	Apply(root *Node) (*Node, error)
	// Invert returns the step that undoes this one when applied to the
	// result. root is the document the step was applied to.
	Invert(root *Node) Step
	// Map maps a position in the document before the step to the document
	// after it. assoc < 0 keeps positions at an insertion point on the
	// left side; anything else moves them past the inserted content.
	Map(pos int, assoc int) int
}

// ReplaceStep replaces the nodes between From and To with Nodes. From and
// To must lie on child boundaries of the same parent.
type ReplaceStep struct {
	From  int
	To    int
	Nodes []*Node
}

func (s ReplaceStep) insertedSize() int {
	size := 0
	for _, n := range s.Nodes {
		size += n.Size()
	}
	return size
}

// Apply implements Step.
func (s ReplaceStep) Apply(root *Node) (*Node, error) {
	return replaceRange(root, s.From, s.To, s.Nodes)
}

// Invert implements Step.
func (s ReplaceStep) Invert(root *Node) Step {
	removed, _ := sliceRange(root, s.From, s.To)
	return ReplaceStep{From: s.From, To: s.From + s.insertedSize(), Nodes: removed}
}

// Map implements Step.
func (s ReplaceStep) Map(pos int, assoc int) int {
	inserted := s.insertedSize()
	if pos < s.From {
		return pos
	}
	if pos > s.To {
		return pos - (s.To - s.From) + inserted
	}
	side := assoc
	if s.From != s.To {
		switch pos {
		case s.From:
			side = -1
		case s.To:
			side = 1
		}
	}
	if side < 0 {
		return s.From
	}
	return s.From + inserted
}

// AttrStep replaces the type and attributes of the node at Pos. A Kind of
// KindInvalid keeps the node's type.
type AttrStep struct {
	Pos   int
	Kind  Kind
	Attrs Attrs
}

// Apply implements Step.
func (s AttrStep) Apply(root *Node) (*Node, error) {
	target := root.NodeAt(s.Pos)
	if target == nil || target.Type == KindText {
		return nil, fmt.Errorf("set markup at %d: %w", s.Pos, ErrNoNode)
	}
	updated := target.WithAttrs(s.Attrs)
	if s.Kind != KindInvalid && s.Kind != target.Type {
		updated = updated.WithType(s.Kind)
	}
	return replaceRange(root, s.Pos, s.Pos+target.Size(), []*Node{updated})
}

// Invert implements Step.
func (s AttrStep) Invert(root *Node) Step {
	target := root.NodeAt(s.Pos)
	if target == nil {
		return s
	}
	return AttrStep{Pos: s.Pos, Kind: target.Type, Attrs: target.Attrs}
}

// Map implements Step. Attribute changes never move positions.
func (s AttrStep) Map(pos int, _ int) int {
	return pos
}

// replaceRange swaps the children of a single parent between from and to.
func replaceRange(root *Node, from, to int, nodes []*Node) (*Node, error) {
	if from > to {
		return nil, fmt.Errorf("replace %d-%d: %w", from, to, ErrInvalidRange)
	}
	rf, err := root.Resolve(from)
	if err != nil {
		return nil, err
	}
	rt, err := root.Resolve(to)
	if err != nil {
		return nil, err
	}
	depth := rf.Depth()
	if rt.Depth() != depth || rf.Start(depth) != rt.Start(depth) || rf.TextOffset() != 0 || rt.TextOffset() != 0 {
		return nil, fmt.Errorf("replace %d-%d: %w", from, to, ErrNotBoundary)
	}

	parent := rf.Parent()
	startIdx, endIdx := rf.Index(depth), rt.Index(depth)
	content := make([]*Node, 0, len(parent.Content)-(endIdx-startIdx)+len(nodes))
	content = append(content, parent.Content[:startIdx]...)
	content = append(content, nodes...)
	content = append(content, parent.Content[endIdx:]...)

	updated := parent.Copy(content)
	for d := depth - 1; d >= 0; d-- {
		updated = rf.Node(d).ReplaceChild(rf.Index(d), updated)
	}
	return updated, nil
}

// sliceRange returns the children of a single parent between from and to.
func sliceRange(root *Node, from, to int) ([]*Node, error) {
	rf, err := root.Resolve(from)
	if err != nil {
		return nil, err
	}
	rt, err := root.Resolve(to)
	if err != nil {
		return nil, err
	}
	depth := rf.Depth()
	if rt.Depth() != depth || rf.Start(depth) != rt.Start(depth) {
		return nil, ErrNotBoundary
	}
	children := rf.Parent().Content[rf.Index(depth):rt.Index(depth)]
	out := make([]*Node, len(children))
	copy(out, children)
	return out, nil
}
