package doc

import "fmt"

type pathEntry struct {
	node  *Node
	index int
	start int // absolute position where node's content starts
}

// ResolvedPos is a position together with the chain of ancestor nodes it
// falls inside. Depth 0 is the root.
type ResolvedPos struct {
	Pos          int
	ParentOffset int
	path         []pathEntry
}

// Resolve maps a position to its ancestor chain.
func (n *Node) Resolve(pos int) (*ResolvedPos, error) {
	if pos < 0 || pos > n.ContentSize() {
		return nil, fmt.Errorf("resolve %d: %w", pos, ErrInvalidRange)
	}
	var path []pathEntry
	start := 0
	parentOffset := pos
	node := n
	for {
		index, offset := node.findIndex(parentOffset)
		rem := parentOffset - offset
		path = append(path, pathEntry{node: node, index: index, start: start})
		if rem == 0 {
			break
		}
		child := node.Child(index)
		if child == nil || child.Type == KindText || child.Type.IsLeaf() {
			break
		}
		node = child
		parentOffset = rem - 1
		start += offset + 1
	}
	return &ResolvedPos{Pos: pos, ParentOffset: parentOffset, path: path}, nil
}

// Depth is the depth of the innermost ancestor.
func (r *ResolvedPos) Depth() int {
	return len(r.path) - 1
}

func (r *ResolvedPos) depth(d int) int {
	if d < 0 {
		return r.Depth() + d
	}
	return d
}

// Node returns the ancestor at depth d. Negative depths count up from the parent.
func (r *ResolvedPos) Node(d int) *Node {
	return r.path[r.depth(d)].node
}

// Parent returns the innermost ancestor.
func (r *ResolvedPos) Parent() *Node {
	return r.Node(r.Depth())
}

// Index returns the child index into the ancestor at depth d.
func (r *ResolvedPos) Index(d int) int {
	return r.path[r.depth(d)].index
}

// Start returns the absolute position where the content of the ancestor at
// depth d starts.
func (r *ResolvedPos) Start(d int) int {
	return r.path[r.depth(d)].start
}

// End returns the absolute position where the content of the ancestor at
// depth d ends.
func (r *ResolvedPos) End(d int) int {
	return r.Start(d) + r.Node(d).ContentSize()
}

// Before returns the position directly before the ancestor at depth d (d >= 1).
func (r *ResolvedPos) Before(d int) int {
	d = r.depth(d)
	if d == 0 {
		return 0
	}
	return r.Start(d) - 1
}

// After returns the position directly after the ancestor at depth d (d >= 1).
func (r *ResolvedPos) After(d int) int {
	d = r.depth(d)
	if d == 0 {
		return r.End(0)
	}
	return r.End(d) + 1
}

// TextOffset is non-zero when the position falls inside a text node.
func (r *ResolvedPos) TextOffset() int {
	parent := r.Parent()
	index := r.Index(r.Depth())
	child := parent.Child(index)
	if child == nil || child.Type != KindText {
		return 0
	}
	return r.ParentOffset - parent.ChildOffset(index)
}

// FindAncestor walks up from the innermost ancestor and returns the depth of
// the first node matching pred.
func (r *ResolvedPos) FindAncestor(pred func(*Node) bool) (int, bool) {
	for d := r.Depth(); d > 0; d-- {
		if pred(r.Node(d)) {
			return d, true
		}
	}
	return 0, false
}
