package dragdrop

import "beskar/editor/internal/doc"

// Session is the state of the reorder gesture in progress. The engine is
// its only writer; other components read IsDragging.
type Session struct {
	dragging bool
	sourceID string
	node     *doc.Node
	pos      int
	gen      int
}

// IsDragging reports whether a drag is in progress.
func (s *Session) IsDragging() bool {
	return s != nil && s.dragging
}

// SourceID returns the identifier of the dragged block.
func (s *Session) SourceID() string {
	return s.sourceID
}

// Cached returns the node and position captured at drag start.
func (s *Session) Cached() (*doc.Node, int) {
	return s.node, s.pos
}

func (s *Session) begin(b Block) int {
	s.gen++
	s.dragging = true
	s.sourceID = b.ID
	s.node = b.Node
	s.pos = b.Pos
	return s.gen
}

func (s *Session) reset() {
	s.dragging = false
	s.sourceID = ""
	s.node = nil
	s.pos = 0
}
