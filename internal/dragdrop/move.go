package dragdrop

import (
	"errors"
	"fmt"

	"beskar/editor/internal/blockid"
	"beskar/editor/internal/doc"
)

var (
	// ErrSourceGone is returned when the dragged block no longer exists.
	ErrSourceGone = errors.New("source block not found")
	// ErrNoTarget is returned when the drop target cannot be found.
	ErrNoTarget = errors.New("target block not found")
	// ErrNoop is returned when the move would leave the document unchanged.
	ErrNoop = errors.New("block already in place")
)

// Placement says on which side of the target a block lands.
type Placement uint8

const (
	Before Placement = iota
	After
)

func (p Placement) String() string {
	if p == After {
		return "after"
	}
	return "before"
}

// ParsePlacement maps "before"/"after" to a Placement.
func ParsePlacement(s string) (Placement, error) {
	switch s {
	case "before", "":
		return Before, nil
	case "after":
		return After, nil
	default:
		return Before, fmt.Errorf("placement %q: want before or after", s)
	}
}

// Block is a top-level block located by identifier.
type Block struct {
	ID   string
	Node *doc.Node
	Pos  int
}

// FindBlock looks up the top-level block carrying id.
func FindBlock(root *doc.Node, id string) (Block, bool) {
	if id == "" {
		return Block{}, false
	}
	pos := 0
	for _, child := range root.Content {
		if child.Attrs.String(blockid.Attr) == id {
			return Block{ID: id, Node: child, Pos: pos}, true
		}
		pos += child.Size()
	}
	return Block{}, false
}

// Move is a planned delete-then-insert of one top-level block.
type Move struct {
	// From and To bound the live source block.
	From, To int
	// Insert is the insertion point after the source has been deleted.
	Insert int
	// Node is the content that gets inserted.
	Node *doc.Node
}

// PlanMove computes the move of the block sourceID next to targetID. The
// source is re-resolved in root by identifier; node is what gets inserted,
// which lets a drag insert exactly what it picked up. A nil node inserts
// the live source.
func PlanMove(root *doc.Node, sourceID string, node *doc.Node, targetID string, placement Placement) (Move, error) {
	src, ok := FindBlock(root, sourceID)
	if !ok {
		return Move{}, fmt.Errorf("plan move of %q: %w", sourceID, ErrSourceGone)
	}
	tgt, ok := FindBlock(root, targetID)
	if !ok {
		return Move{}, fmt.Errorf("plan move to %q: %w", targetID, ErrNoTarget)
	}
	if node == nil {
		node = src.Node
	}

	size := src.Node.Size()
	insert := tgt.Pos
	if placement == After {
		insert += tgt.Node.Size()
	}
	if src.Pos < insert {
		insert -= size
	}
	if insert == src.Pos {
		return Move{}, ErrNoop
	}
	return Move{From: src.Pos, To: src.Pos + size, Insert: insert, Node: node}, nil
}

// Apply adds the move to tr as one delete and one insert.
func (m Move) Apply(tr *doc.Transaction) error {
	if err := tr.Delete(m.From, m.To); err != nil {
		return fmt.Errorf("apply move: %w", err)
	}
	if err := tr.Insert(m.Insert, m.Node); err != nil {
		return fmt.Errorf("apply move: %w", err)
	}
	return nil
}

// MoveTransaction builds the transaction for a planned move. The
// transaction is tagged so shape repair and undo history leave it alone.
func MoveTransaction(root *doc.Node, m Move) (*doc.Transaction, error) {
	tr := doc.NewTransaction(root)
	if err := m.Apply(tr); err != nil {
		return nil, err
	}
	tr.SetMeta(doc.MetaSkipShapeRepair, true)
	tr.SetMeta(doc.MetaSkipHistory, true)
	tr.SetMeta(doc.MetaOrigin, "dragdrop")
	return tr, nil
}
