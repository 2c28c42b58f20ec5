package doc

import "fmt"

// Transaction meta keys understood by the editing core.
const (
	// MetaSkipShapeRepair tells table shape repair to leave the
	// transaction alone.
	MetaSkipShapeRepair = "skipShapeRepair"
	// MetaSkipHistory keeps the transaction out of undo history.
	MetaSkipHistory = "skipHistory"
	// MetaOrigin names the component that built the transaction.
	MetaOrigin = "origin"
)

// Transaction batches steps against a document. Steps are applied as they
// are added, so Doc always reflects every step so far. A transaction is
// committed by handing it to the editor; until then it can be rolled back.
type Transaction struct {
	Before    *Node
	Doc       *Node
	Steps     []Step
	Selection *Selection

	docs []*Node // document before each step
	meta map[string]any
}

// NewTransaction starts a transaction against root.
func NewTransaction(root *Node) *Transaction {
	return &Transaction{Before: root, Doc: root}
}

// SetMeta attaches metadata to the transaction.
func (tr *Transaction) SetMeta(key string, value any) *Transaction {
	if tr.meta == nil {
		tr.meta = make(map[string]any)
	}
	tr.meta[key] = value
	return tr
}

// Meta returns the metadata stored under key.
func (tr *Transaction) Meta(key string) any {
	return tr.meta[key]
}

// Flag reports whether key holds true.
func (tr *Transaction) Flag(key string) bool {
	v, _ := tr.meta[key].(bool)
	return v
}

// DocChanged reports whether any step has been applied.
func (tr *Transaction) DocChanged() bool {
	return len(tr.Steps) > 0
}

// Step applies s and records it.
func (tr *Transaction) Step(s Step) error {
	next, err := s.Apply(tr.Doc)
	if err != nil {
		return err
	}
	tr.docs = append(tr.docs, tr.Doc)
	tr.Steps = append(tr.Steps, s)
	tr.Doc = next
	if tr.Selection != nil {
		mapped := tr.Selection.Map(s)
		tr.Selection = &mapped
	}
	return nil
}

// Delete removes the nodes between from and to.
func (tr *Transaction) Delete(from, to int) error {
	if from == to {
		return nil
	}
	if err := tr.Step(ReplaceStep{From: from, To: to}); err != nil {
		return fmt.Errorf("delete %d-%d: %w", from, to, err)
	}
	return nil
}

// Insert places nodes at pos.
func (tr *Transaction) Insert(pos int, nodes ...*Node) error {
	if len(nodes) == 0 {
		return nil
	}
	if err := tr.Step(ReplaceStep{From: pos, To: pos, Nodes: nodes}); err != nil {
		return fmt.Errorf("insert at %d: %w", pos, err)
	}
	return nil
}

// ReplaceWith swaps the nodes between from and to for nodes.
func (tr *Transaction) ReplaceWith(from, to int, nodes ...*Node) error {
	if err := tr.Step(ReplaceStep{From: from, To: to, Nodes: nodes}); err != nil {
		return fmt.Errorf("replace %d-%d: %w", from, to, err)
	}
	return nil
}

// SetNodeMarkup changes the type and attributes of the node at pos,
// keeping its content. KindInvalid keeps the current type.
func (tr *Transaction) SetNodeMarkup(pos int, kind Kind, attrs Attrs) error {
	if err := tr.Step(AttrStep{Pos: pos, Kind: kind, Attrs: attrs}); err != nil {
		return fmt.Errorf("set markup at %d: %w", pos, err)
	}
	return nil
}

// SetNodeAttribute changes a single attribute of the node at pos. A nil
// value removes the attribute.
func (tr *Transaction) SetNodeAttribute(pos int, key string, value any) error {
	target := tr.Doc.NodeAt(pos)
	if target == nil {
		return fmt.Errorf("set attribute %q at %d: %w", key, pos, ErrNoNode)
	}
	attrs := target.Attrs.With(key, value)
	if value == nil {
		attrs = target.Attrs.Without(key)
	}
	return tr.SetNodeMarkup(pos, KindInvalid, attrs)
}

// SetSelection replaces the selection carried by the transaction.
func (tr *Transaction) SetSelection(sel Selection) *Transaction {
	tr.Selection = &sel
	return tr
}

// Map maps a position from the document the transaction started with to
// the current document.
func (tr *Transaction) Map(pos int, assoc int) int {
	return tr.MapSince(0, pos, assoc)
}

// MapSince maps a position through the steps added from index from onwards.
func (tr *Transaction) MapSince(from int, pos int, assoc int) int {
	for i := from; i < len(tr.Steps); i++ {
		pos = tr.Steps[i].Map(pos, assoc)
	}
	return pos
}

// Checkpoint marks the current step count for Rollback.
func (tr *Transaction) Checkpoint() int {
	return len(tr.Steps)
}

// Rollback discards every step added after checkpoint.
func (tr *Transaction) Rollback(checkpoint int) {
	if checkpoint < 0 || checkpoint >= len(tr.Steps) {
		return
	}
	tr.Doc = tr.docs[checkpoint]
	tr.Steps = tr.Steps[:checkpoint]
	tr.docs = tr.docs[:checkpoint]
}

// Inverted returns the steps that undo the transaction, in the order they
// must be applied.
func (tr *Transaction) Inverted() []Step {
	out := make([]Step, 0, len(tr.Steps))
	for i := len(tr.Steps) - 1; i >= 0; i-- {
		out = append(out, tr.Steps[i].Invert(tr.docs[i]))
	}
	return out
}
