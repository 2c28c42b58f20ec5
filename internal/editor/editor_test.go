package editor

import (
	"testing"

	"beskar/editor/internal/doc"
)

// markFirst sets attribute "seen" on the first top-level block when missing.
type markFirst struct {
	calls int
}

func (m *markFirst) AppendTransaction(_ []*doc.Transaction, _, newDoc *doc.Node) *doc.Transaction {
	m.calls++
	first := newDoc.Child(0)
	if first == nil || first.Attrs.Bool("seen") {
		return nil
	}
	tr := doc.NewTransaction(newDoc)
	if err := tr.SetNodeAttribute(0, "seen", true); err != nil {
		return nil
	}
	return tr
}

type countViews struct {
	updates int
}

func (c *countViews) UpdateView(*Editor) { c.updates++ }

type dropAll struct{}

func (dropAll) TransformPasted(nodes []*doc.Node) []*doc.Node {
	out := make([]*doc.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.WithAttrs(n.Attrs.Without("id")))
	}
	return out
}

func sample() *doc.Node {
	return doc.New(doc.KindDoc, nil, doc.Paragraph("a"), doc.Paragraph("b"))
}

func TestDispatchRunsAppenders(t *testing.T) {
	marker := &markFirst{}
	ed := New(sample(), WithPlugins(marker))

	tr := ed.Transaction()
	if err := tr.Insert(0, doc.Paragraph("new")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := ed.Dispatch(tr); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	first := ed.Doc().Child(0)
	if first.TextContent() != "new" || !first.Attrs.Bool("seen") {
		t.Fatalf("first block = %q seen=%v", first.TextContent(), first.Attrs.Bool("seen"))
	}
	// the appender never sees its own transaction
	if marker.calls != 1 {
		t.Fatalf("appender calls = %d, want 1", marker.calls)
	}
}

func TestDispatchRejectsStaleTransaction(t *testing.T) {
	ed := New(sample())
	stale := ed.Transaction()
	tr := ed.Transaction()
	if err := tr.Delete(0, 3); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := ed.Dispatch(tr); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if err := ed.Dispatch(stale); err != ErrStaleTransaction {
		t.Fatalf("Dispatch(stale) error = %v, want ErrStaleTransaction", err)
	}
}

func TestReconcilerQueuesWhileStopped(t *testing.T) {
	views := &countViews{}
	ed := New(sample(), WithPlugins(views))
	ed.Mount()
	if views.updates != 1 {
		t.Fatalf("updates after mount = %d, want 1", views.updates)
	}

	ed.Reconciler().Stop()
	for i := 0; i < 3; i++ {
		tr := ed.Transaction()
		if err := tr.Insert(0, doc.Paragraph("x")); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if err := ed.Dispatch(tr); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
	}
	if views.updates != 1 || ed.Reconciler().Pending() != 3 {
		t.Fatalf("updates=%d pending=%d while stopped", views.updates, ed.Reconciler().Pending())
	}

	ed.Reconciler().Flush()
	if views.updates != 1 {
		t.Fatal("Flush() rendered while stopped")
	}
	ed.Reconciler().Start()
	ed.Reconciler().Flush()
	if views.updates != 2 || ed.Reconciler().Pending() != 0 {
		t.Fatalf("updates=%d pending=%d after flush", views.updates, ed.Reconciler().Pending())
	}
}

func TestUndoRedo(t *testing.T) {
	original := sample()
	ed := New(original, WithPlugins(&markFirst{}))

	tr := ed.Transaction()
	if err := tr.Delete(0, 3); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := ed.Dispatch(tr); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	changed := ed.Doc()

	if !ed.Undo() {
		t.Fatal("Undo() = false")
	}
	if got := ed.Doc().Child(0).TextContent(); got != "a" || ed.Doc().ChildCount() != 2 {
		t.Fatalf("after undo first=%q count=%d", got, ed.Doc().ChildCount())
	}
	if !ed.Redo() {
		t.Fatal("Redo() = false")
	}
	if !ed.Doc().Equal(changed) {
		t.Fatal("redo did not restore the change")
	}
	if ed.CanRedo() {
		t.Fatal("redo stack should be empty")
	}
}

func TestSkipHistoryRebasesEntries(t *testing.T) {
	ed := New(sample())

	tr := ed.Transaction()
	if err := tr.Insert(6, doc.Paragraph("c")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := ed.Dispatch(tr); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	skip := ed.Transaction()
	if err := skip.Insert(0, doc.Paragraph("z")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	skip.SetMeta(doc.MetaSkipHistory, true)
	if err := ed.Dispatch(skip); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if !ed.Undo() {
		t.Fatal("Undo() = false")
	}
	var texts []string
	for _, n := range ed.Doc().Content {
		texts = append(texts, n.TextContent())
	}
	if len(texts) != 3 || texts[0] != "z" || texts[2] != "b" {
		t.Fatalf("blocks after undo = %v, want [z a b]", texts)
	}
	if ed.CanUndo() {
		t.Fatal("unrecorded change should not be undoable")
	}
}

func TestRunDefersCommand(t *testing.T) {
	ed := New(sample())
	ran := false
	ed.Run(func(tr *doc.Transaction) *doc.Transaction {
		ran = true
		if err := tr.Delete(0, 3); err != nil {
			t.Errorf("Delete() error = %v", err)
		}
		return tr
	})
	if ran {
		t.Fatal("command ran before the loop turned")
	}
	if n := ed.Loop().Drain(); n != 1 {
		t.Fatalf("Drain() = %d, want 1", n)
	}
	if ed.Doc().ChildCount() != 1 {
		t.Fatalf("doc has %d blocks, want 1", ed.Doc().ChildCount())
	}
}

func TestPasteRunsTransformers(t *testing.T) {
	ed := New(sample(), WithPlugins(dropAll{}))
	ed.SetSelection(doc.TextSelection(1, 1))
	pasted := doc.New(doc.KindParagraph, doc.Attrs{"id": "dup"}, doc.NewText("p"))
	if err := ed.Paste([]*doc.Node{pasted}); err != nil {
		t.Fatalf("Paste() error = %v", err)
	}
	got := ed.Doc().Child(1)
	if got.TextContent() != "p" {
		t.Fatalf("pasted block landed at wrong index: %q", got.TextContent())
	}
	if _, ok := got.Attrs["id"]; ok {
		t.Fatal("transformer did not run")
	}
}

func TestLoopRunsNestedTasksInOrder(t *testing.T) {
	var loop Loop
	var order []int
	loop.Defer(func() {
		order = append(order, 1)
		loop.Defer(func() { order = append(order, 3) })
	})
	loop.Defer(func() { order = append(order, 2) })
	loop.Drain()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v", order)
	}
}
