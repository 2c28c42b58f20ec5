package editor

import "beskar/editor/internal/doc"

// TransactionAppender observes dispatched transactions and may return one
// follow-up transaction to apply in the same dispatch. trs holds only the
// transactions this appender has not seen yet; oldDoc is the document
// before the first of them and newDoc the document after the last. The
// returned transaction must start from newDoc. Returning nil or a
// transaction without steps appends nothing.
type TransactionAppender interface {
	AppendTransaction(trs []*doc.Transaction, oldDoc, newDoc *doc.Node) *doc.Transaction
}

// ViewUpdater runs after the view has rendered a new document. It may
// dispatch transactions of its own.
type ViewUpdater interface {
	UpdateView(ed *Editor)
}

// PasteTransformer rewrites a pasted fragment before it is inserted.
type PasteTransformer interface {
	TransformPasted(nodes []*doc.Node) []*doc.Node
}

// Command builds on a transaction started from the current state and
// returns it. A command that does not apply returns it unchanged.
type Command func(tr *doc.Transaction) *doc.Transaction
