// Package editor is the host editing framework the core plugs into. It
// owns the current document and selection, dispatches transactions through
// appender plugins, keeps undo history, and drives a view reconciler and a
// cooperative task loop.
//
// An Editor is not safe for concurrent use; like a browser view it expects
// every call to come from one goroutine.
package editor

import (
	"errors"
	"fmt"
	"log"

	"beskar/editor/internal/doc"
)

var (
	// ErrStaleTransaction is returned when a transaction was not started from
	// the editor's current document.
	ErrStaleTransaction = errors.New("transaction does not start from current document")
)

// MetaAppendedTo marks appended transactions with the transaction that
// triggered them.
const MetaAppendedTo = "appendedTransaction"

const (
	maxAppendRounds = 16
	maxRenderPasses = 8
)

// Editor holds one open document.
type Editor struct {
	doc       *doc.Node
	selection doc.Selection

	appenders    []TransactionAppender
	views        []ViewUpdater
	transformers []PasteTransformer

	history    history
	reconciler *Reconciler
	loop       *Loop
	logger     *log.Logger

	rendering bool
	rerender  bool
	renders   int
}

// Option configures an Editor.
type Option func(*Editor)

// WithPlugins registers plugins. Each plugin is added to every hook it
// implements, in the order given.
func WithPlugins(plugins ...any) Option {
	return func(e *Editor) {
		for _, p := range plugins {
			if a, ok := p.(TransactionAppender); ok {
				e.appenders = append(e.appenders, a)
			}
			if v, ok := p.(ViewUpdater); ok {
				e.views = append(e.views, v)
			}
			if t, ok := p.(PasteTransformer); ok {
				e.transformers = append(e.transformers, t)
			}
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLoop shares a task loop between editors.
func WithLoop(loop *Loop) Option {
	return func(e *Editor) {
		if loop != nil {
			e.loop = loop
		}
	}
}

// New opens root in an editor. Call Mount to run the first render.
func New(root *doc.Node, opts ...Option) *Editor {
	e := &Editor{doc: root, loop: &Loop{}, logger: log.Default()}
	e.reconciler = newReconciler(e.render)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Doc returns the current document.
func (e *Editor) Doc() *doc.Node { return e.doc }

// Selection returns the current selection.
func (e *Editor) Selection() doc.Selection { return e.selection }

// Loop returns the editor's task loop.
func (e *Editor) Loop() *Loop { return e.loop }

// Reconciler returns the editor's view reconciler.
func (e *Editor) Reconciler() *Reconciler { return e.reconciler }

// Logger returns the editor's logger.
func (e *Editor) Logger() *log.Logger { return e.logger }

// Renders returns how many renders have completed.
func (e *Editor) Renders() int { return e.renders }

// Transaction starts a transaction from the current document and selection.
func (e *Editor) Transaction() *doc.Transaction {
	return doc.NewTransaction(e.doc).SetSelection(e.selection)
}

// Mount runs the initial render, giving view plugins their first look at
// the document before any transaction exists.
func (e *Editor) Mount() {
	e.reconciler.Notify()
}

// Dispatch applies tr and every transaction appended in response to it.
func (e *Editor) Dispatch(tr *doc.Transaction) error {
	if tr == nil {
		return nil
	}
	if tr.Before != e.doc {
		return ErrStaleTransaction
	}
	before := e.doc
	trs := e.applyWithAppended(tr)

	e.doc = trs[len(trs)-1].Doc
	for i := len(trs) - 1; i >= 0; i-- {
		if trs[i].Selection != nil {
			e.selection = *trs[i].Selection
			break
		}
	}
	e.recordHistory(tr, trs)

	if e.doc != before {
		e.reconciler.Notify()
	}
	return nil
}

func (e *Editor) applyWithAppended(root *doc.Transaction) []*doc.Transaction {
	type seenState struct {
		doc *doc.Node
		n   int
	}
	trs := []*doc.Transaction{root}
	current := root.Doc
	seen := make([]seenState, len(e.appenders))
	for i := range seen {
		seen[i] = seenState{doc: e.doc}
	}

	for round := 0; ; round++ {
		appended := false
		for i, a := range e.appenders {
			if seen[i].n < len(trs) {
				next := a.AppendTransaction(trs[seen[i].n:], seen[i].doc, current)
				if next != nil && next.DocChanged() {
					if next.Before != current {
						e.logger.Printf("editor: appended transaction from %T ignored: %v", a, ErrStaleTransaction)
					} else {
						next.SetMeta(MetaAppendedTo, root)
						trs = append(trs, next)
						current = next.Doc
						appended = true
					}
				}
			}
			seen[i] = seenState{doc: current, n: len(trs)}
		}
		if !appended {
			return trs
		}
		if round+1 >= maxAppendRounds {
			e.logger.Printf("editor: stopped appending after %d rounds", maxAppendRounds)
			return trs
		}
	}
}

func (e *Editor) recordHistory(root *doc.Transaction, trs []*doc.Transaction) {
	if root.Flag(doc.MetaSkipHistory) {
		var through []doc.Step
		for _, tr := range trs {
			through = append(through, tr.Steps...)
		}
		if dropped := e.history.rebase(through); dropped > 0 {
			e.logger.Printf("editor: dropped %d history entries touched by an unrecorded change", dropped)
		}
		return
	}
	var steps []doc.Step
	for i := len(trs) - 1; i >= 0; i-- {
		steps = append(steps, trs[i].Inverted()...)
	}
	mode, _ := root.Meta(metaHistoryMode).(historyMode)
	e.history.record(mode, steps)
}

func (e *Editor) render() {
	if e.rendering {
		e.rerender = true
		return
	}
	e.rendering = true
	defer func() { e.rendering = false }()
	for pass := 0; pass < maxRenderPasses; pass++ {
		e.rerender = false
		e.renders++
		for _, v := range e.views {
			v.UpdateView(e)
		}
		if !e.rerender {
			return
		}
	}
	e.logger.Printf("editor: view updates did not settle after %d passes", maxRenderPasses)
}

// Exec runs cmd against the current state and dispatches the result when
// it changed the document or the selection.
func (e *Editor) Exec(cmd Command) (bool, error) {
	start := e.Transaction()
	startSel := *start.Selection
	tr := cmd(start)
	if tr == nil {
		return false, nil
	}
	if !tr.DocChanged() && (tr.Selection == nil || *tr.Selection == startSel) {
		return false, nil
	}
	if err := e.Dispatch(tr); err != nil {
		return false, err
	}
	return true, nil
}

// Run defers cmd to the task loop so that it sees the state left by every
// transaction dispatched before it.
func (e *Editor) Run(cmd Command) {
	e.loop.Defer(func() {
		if _, err := e.Exec(cmd); err != nil {
			e.logger.Printf("editor: deferred command: %v", err)
		}
	})
}

// SetSelection changes the selection without touching the document.
func (e *Editor) SetSelection(sel doc.Selection) {
	e.selection = sel
}

// Paste inserts nodes after the top-level block holding the selection
// head, or at the end of the document when there is none. Paste
// transformers run first.
func (e *Editor) Paste(nodes []*doc.Node) error {
	pos := e.doc.ContentSize()
	if head := e.selection.Head; head > 0 && head < pos {
		if rp, err := e.doc.Resolve(head); err == nil && rp.Depth() >= 1 {
			pos = rp.After(1)
		}
	}
	return e.PasteAt(pos, nodes)
}

// PasteAt runs the paste transformers over nodes and inserts the result at
// pos, which must lie between top-level blocks.
func (e *Editor) PasteAt(pos int, nodes []*doc.Node) error {
	for _, t := range e.transformers {
		nodes = t.TransformPasted(nodes)
	}
	if len(nodes) == 0 {
		return nil
	}
	tr := e.Transaction()
	if err := tr.Insert(pos, nodes...); err != nil {
		return fmt.Errorf("paste: %w", err)
	}
	size := 0
	for _, n := range nodes {
		size += n.Size()
	}
	tr.SetSelection(doc.TextSelection(pos+size, pos+size))
	return e.Dispatch(tr)
}

// Undo reverts the most recent recorded change.
func (e *Editor) Undo() bool {
	return e.replay(&e.history.undo, historyUndo)
}

// Redo reapplies the most recently undone change.
func (e *Editor) Redo() bool {
	return e.replay(&e.history.redo, historyRedo)
}

func (e *Editor) replay(stack *[]historyEntry, mode historyMode) bool {
	if len(*stack) == 0 {
		return false
	}
	entry := (*stack)[len(*stack)-1]
	*stack = (*stack)[:len(*stack)-1]

	tr := e.Transaction()
	for _, s := range entry.steps {
		if err := tr.Step(s); err != nil {
			e.logger.Printf("editor: history entry no longer applies: %v", err)
			return false
		}
	}
	tr.SetMeta(metaHistoryMode, mode)
	if err := e.Dispatch(tr); err != nil {
		e.logger.Printf("editor: history dispatch: %v", err)
		return false
	}
	return true
}

// CanUndo reports whether Undo has anything to revert.
func (e *Editor) CanUndo() bool { return len(e.history.undo) > 0 }

// CanRedo reports whether Redo has anything to reapply.
func (e *Editor) CanRedo() bool { return len(e.history.redo) > 0 }
