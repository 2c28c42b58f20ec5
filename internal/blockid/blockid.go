// Package blockid keeps a stable identifier on every addressable block of a
// document. Identifiers live in the blockId attribute; blocks nested inside
// a table or list never carry one.
package blockid

import (
	"errors"
	"fmt"
	"log"
	"time"

	"beskar/editor/internal/doc"
	"beskar/editor/internal/editor"
	"beskar/editor/internal/util"
)

// Attr is the attribute holding a block's identifier.
const Attr = "blockId"

// ErrInconsistent is returned by Verify when a document breaks the identity rules.
var ErrInconsistent = errors.New("block identifiers inconsistent")

// DefaultTypes is the allow-list of addressable block kinds.
var DefaultTypes = []doc.Kind{
	doc.KindHeading,
	doc.KindParagraph,
	doc.KindBulletList,
	doc.KindOrderedList,
	doc.KindTaskList,
	doc.KindBlockquote,
	doc.KindCodeBlock,
	doc.KindTable,
	doc.KindHorizontalRule,
	doc.KindDetails,
	doc.KindNote,
	doc.KindImage,
	doc.KindMathBlock,
	doc.KindTableOfContents,
}

// Manager assigns, clears and strips block identifiers. It plugs into an
// editor as a transaction appender, a view updater and a paste transformer.
type Manager struct {
	types  map[doc.Kind]bool
	newID  func() string
	logger *log.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTypes replaces the allow-list.
func WithTypes(kinds ...doc.Kind) Option {
	return func(m *Manager) {
		m.types = make(map[doc.Kind]bool, len(kinds))
		for _, k := range kinds {
			m.types[k] = true
		}
	}
}

// WithIDFunc replaces the identifier generator.
func WithIDFunc(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New builds a Manager using DefaultTypes.
func New(opts ...Option) *Manager {
	m := &Manager{
		newID:  func() string { return util.NewBlockID(time.Now()) },
		logger: log.Default(),
	}
	WithTypes(DefaultTypes...)(m)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewID returns a fresh identifier.
func (m *Manager) NewID() string {
	return m.newID()
}

// Addressable reports whether nodes of kind are in the allow-list.
func (m *Manager) Addressable(kind doc.Kind) bool {
	return m.types[kind]
}

type fix struct {
	pos   int
	attrs doc.Attrs
}

// Repair adds the attribute changes that bring tr.Doc in line with the
// identity rules and returns how many nodes it changed. A document that is
// already consistent gets no steps.
func (m *Manager) Repair(tr *doc.Transaction) int {
	var fixes []fix
	seen := make(map[string]bool)
	m.walk(tr.Doc, 0, false, seen, &fixes)

	changed := 0
	for _, f := range fixes {
		if err := tr.SetNodeAttribute(f.pos, Attr, f.attrs[Attr]); err != nil {
			m.logger.Printf("blockid: set id at %d: %v", f.pos, err)
			continue
		}
		changed++
	}
	return changed
}

func (m *Manager) walk(parent *doc.Node, base int, contained bool, seen map[string]bool, fixes *[]fix) {
	pos := base
	for _, child := range parent.Content {
		if f, err := m.inspect(child, pos, contained, seen); err != nil {
			m.logger.Printf("blockid: inspect %s at %d: %v", child.TypeName(), pos, err)
		} else if f != nil {
			*fixes = append(*fixes, *f)
		}
		if len(child.Content) > 0 && child.Type != doc.KindText {
			inner := contained || child.Type == doc.KindTable || child.Type.IsList()
			m.walk(child, pos+1, inner, seen, fixes)
		}
		pos += child.Size()
	}
}

func (m *Manager) inspect(node *doc.Node, pos int, contained bool, seen map[string]bool) (f *fix, err error) {
	defer func() {
		if r := recover(); r != nil {
			f, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	if !m.types[node.Type] {
		return nil, nil
	}
	id := node.Attrs.String(Attr)
	if contained {
		if id == "" {
			return nil, nil
		}
		return &fix{pos: pos, attrs: doc.Attrs{Attr: nil}}, nil
	}
	if id != "" && !seen[id] {
		seen[id] = true
		return nil, nil
	}
	fresh := m.newID()
	for seen[fresh] {
		fresh = m.newID()
	}
	seen[fresh] = true
	return &fix{pos: pos, attrs: doc.Attrs{Attr: fresh}}, nil
}

// AppendTransaction implements editor.TransactionAppender.
func (m *Manager) AppendTransaction(trs []*doc.Transaction, _, newDoc *doc.Node) *doc.Transaction {
	changed := false
	for _, tr := range trs {
		if tr.DocChanged() {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}
	tr := doc.NewTransaction(newDoc)
	if m.Repair(tr) == 0 {
		return nil
	}
	return tr
}

// UpdateView implements editor.ViewUpdater. It covers documents that were
// loaded without any transaction.
func (m *Manager) UpdateView(ed *editor.Editor) {
	tr := ed.Transaction()
	if m.Repair(tr) == 0 {
		return
	}
	if err := ed.Dispatch(tr); err != nil {
		m.logger.Printf("blockid: dispatch repair: %v", err)
	}
}

// TransformPasted implements editor.PasteTransformer.
func (m *Manager) TransformPasted(nodes []*doc.Node) []*doc.Node {
	return StripAll(nodes)
}

// Strip returns a copy of n with every identifier below and including n
// removed. Untouched subtrees are shared.
func Strip(n *doc.Node) *doc.Node {
	if n == nil || n.Type == doc.KindText {
		return n
	}
	out := n
	if _, ok := n.Attrs[Attr]; ok {
		out = n.WithAttrs(n.Attrs.Without(Attr))
	}
	for i, child := range n.Content {
		stripped := Strip(child)
		if stripped != child {
			out = out.ReplaceChild(i, stripped)
		}
	}
	return out
}

// StripAll strips every node of a fragment.
func StripAll(nodes []*doc.Node) []*doc.Node {
	out := make([]*doc.Node, len(nodes))
	for i, n := range nodes {
		out[i] = Strip(n)
	}
	return out
}

// Verify reports the first identity rule root breaks, or nil.
func (m *Manager) Verify(root *doc.Node) error {
	var fixes []fix
	m.walk(root, 0, false, make(map[string]bool), &fixes)
	if len(fixes) == 0 {
		return nil
	}
	node := root.NodeAt(fixes[0].pos)
	return fmt.Errorf("block %s at %d: %w", node.TypeName(), fixes[0].pos, ErrInconsistent)
}
