// Package dragdrop implements reordering of top-level blocks by pointer
// drag. A single floating handle follows the hovered block; dragging it
// moves the block in one transaction.
package dragdrop

import (
	"errors"
	"log"
	"math"

	"beskar/editor/internal/blockid"
	"beskar/editor/internal/doc"
	"beskar/editor/internal/editor"
)

// Transient view classes set during a gesture.
const (
	ClassDragging       = "dragging"
	ClassDragOver       = "drag-over"
	ClassDragOverTop    = "drag-over-top"
	ClassDragOverBottom = "drag-over-bottom"
)

const (
	handleBuffer = 50
	handleOffset = 32
	handleSize   = 24
)

// Host is the editor state the engine reads and dispatches to.
type Host interface {
	Doc() *doc.Node
	Dispatch(tr *doc.Transaction) error
}

// Element is a rendered element found by hit testing.
type Element interface {
	// BlockID returns the data-block-id attribute, or "".
	BlockID() string
	// Pos returns the document position the element renders at.
	Pos() (int, bool)
	// Parent returns the enclosing element, or nil at the view root.
	Parent() Element
}

// RenderedBlock is a block element with its screen bounds.
type RenderedBlock struct {
	ID   string
	Rect Rect
}

// Surface maps between the screen and the document.
type Surface interface {
	ElementAt(p Point) Element
	PosAtCoords(p Point) (int, bool)
	BlockRect(id string) (Rect, bool)
	// Blocks lists the rendered blocks carrying identifiers.
	Blocks() []RenderedBlock
	SetClass(id, class string, on bool)
	ClearClasses(classes ...string)
}

// Affordance is the floating drag handle.
type Affordance interface {
	MoveTo(r Rect)
	Show()
	Hide()
	Visible() bool
	Rect() Rect
	SetGrabbing(on bool)
}

// Indicator paints the single before/after drop marker.
type Indicator interface {
	Show(id string, placement Placement)
	Hide()
}

// Reconciler is the view's change observer.
type Reconciler interface {
	Stop()
	Start()
	Flush()
}

// Scheduler runs a function on a later turn of the event loop.
type Scheduler interface {
	Defer(fn func())
}

// Config wires an Engine to its collaborators.
type Config struct {
	Host       Host
	Surface    Surface
	Handle     Affordance
	Indicator  Indicator
	Reconciler Reconciler
	Scheduler  Scheduler
	Logger     *log.Logger
}

// Engine runs the gesture state machine: idle, armed on a hovered block,
// dragging, and back to idle after a deferred cleanup.
type Engine struct {
	cfg     Config
	session Session
	hovered string
	cleanup bool
}

// New builds an engine.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Engine{cfg: cfg}
}

// ForEditor fills the host, reconciler and scheduler from an editor.
func ForEditor(ed *editor.Editor, surface Surface, handle Affordance, indicator Indicator) Config {
	return Config{
		Host:       ed,
		Surface:    surface,
		Handle:     handle,
		Indicator:  indicator,
		Reconciler: ed.Reconciler(),
		Scheduler:  ed.Loop(),
		Logger:     ed.Logger(),
	}
}

// Session returns the drag session for read-only use by other components.
func (e *Engine) Session() *Session {
	return &e.session
}

// Hovered returns the identifier of the block the handle is attached to.
func (e *Engine) Hovered() string {
	return e.hovered
}

// PointerMove tracks the block under the pointer and moves the handle to it.
func (e *Engine) PointerMove(p Point) {
	if e.session.dragging {
		return
	}
	handle := e.cfg.Handle
	if e.hovered != "" && handle.Rect().Grow(handleBuffer).Contains(p) {
		if !handle.Visible() {
			handle.Show()
		}
		return
	}
	var b Block
	ok := false
	if el := e.cfg.Surface.ElementAt(p); el != nil {
		b, ok = e.blockFromElement(el)
	}
	switch {
	case ok && (b.ID != e.hovered || !handle.Visible()):
		e.hovered = b.ID
		e.placeHandle()
	case !ok && e.hovered != "":
		handle.Hide()
	}
}

// PointerLeave hides the handle but keeps the hovered block, since a drag
// start can follow the pointer leaving the view.
func (e *Engine) PointerLeave() {
	if e.session.dragging {
		return
	}
	e.cfg.Handle.Hide()
}

// DragStart picks up the hovered block. It reports whether a drag began.
func (e *Engine) DragStart() bool {
	if e.session.dragging || e.hovered == "" {
		return false
	}
	b, ok := FindBlock(e.cfg.Host.Doc(), e.hovered)
	if !ok {
		return false
	}
	e.session.begin(b)
	e.cleanup = false
	e.cfg.Surface.SetClass(b.ID, ClassDragging, true)
	e.cfg.Handle.SetGrabbing(true)
	e.cfg.Reconciler.Stop()
	return true
}

// DragOver paints the indicator for the block under the pointer. It
// reports whether the event belongs to a drag.
func (e *Engine) DragOver(p Point) bool {
	if !e.session.dragging {
		return false
	}
	e.cfg.Indicator.Hide()
	e.cfg.Surface.ClearClasses(ClassDragOver, ClassDragOverTop, ClassDragOverBottom)

	pos, ok := e.cfg.Surface.PosAtCoords(p)
	if !ok {
		return true
	}
	b, ok := e.blockAtPos(pos)
	if !ok || b.ID == e.session.sourceID {
		return true
	}
	rect, ok := e.cfg.Surface.BlockRect(b.ID)
	if !ok {
		return true
	}
	placement := placementFor(rect, p)
	e.cfg.Surface.SetClass(b.ID, ClassDragOver, true)
	if placement == Before {
		e.cfg.Surface.SetClass(b.ID, ClassDragOverTop, true)
	} else {
		e.cfg.Surface.SetClass(b.ID, ClassDragOverBottom, true)
	}
	e.cfg.Indicator.Show(b.ID, placement)
	return true
}

// Drop moves the dragged block next to the block under the pointer, or the
// nearest block by vertical distance when the pointer is between blocks.
// It reports whether the event belongs to a drag. Cleanup is always
// scheduled, whether or not a move happened.
func (e *Engine) Drop(p Point) bool {
	if !e.session.dragging {
		return false
	}
	defer e.scheduleCleanup()

	target, placement, ok := e.dropTarget(p)
	if !ok {
		return true
	}
	root := e.cfg.Host.Doc()
	move, err := PlanMove(root, e.session.sourceID, e.session.node, target, placement)
	if err != nil {
		if !errors.Is(err, ErrNoop) {
			e.cfg.Logger.Printf("dragdrop: drop ignored: %v", err)
		}
		return true
	}
	tr, err := MoveTransaction(root, move)
	if err != nil {
		e.cfg.Logger.Printf("dragdrop: build move: %v", err)
		return true
	}
	if err := e.cfg.Host.Dispatch(tr); err != nil {
		e.cfg.Logger.Printf("dragdrop: dispatch move: %v", err)
	}
	return true
}

// DragEnd ends the gesture; it fires after Drop and on cancel.
func (e *Engine) DragEnd() {
	if !e.session.dragging {
		return
	}
	e.scheduleCleanup()
}

func (e *Engine) scheduleCleanup() {
	if e.cleanup {
		return
	}
	e.cleanup = true
	gen := e.session.gen
	e.cfg.Scheduler.Defer(func() {
		if e.session.gen != gen {
			return
		}
		e.finish()
	})
}

func (e *Engine) finish() {
	e.session.reset()
	e.cleanup = false
	e.hovered = ""
	e.cfg.Indicator.Hide()
	e.cfg.Surface.ClearClasses(ClassDragging, ClassDragOver, ClassDragOverTop, ClassDragOverBottom)
	e.cfg.Handle.SetGrabbing(false)
	e.cfg.Reconciler.Start()
	e.cfg.Reconciler.Flush()
}

// Reposition keeps the handle on the hovered block after scrolling,
// resizing or a view update.
func (e *Engine) Reposition() {
	if e.hovered == "" || e.session.dragging {
		return
	}
	if _, ok := FindBlock(e.cfg.Host.Doc(), e.hovered); !ok {
		e.cfg.Handle.Hide()
		return
	}
	if rect, ok := e.cfg.Surface.BlockRect(e.hovered); ok {
		e.cfg.Handle.MoveTo(handleRect(rect))
	}
}

// UpdateView implements editor.ViewUpdater.
func (e *Engine) UpdateView(*editor.Editor) {
	e.Reposition()
}

func (e *Engine) placeHandle() {
	rect, ok := e.cfg.Surface.BlockRect(e.hovered)
	if !ok {
		return
	}
	e.cfg.Handle.MoveTo(handleRect(rect))
	e.cfg.Handle.Show()
}

func handleRect(block Rect) Rect {
	return Rect{
		Left:   math.Max(block.Left-handleOffset, 4),
		Top:    block.Top,
		Width:  handleSize,
		Height: math.Min(block.Height, handleSize),
	}
}

// blockFromElement walks up from el to the nearest element that resolves
// to a top-level block. Wrapped nodes such as tables and atoms are found by
// their id attribute; other elements by their document position.
func (e *Engine) blockFromElement(el Element) (Block, bool) {
	root := e.cfg.Host.Doc()
	for cur := el; cur != nil; cur = cur.Parent() {
		if id := cur.BlockID(); id != "" {
			if b, ok := FindBlock(root, id); ok {
				return b, true
			}
		}
		if pos, ok := cur.Pos(); ok {
			if b, ok := e.blockAtPos(pos); ok {
				return b, true
			}
		}
	}
	return Block{}, false
}

// blockAtPos returns the top-level block containing pos.
func (e *Engine) blockAtPos(pos int) (Block, bool) {
	root := e.cfg.Host.Doc()
	rp, err := root.Resolve(pos)
	if err != nil {
		return Block{}, false
	}
	var node *doc.Node
	var at int
	if rp.Depth() >= 1 {
		node, at = rp.Node(1), rp.Before(1)
	} else {
		// positions directly before a leaf block resolve to the root
		node, at = root.Child(rp.Index(0)), pos
	}
	if node == nil {
		return Block{}, false
	}
	id := node.Attrs.String(blockid.Attr)
	if id == "" {
		return Block{}, false
	}
	return Block{ID: id, Node: node, Pos: at}, true
}

func (e *Engine) dropTarget(p Point) (string, Placement, bool) {
	if el := e.cfg.Surface.ElementAt(p); el != nil {
		if b, ok := e.blockFromElement(el); ok {
			if rect, ok := e.cfg.Surface.BlockRect(b.ID); ok {
				return b.ID, placementFor(rect, p), true
			}
		}
	}
	var best RenderedBlock
	bestDist := math.Inf(1)
	for _, rb := range e.cfg.Surface.Blocks() {
		if d := math.Abs(p.Y - rb.Rect.MidY()); d < bestDist {
			best, bestDist = rb, d
		}
	}
	if best.ID == "" {
		return "", Before, false
	}
	return best.ID, placementFor(best.Rect, p), true
}
