package dragdrop

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"beskar/editor/internal/blockid"
	"beskar/editor/internal/doc"
	"beskar/editor/internal/editor"
)

func block(id string) *doc.Node {
	return doc.New(doc.KindParagraph, doc.Attrs{blockid.Attr: id}, doc.NewText(strings.ToLower(id)))
}

// fiveBlocks builds [A,B,C,D,E]; every block has size 3.
func fiveBlocks() *doc.Node {
	return doc.New(doc.KindDoc, nil, block("A"), block("B"), block("C"), block("D"), block("E"))
}

func order(root *doc.Node) string {
	var ids []string
	for _, child := range root.Content {
		ids = append(ids, child.Attrs.String(blockid.Attr))
	}
	return strings.Join(ids, "")
}

func TestPlanMove(t *testing.T) {
	cases := []struct {
		name      string
		source    string
		target    string
		placement Placement
		want      string
		wantErr   error
	}{
		{name: "to the top", source: "C", target: "A", placement: Before, want: "CABDE"},
		{name: "to the end", source: "C", target: "E", placement: After, want: "ABDEC"},
		{name: "downwards", source: "A", target: "C", placement: After, want: "BCADE"},
		{name: "before own successor", source: "C", target: "D", placement: Before, wantErr: ErrNoop},
		{name: "after own predecessor", source: "C", target: "B", placement: After, wantErr: ErrNoop},
		{name: "onto itself", source: "C", target: "C", placement: After, wantErr: ErrNoop},
		{name: "missing source", source: "Z", target: "A", placement: Before, wantErr: ErrSourceGone},
		{name: "missing target", source: "C", target: "Z", placement: Before, wantErr: ErrNoTarget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := fiveBlocks()
			move, err := PlanMove(root, tc.source, nil, tc.target, tc.placement)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("PlanMove() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("PlanMove() error = %v", err)
			}
			tr, err := MoveTransaction(root, move)
			if err != nil {
				t.Fatalf("MoveTransaction() error = %v", err)
			}
			if got := order(tr.Doc); got != tc.want {
				t.Fatalf("order = %s, want %s", got, tc.want)
			}
			if !tr.Flag(doc.MetaSkipShapeRepair) || !tr.Flag(doc.MetaSkipHistory) {
				t.Fatal("move transaction is missing its meta flags")
			}
		})
	}
}

func TestPlanMoveInsertsCachedNode(t *testing.T) {
	root := fiveBlocks()
	cached := block("C")
	move, err := PlanMove(root, "C", cached, "A", Before)
	if err != nil {
		t.Fatalf("PlanMove() error = %v", err)
	}
	if move.Node != cached || move.From != 6 || move.To != 9 || move.Insert != 0 {
		t.Fatalf("move = %+v", move)
	}
}

// fakeElement is a hit-test result. Text elements carry a position, block
// wrappers an id.
type fakeElement struct {
	id     string
	pos    int
	hasPos bool
	parent *fakeElement
}

func (f *fakeElement) BlockID() string  { return f.id }
func (f *fakeElement) Pos() (int, bool) { return f.pos, f.hasPos }
func (f *fakeElement) Parent() Element {
	if f.parent == nil {
		return nil
	}
	return f.parent
}

// fakeSurface lays blocks out top to bottom, 20px tall with 10px gaps.
type fakeSurface struct {
	host    Host
	classes map[string]map[string]bool
}

func newFakeSurface(host Host) *fakeSurface {
	return &fakeSurface{host: host, classes: make(map[string]map[string]bool)}
}

func rectFor(i int) Rect {
	return Rect{Left: 100, Top: float64(i * 30), Width: 400, Height: 20}
}

func (s *fakeSurface) hit(p Point) (*doc.Node, int, bool) {
	pos := 0
	for i, child := range s.host.Doc().Content {
		if rectFor(i).Contains(p) {
			return child, pos, true
		}
		pos += child.Size()
	}
	return nil, 0, false
}

func (s *fakeSurface) ElementAt(p Point) Element {
	node, pos, ok := s.hit(p)
	if !ok {
		return nil
	}
	wrapper := &fakeElement{id: node.Attrs.String(blockid.Attr)}
	return &fakeElement{pos: pos + 1, hasPos: true, parent: wrapper}
}

func (s *fakeSurface) PosAtCoords(p Point) (int, bool) {
	_, pos, ok := s.hit(p)
	return pos + 1, ok
}

func (s *fakeSurface) BlockRect(id string) (Rect, bool) {
	for i, child := range s.host.Doc().Content {
		if child.Attrs.String(blockid.Attr) == id {
			return rectFor(i), true
		}
	}
	return Rect{}, false
}

func (s *fakeSurface) Blocks() []RenderedBlock {
	var out []RenderedBlock
	for i, child := range s.host.Doc().Content {
		out = append(out, RenderedBlock{ID: child.Attrs.String(blockid.Attr), Rect: rectFor(i)})
	}
	return out
}

func (s *fakeSurface) SetClass(id, class string, on bool) {
	if s.classes[id] == nil {
		s.classes[id] = make(map[string]bool)
	}
	s.classes[id][class] = on
}

func (s *fakeSurface) ClearClasses(classes ...string) {
	for _, set := range s.classes {
		for _, c := range classes {
			delete(set, c)
		}
	}
}

func (s *fakeSurface) hasClass(id, class string) bool {
	return s.classes[id][class]
}

type fakeHandle struct {
	rect     Rect
	visible  bool
	grabbing bool
}

func (h *fakeHandle) MoveTo(r Rect)       { h.rect = r }
func (h *fakeHandle) Show()               { h.visible = true }
func (h *fakeHandle) Hide()               { h.visible = false }
func (h *fakeHandle) Visible() bool       { return h.visible }
func (h *fakeHandle) Rect() Rect          { return h.rect }
func (h *fakeHandle) SetGrabbing(on bool) { h.grabbing = on }

type fakeIndicator struct {
	id        string
	placement Placement
	shown     bool
}

func (i *fakeIndicator) Show(id string, placement Placement) {
	i.id, i.placement, i.shown = id, placement, true
}
func (i *fakeIndicator) Hide() { i.shown = false }

type harness struct {
	ed        *editor.Editor
	engine    *Engine
	surface   *fakeSurface
	handle    *fakeHandle
	indicator *fakeIndicator
	logs      *bytes.Buffer
}

func newHarness() *harness {
	h := &harness{handle: &fakeHandle{}, indicator: &fakeIndicator{}, logs: &bytes.Buffer{}}
	logger := log.New(h.logs, "", 0)
	h.ed = editor.New(fiveBlocks(), editor.WithLogger(logger), editor.WithPlugins(blockid.New(blockid.WithLogger(logger))))
	h.surface = newFakeSurface(h.ed)
	cfg := ForEditor(h.ed, h.surface, h.handle, h.indicator)
	h.engine = New(cfg)
	editor.WithPlugins(h.engine)(h.ed)
	h.ed.Mount()
	return h
}

// over returns a point inside the block at index i, above or below its midpoint.
func over(i int, upper bool) Point {
	y := float64(i*30) + 15
	if upper {
		y = float64(i*30) + 2
	}
	return Point{X: 300, Y: y}
}

func TestGestureMovesBlock(t *testing.T) {
	h := newHarness()
	ids := order(h.ed.Doc())

	h.engine.PointerMove(over(2, true))
	if h.engine.Hovered() != "C" || !h.handle.Visible() {
		t.Fatalf("hovered = %q visible=%v", h.engine.Hovered(), h.handle.Visible())
	}
	if h.handle.Rect().Left != 68 || h.handle.Rect().Top != 60 {
		t.Fatalf("handle rect = %+v", h.handle.Rect())
	}

	if !h.engine.DragStart() {
		t.Fatal("DragStart() = false")
	}
	if !h.engine.Session().IsDragging() || h.ed.Reconciler().Running() {
		t.Fatal("drag did not suspend the reconciler")
	}
	if !h.surface.hasClass("C", ClassDragging) {
		t.Fatal("source block not marked as dragging")
	}

	h.engine.DragOver(over(0, true))
	if !h.indicator.shown || h.indicator.id != "A" || h.indicator.placement != Before {
		t.Fatalf("indicator = %+v", h.indicator)
	}
	h.engine.DragOver(over(4, false))
	if h.indicator.id != "E" || h.indicator.placement != After || h.surface.hasClass("A", ClassDragOver) {
		t.Fatalf("indicator did not move: %+v", h.indicator)
	}

	h.engine.Drop(over(0, true))
	h.engine.DragEnd()
	if got := order(h.ed.Doc()); got != "CABDE" {
		t.Fatalf("order = %s, want CABDE", got)
	}
	if !h.engine.Session().IsDragging() {
		t.Fatal("cleanup ran before the loop turned")
	}
	if h.ed.Reconciler().Pending() == 0 {
		t.Fatal("render should be queued while the reconciler is stopped")
	}

	renders := h.ed.Renders()
	if n := h.ed.Loop().Drain(); n != 1 {
		t.Fatalf("Drain() ran %d tasks, want 1", n)
	}
	if h.engine.Session().IsDragging() || !h.ed.Reconciler().Running() {
		t.Fatal("engine did not return to idle")
	}
	if h.ed.Renders() != renders+1 || h.ed.Reconciler().Pending() != 0 {
		t.Fatal("cleanup did not flush the reconciler")
	}
	if h.indicator.shown || h.handle.grabbing || h.surface.hasClass("C", ClassDragging) {
		t.Fatal("transient state survived cleanup")
	}
	if len(ids) != len(order(h.ed.Doc())) || h.ed.CanUndo() {
		t.Fatal("move should keep identifiers and stay out of history")
	}
}

func TestDropOnOwnSlotIsNoop(t *testing.T) {
	h := newHarness()
	before := h.ed.Doc()

	h.engine.PointerMove(over(2, true))
	h.engine.DragStart()
	h.engine.Drop(over(3, true))
	h.ed.Loop().Drain()

	if h.ed.Doc() != before {
		t.Fatalf("order = %s, document should be untouched", order(h.ed.Doc()))
	}
	if h.engine.Session().IsDragging() {
		t.Fatal("engine stuck in dragging")
	}
}

func TestDropBetweenBlocksUsesNearest(t *testing.T) {
	h := newHarness()
	h.engine.PointerMove(over(4, true))
	h.engine.DragStart()
	h.engine.Drop(Point{X: 300, Y: 27})
	h.ed.Loop().Drain()
	if got := order(h.ed.Doc()); got != "AEBCD" {
		t.Fatalf("order = %s, want AEBCD", got)
	}
}

func TestDropAfterSourceDeletedIsNoop(t *testing.T) {
	h := newHarness()
	h.engine.PointerMove(over(2, true))
	h.engine.DragStart()

	tr := h.ed.Transaction()
	if err := tr.Delete(6, 9); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := h.ed.Dispatch(tr); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	after := h.ed.Doc()

	h.engine.Drop(over(0, true))
	h.ed.Loop().Drain()
	if h.ed.Doc() != after {
		t.Fatalf("order = %s, drop should not touch the document", order(h.ed.Doc()))
	}
	if !strings.Contains(h.logs.String(), "source block not found") {
		t.Fatalf("log = %q", h.logs.String())
	}
	if !h.ed.Reconciler().Running() {
		t.Fatal("reconciler left stopped")
	}
}

func TestCancelledDragReturnsToIdle(t *testing.T) {
	h := newHarness()
	h.engine.PointerMove(over(1, true))
	h.engine.DragStart()
	h.engine.DragEnd()
	h.ed.Loop().Drain()
	if h.engine.Session().IsDragging() || !h.ed.Reconciler().Running() {
		t.Fatal("cancelled drag did not reach idle")
	}
}

func TestHandleBufferZone(t *testing.T) {
	h := newHarness()
	h.engine.PointerMove(over(2, true))

	// over D but within reach of the handle
	h.engine.PointerMove(Point{X: 120, Y: 100})
	if h.engine.Hovered() != "C" {
		t.Fatalf("hovered = %q, want C inside the buffer zone", h.engine.Hovered())
	}
	h.engine.PointerMove(Point{X: 300, Y: 100})
	if h.engine.Hovered() != "D" {
		t.Fatalf("hovered = %q, want D", h.engine.Hovered())
	}

	h.engine.PointerMove(Point{X: 300, Y: 500})
	if h.handle.Visible() {
		t.Fatal("handle should hide away from any block")
	}
}
